package random

import (
	"strings"
	"testing"
)

func TestLetters(t *testing.T) {
	tests := []struct {
		name    string
		length  uint
		wantErr bool
	}{
		{
			name:    "zero length",
			length:  0,
			wantErr: false,
		},
		{
			name:    "32 length",
			length:  32,
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Letters(tt.length)
			if (err != nil) != tt.wantErr {
				t.Errorf("Letters() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if uint(len(got)) != tt.length {
				t.Errorf("Letters() got length = %v, want length %v", len(got), tt.length)
			}
		})
	}
}

func TestJoinCode(t *testing.T) {
	for range 100 {
		code, err := JoinCode()
		if err != nil {
			t.Fatalf("JoinCode() error = %v", err)
		}
		if uint(len(code)) != JoinCodeLength {
			t.Errorf("JoinCode() got length = %v, want length %v", len(code), JoinCodeLength)
		}
		for _, r := range code {
			if strings.ContainsRune("0O1IL", r) {
				t.Errorf("JoinCode() = %q contains ambiguous character %q", code, r)
			}
		}
	}
}
