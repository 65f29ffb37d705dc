package casefile_test

import (
	"testing"

	"github.com/korpimaa/nightexpress/internal/casefile"
	"github.com/stretchr/testify/require"
)

func TestMidnightExpress(t *testing.T) {
	bundle, err := casefile.MidnightExpress()
	require.NoError(t, err, "embedded case must parse")
	require.Equal(t, "midnight-express", bundle.ID)
	require.Len(t, bundle.SuspectIDs(), 4)
	require.Equal(t, 6, bundle.TotalClues())
	require.Equal(t, 10, bundle.TotalVocabulary())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{
			name:    "not json",
			data:    "{",
			wantErr: nil, // decode error, not ErrInvalidBundle
		},
		{
			name:    "missing id",
			data:    `{"suspects":[{"id":"a","name":"A"}]}`,
			wantErr: casefile.ErrInvalidBundle,
		},
		{
			name:    "no suspects",
			data:    `{"id":"c","suspects":[]}`,
			wantErr: casefile.ErrInvalidBundle,
		},
		{
			name:    "duplicate suspect",
			data:    `{"id":"c","suspects":[{"id":"a","name":"A"},{"id":"a","name":"B"}]}`,
			wantErr: casefile.ErrInvalidBundle,
		},
		{
			name:    "clue references unknown suspect",
			data:    `{"id":"c","suspects":[{"id":"a","name":"A"}],"clues":[{"id":"k","suspect_id":"b","scene":"carriage","text":"t"}]}`,
			wantErr: casefile.ErrInvalidBundle,
		},
		{
			name:    "vocabulary difficulty out of range",
			data:    `{"id":"c","suspects":[{"id":"a","name":"A"}],"vocabulary":[{"word":"w","difficulty":4,"definition":"d"}]}`,
			wantErr: casefile.ErrInvalidBundle,
		},
		{
			name: "minimal valid bundle",
			data: `{"id":"c","suspects":[{"id":"a","name":"A"}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle, err := casefile.Parse([]byte(tt.data))
			switch {
			case tt.name == "not json":
				require.Error(t, err)
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				require.NotNil(t, bundle)
			}
		})
	}
}
