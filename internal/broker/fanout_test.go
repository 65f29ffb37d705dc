package broker_test

import (
	"testing"
	"time"

	"github.com/korpimaa/nightexpress/internal/broker"
	"github.com/stretchr/testify/require"
)

func receiveOne[T any](t *testing.T, c <-chan T) T {
	t.Helper()
	select {
	case v := <-c:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
	}
	panic("unreachable")
}

func TestFanout(t *testing.T) {
	type testCase struct {
		name     string
		testFunc func(t *testing.T, f *broker.Fanout[string])
	}
	tests := []testCase{
		{
			name: "every subscriber receives every payload",
			testFunc: func(t *testing.T, f *broker.Fanout[string]) {
				first := f.Subscribe(8)
				second := f.Subscribe(8)
				f.Publish("carriage")
				f.Publish("dining-car")
				require.Equal(t, "carriage", receiveOne(t, first.C))
				require.Equal(t, "dining-car", receiveOne(t, first.C))
				require.Equal(t, "carriage", receiveOne(t, second.C))
				require.Equal(t, "dining-car", receiveOne(t, second.C))
			},
		},
		{
			name: "closed subscription stops receiving",
			testFunc: func(t *testing.T, f *broker.Fanout[string]) {
				sub := f.Subscribe(8)
				stayer := f.Subscribe(8)
				sub.Close()
				f.Publish("platform")
				require.Equal(t, "platform", receiveOne(t, stayer.C))
				// The closed subscription's channel is closed and drained.
				_, ok := <-sub.C
				require.False(t, ok, "channel not closed after Close")
			},
		},
		{
			name: "close is idempotent",
			testFunc: func(t *testing.T, f *broker.Fanout[string]) {
				sub := f.Subscribe(8)
				sub.Close()
				sub.Close()
				sub.Close()
			},
		},
		{
			name: "close after stop does not block",
			testFunc: func(t *testing.T, f *broker.Fanout[string]) {
				sub := f.Subscribe(8)
				f.Stop()
				done := make(chan struct{})
				go func() {
					sub.Close()
					close(done)
				}()
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("Close blocked after Stop")
				}
			},
		},
		{
			name: "publish after stop is a no-op",
			testFunc: func(t *testing.T, f *broker.Fanout[string]) {
				f.Stop()
				f.Publish("lost")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := broker.NewFanout[string]()
			go f.Start()
			t.Cleanup(f.Stop)
			tt.testFunc(t, f)
		})
	}
}
