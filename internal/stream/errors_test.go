package stream

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// TestClassify verifies error category heuristics.
func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{
			name: "nil error",
			err:  nil,
			want: ErrCategoryUnknown,
		},
		{
			name: "connection refused",
			err:  errors.New("dial tcp 192.168.1.10:554: connection refused"),
			want: ErrCategoryNetwork,
		},
		{
			name: "read deadline",
			err:  context.DeadlineExceeded,
			want: ErrCategoryNetwork,
		},
		{
			name: "end of stream",
			err:  errors.New("end of stream"),
			want: ErrCategoryNetwork,
		},
		{
			name: "unauthorized",
			err:  errors.New("RTSP response: 401 Unauthorized"),
			want: ErrCategoryAuth,
		},
		{
			name: "bad credentials",
			err:  errors.New("invalid password for user admin"),
			want: ErrCategoryAuth,
		},
		{
			name: "decoder failure",
			err:  errors.New("h264 decode error: corrupt macroblock"),
			want: ErrCategoryCodec,
		},
		{
			name: "missing plugin",
			err:  errors.New("missing plugin for caps negotiation"),
			want: ErrCategoryCodec,
		},
		{
			name: "unclassified",
			err:  errors.New("something odd happened"),
			want: ErrCategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// TestSentinelWrap verifies ErrConnect survives wrapping.
func TestSentinelWrap(t *testing.T) {
	err := fmt.Errorf("%w: %v", ErrConnect, errors.New("host unreachable"))
	if !errors.Is(err, ErrConnect) {
		t.Errorf("wrapped error does not match ErrConnect: %v", err)
	}
}

// TestErrorCategoryString verifies string representations.
func TestErrorCategoryString(t *testing.T) {
	tests := []struct {
		cat  ErrorCategory
		want string
	}{
		{ErrCategoryNetwork, "network"},
		{ErrCategoryCodec, "codec"},
		{ErrCategoryAuth, "auth"},
		{ErrCategoryUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.want {
			t.Errorf("ErrorCategory(%d).String() = %q, want %q", tt.cat, got, tt.want)
		}
	}
}
