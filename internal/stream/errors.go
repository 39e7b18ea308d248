package stream

import (
	"errors"
	"strings"
)

var (
	// ErrConnect means the source could not be opened. Fatal to session
	// start; the run loop is never entered and there is no automatic retry.
	ErrConnect = errors.New("stream: connect failed")
	// ErrReadStall means a per-frame read failed or timed out. Transient;
	// recovered via the reconnection escalation.
	ErrReadStall = errors.New("stream: read stalled")
	// ErrRetriesExhausted means the reconnect budget ran out. Terminal;
	// resuming requires explicit re-activation.
	ErrRetriesExhausted = errors.New("stream: reconnect budget exhausted")
	// ErrAlreadyStarted means Start was called on a running session
	ErrAlreadyStarted = errors.New("stream: session already started")
)

// ErrorCategory classifies read/connect failures for telemetry
type ErrorCategory int

const (
	// ErrCategoryNetwork indicates network-related failures (connection, timeout, DNS)
	ErrCategoryNetwork ErrorCategory = iota
	// ErrCategoryCodec indicates codec/stream failures (decode errors, format issues)
	ErrCategoryCodec
	// ErrCategoryAuth indicates authentication/authorization failures
	ErrCategoryAuth
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryNetwork:
		return "network"
	case ErrCategoryCodec:
		return "codec"
	case ErrCategoryAuth:
		return "auth"
	default:
		return "unknown"
	}
}

var (
	authKeywords = []string{
		"unauthorized", "401", "403", "forbidden",
		"authentication", "credentials", "password", "username",
	}
	codecKeywords = []string{
		"codec", "decode", "format", "negotiation", "caps",
		"h264", "h265", "mjpeg", "not negotiated", "no decoder",
		"missing plugin",
	}
	networkKeywords = []string{
		"connection", "timeout", "deadline", "unreachable", "network",
		"dns", "resolve", "socket", "tcp", "udp", "rtsp",
		"could not connect", "failed to connect", "end of stream", "eof",
	}
)

// Classify categorizes an error for telemetry counters.
//
// Classification is heuristic: the source is an opaque collaborator, so we
// rely on message keywords the same way the underlying media stacks report
// them. Auth is checked first (most specific), then codec, then network.
func Classify(err error) ErrorCategory {
	if err == nil {
		return ErrCategoryUnknown
	}

	msg := strings.ToLower(err.Error())

	if containsAny(msg, authKeywords) {
		return ErrCategoryAuth
	}
	if containsAny(msg, codecKeywords) {
		return ErrCategoryCodec
	}
	if containsAny(msg, networkKeywords) {
		return ErrCategoryNetwork
	}
	return ErrCategoryUnknown
}

func containsAny(msg string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
