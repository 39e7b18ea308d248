package events

import (
	"errors"
	"time"
)

var (
	ErrBusClosed          = errors.New("events: bus is closed")
	ErrSubscriberExists   = errors.New("events: subscriber already exists")
	ErrSubscriberNotFound = errors.New("events: subscriber not found")
	ErrNilChannel         = errors.New("events: nil channel provided")
)

// Kind identifies the class of event flowing through the bus
type Kind int

const (
	// KindFrame is a live frame update from the stream session
	KindFrame Kind = iota
	// KindStatus is a connection status transition
	KindStatus
	// KindCapture is a capture/upload result notification
	KindCapture
)

// String returns a human-readable string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindStatus:
		return "status"
	case KindCapture:
		return "capture"
	default:
		return "unknown"
	}
}

// Event is a single observable occurrence pushed outward by the core.
//
// Data carries the kind-specific payload (stream.Frame, stream.StatusChange
// or capture.Result). The bus never inspects it.
type Event struct {
	Kind Kind
	Seq  uint64
	At   time.Time
	Data any
}

// SubscriberStats tracks event distribution metrics per subscriber
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}
