package stream

import "time"

// Frame represents a single decoded video frame with metadata
type Frame struct {
	// Seq is the monotonic sequence number
	Seq uint64
	// Timestamp is when the frame was decoded
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Data contains interleaved RGB24 pixel data (Width*Height*3 bytes).
	// Frames are replaced whole, never mutated in place.
	Data []byte
	// TraceID is a unique identifier for tracing a frame through the system
	TraceID string
}

// Status represents the connection state of a session
type Status int

const (
	// StatusIdle means no session is running
	StatusIdle Status = iota
	// StatusConnecting means the source is being opened
	StatusConnecting
	// StatusConnected means the decode loop is running
	StatusConnected
	// StatusRetrying means a transient stall triggered reconnection
	StatusRetrying
	// StatusLost means the reconnect budget was exhausted (terminal)
	StatusLost
	// StatusStopped means the session was deactivated by the user
	StatusStopped
)

// String returns a human-readable string representation of the status
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusRetrying:
		return "retrying"
	case StatusLost:
		return "lost"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status requires explicit user action to resume
func (s Status) Terminal() bool {
	return s == StatusLost || s == StatusStopped
}

// StatusChange is the payload of a status event
type StatusChange struct {
	Status  Status
	Message string
}

// Stats contains a snapshot of session statistics
type Stats struct {
	// FrameCount is the total number of frames decoded
	FrameCount uint64
	// ConsecutiveFailures is the current run of failed reads
	ConsecutiveFailures int
	// Reconnects is the total number of reconnection attempts
	Reconnects uint32
	// Status is the current connection status
	Status Status
	// LastFrameAt is the wall-clock time of the newest frame (zero if none)
	LastFrameAt time.Time
	// FPSReal is the measured frame rate since the session started
	FPSReal float64
	// ErrorsNetwork / ErrorsCodec / ErrorsAuth / ErrorsUnknown count
	// read failures by category
	ErrorsNetwork uint64
	ErrorsCodec   uint64
	ErrorsAuth    uint64
	ErrorsUnknown uint64
}

// Config contains configuration for a stream session
type Config struct {
	// URL is the video source URL (required), credentials embedded
	URL string
	// Quality selects the channel sub-path variant
	Quality Quality
	// ConnectTimeout bounds Open (default 3s)
	ConnectTimeout time.Duration
	// ReadTimeout bounds each per-frame read (default 3s)
	ReadTimeout time.Duration
	// FrameInterval is the inter-frame pacing sleep (default 66ms, ~15 FPS)
	FrameInterval time.Duration
	// FailureThreshold is the number of consecutive read failures that
	// triggers reconnection (default 30)
	FailureThreshold int
	// Reconnect bounds the reconnection escalation
	Reconnect ReconnectConfig
}

const (
	defaultConnectTimeout   = 3 * time.Second
	defaultReadTimeout      = 3 * time.Second
	defaultFrameInterval    = 66 * time.Millisecond
	defaultFailureThreshold = 30
)

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.FrameInterval == 0 {
		c.FrameInterval = defaultFrameInterval
	} else if c.FrameInterval < 0 {
		// Negative disables pacing (tests, benchmarks)
		c.FrameInterval = 0
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = defaultFailureThreshold
	}
	if c.Reconnect.MaxRetries <= 0 {
		c.Reconnect = DefaultReconnectConfig()
	}
	return c
}
