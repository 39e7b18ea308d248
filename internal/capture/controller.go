// Package capture bridges one-shot capture triggers to the upload
// collaborator. A capture takes an independent copy of the newest decoded
// frame, encodes it and stores it remotely; the outcome is always a terminal
// Result value, success or failure, never a fault that escapes the boundary.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/obedfeni/v80-cam/internal/events"
	"github.com/obedfeni/v80-cam/internal/stream"
	"github.com/obedfeni/v80-cam/internal/upload"
)

var (
	// ErrNoFrame means no session is active or no frame has been decoded
	// yet: there is nothing to capture. The last result is left untouched.
	ErrNoFrame = errors.New("capture: nothing to capture")
	// ErrBusy means a previous capture's upload is still in flight.
	// New requests are rejected, not queued.
	ErrBusy = errors.New("capture: capture already in flight")
)

// FrameProvider is the slice of the stream session the controller needs
type FrameProvider interface {
	// Snapshot returns an independent copy of the latest frame
	Snapshot() (stream.Frame, bool)
	// Running reports whether the decode loop is active
	Running() bool
}

// Result records the outcome of one serviced capture request.
// Only the most recent result is kept - no history.
type Result struct {
	OK       bool      `json:"ok"`
	URL      string    `json:"url,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	PublicID string    `json:"public_id"`
	At       time.Time `json:"at"`
}

// Config contains capture policy knobs
type Config struct {
	// JPEGQuality is the still-image compression quality (default 90)
	JPEGQuality int
	// Folder is the remote destination folder (default "v380_camera")
	Folder string
	// PublicIDPrefix prefixes derived upload identifiers (default "v380")
	PublicIDPrefix string
	// UploadTimeout bounds the upload round trip (default 30s)
	UploadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = DefaultJPEGQuality
	}
	if c.Folder == "" {
		c.Folder = "v380_camera"
	}
	if c.PublicIDPrefix == "" {
		c.PublicIDPrefix = "v380"
	}
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = 30 * time.Second
	}
	return c
}

// Controller services capture requests against a frame provider.
// At most one capture is in flight per controller (Idle -> Capturing -> Idle).
type Controller struct {
	cfg      Config
	frames   FrameProvider
	uploader upload.Uploader
	bus      *events.Bus

	busy atomic.Bool
	tick atomic.Uint32

	mu   sync.RWMutex
	last *Result
}

// NewController creates a controller with fail-fast validation.
// The bus may be nil; capture events are then dropped.
func NewController(cfg Config, frames FrameProvider, up upload.Uploader, bus *events.Bus) (*Controller, error) {
	if frames == nil {
		return nil, fmt.Errorf("capture: frame provider is required")
	}
	if up == nil {
		return nil, fmt.Errorf("capture: uploader is required")
	}
	if bus == nil {
		bus = events.New()
	}
	return &Controller{
		cfg:      cfg.withDefaults(),
		frames:   frames,
		uploader: up,
		bus:      bus,
	}, nil
}

// Capture services one capture request.
//
// Precondition failures are reported as errors and mutate nothing:
// ErrNoFrame when no session is active or no frame exists yet, ErrBusy when
// a previous upload is still in flight. A serviced request always returns a
// terminal Result - encode and upload failures become a failed Result, they
// are never raised past this boundary.
func (c *Controller) Capture(ctx context.Context) (Result, error) {
	if !c.frames.Running() {
		return Result{}, ErrNoFrame
	}
	frame, ok := c.frames.Snapshot()
	if !ok {
		return Result{}, ErrNoFrame
	}

	if !c.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer c.busy.Store(false)

	publicID := c.publicID(time.Now())

	data, err := EncodeJPEG(frame, c.cfg.JPEGQuality)
	if err != nil {
		slog.Error("capture: encode failed", "public_id", publicID, "error", err)
		return c.record(Result{
			PublicID: publicID,
			Reason:   err.Error(),
			At:       time.Now(),
		}), nil
	}

	uploadCtx, cancel := context.WithTimeout(ctx, c.cfg.UploadTimeout)
	defer cancel()

	url, err := c.uploader.Upload(uploadCtx, data, publicID, c.cfg.Folder)
	if err != nil {
		slog.Error("capture: upload failed",
			"public_id", publicID,
			"frame_seq", frame.Seq,
			"error", err,
		)
		return c.record(Result{
			PublicID: publicID,
			Reason:   err.Error(),
			At:       time.Now(),
		}), nil
	}

	slog.Info("capture: uploaded",
		"public_id", publicID,
		"frame_seq", frame.Seq,
		"bytes", len(data),
		"url", url,
	)
	return c.record(Result{
		OK:       true,
		URL:      url,
		PublicID: publicID,
		At:       time.Now(),
	}), nil
}

// LastResult returns the most recent capture outcome, if any
func (c *Controller) LastResult() (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}

// Busy reports whether a capture is currently in flight
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// publicID derives a unique upload identifier from coarse wall-clock time
// plus a monotonic tick, so rapid successive captures within the same
// second cannot collide.
func (c *Controller) publicID(now time.Time) string {
	tick := c.tick.Add(1) % 1000
	return fmt.Sprintf("%s_%s_%03d", c.cfg.PublicIDPrefix, now.Format("20060102_150405"), tick)
}

func (c *Controller) record(r Result) Result {
	c.mu.Lock()
	c.last = &r
	c.mu.Unlock()

	c.bus.Publish(events.Event{Kind: events.KindCapture, Data: r})
	return r
}
