package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/obedfeni/v80-cam/internal/events"
)

// Session owns the lifecycle of one connection to a video source.
//
// It runs a continuous decode loop against a Source and publishes the newest
// frame. The run-loop goroutine is the only writer of the latest frame; the
// frame is replaced whole on every successful read and readers always receive
// an independent copy via Snapshot. Transient read stalls are recovered with
// exponential-backoff reconnection; exhausting the budget is terminal and
// requires an explicit restart.
//
// Only one Session should be alive at a time per running instance.
type Session struct {
	cfg Config
	src Source
	bus *events.Bus

	mu          sync.RWMutex
	latest      *Frame
	status      Status
	statusMsg   string
	cancel      context.CancelFunc
	lastFrameAt time.Time
	started     time.Time

	wg      sync.WaitGroup
	running atomic.Bool

	// Counters (atomic for thread-safety)
	frameCount    atomic.Uint64
	failures      atomic.Int64
	reconnects    atomic.Uint32
	errorsNetwork atomic.Uint64
	errorsCodec   atomic.Uint64
	errorsAuth    atomic.Uint64
	errorsUnknown atomic.Uint64
}

// NewSession creates a session with fail-fast validation.
//
// The bus may be nil; events are then published to a private bus nobody
// listens on.
func NewSession(cfg Config, src Source, bus *events.Bus) (*Session, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("stream: source URL is required")
	}
	if src == nil {
		return nil, fmt.Errorf("stream: source is required")
	}
	if bus == nil {
		bus = events.New()
	}

	s := &Session{
		cfg:    cfg.withDefaults(),
		src:    src,
		bus:    bus,
		status: StatusIdle,
	}

	slog.Info("stream: session created",
		"quality", s.cfg.Quality.String(),
		"frame_interval", s.cfg.FrameInterval,
		"failure_threshold", s.cfg.FailureThreshold,
		"max_reconnects", s.cfg.Reconnect.MaxRetries,
	)
	return s, nil
}

// Start opens the source and launches the decode loop.
//
// An open failure is fatal to session start: it is returned wrapped in
// ErrConnect, the run loop is never entered, and the session stays idle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		if s.running.Load() {
			return ErrAlreadyStarted
		}
		// Terminal (lost) session being explicitly re-activated
		s.cancel = nil
	}

	url := EffectiveURL(s.cfg.URL, s.cfg.Quality)
	s.setStatusLocked(StatusConnecting, "connecting to camera")

	openCtx, cancelOpen := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	err := s.src.Open(openCtx, url)
	cancelOpen()
	if err != nil {
		s.countError(err)
		s.setStatusLocked(StatusIdle, fmt.Sprintf("connect failed: %v", err))
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = time.Now()
	s.failures.Store(0)
	s.running.Store(true)
	s.setStatusLocked(StatusConnected, "camera connected, streaming")

	s.wg.Add(1)
	go s.run(runCtx)

	slog.Info("stream: session started", "quality", s.cfg.Quality.String())
	return nil
}

// run is the decode loop. It is the single writer of the latest frame.
func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()
	defer s.running.Store(false)

	for {
		// Cooperative cancellation, checked once per iteration
		select {
		case <-ctx.Done():
			return
		default:
		}

		readCtx, cancelRead := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		frame, err := s.src.Read(readCtx)
		cancelRead()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			err = fmt.Errorf("%w: %v", ErrReadStall, err)
			n := s.failures.Add(1)
			s.countError(err)
			slog.Debug("stream: read failed",
				"error", err,
				"consecutive_failures", n,
				"threshold", s.cfg.FailureThreshold,
			)
			if int(n) < s.cfg.FailureThreshold {
				continue
			}
			if !s.reconnect(ctx) {
				// Terminal: release the handle, keep the last frame for display
				_ = s.src.Close()
				return
			}
			s.failures.Store(0)
			continue
		}

		s.failures.Store(0)
		s.frameCount.Add(1)

		s.mu.Lock()
		f := frame
		s.latest = &f
		s.lastFrameAt = f.Timestamp
		s.mu.Unlock()

		s.bus.Publish(events.Event{Kind: events.KindFrame, Data: frame})

		// Pacing sleep caps the effective frame rate
		if s.cfg.FrameInterval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.FrameInterval):
			}
		}
	}
}

// reconnect closes the source and reopens it from scratch with exponential
// backoff. Returns true once reopened; false when the budget is exhausted
// (status Lost) or the context is cancelled.
func (s *Session) reconnect(ctx context.Context) bool {
	url := EffectiveURL(s.cfg.URL, s.cfg.Quality)
	cfg := s.cfg.Reconnect

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		if attempt > cfg.MaxRetries {
			msg := fmt.Sprintf("connection lost, gave up after %d attempts", cfg.MaxRetries)
			s.setStatus(StatusLost, msg)
			slog.Error("stream: reconnect budget exhausted",
				"attempts", cfg.MaxRetries,
				"frames_decoded", s.frameCount.Load(),
			)
			return false
		}

		s.reconnects.Add(1)
		delay := backoffDelay(attempt, cfg)
		s.setStatus(StatusRetrying, fmt.Sprintf(
			"connection lost, retrying (attempt %d/%d)", attempt, cfg.MaxRetries))
		slog.Warn("stream: reconnecting",
			"attempt", attempt,
			"max_retries", cfg.MaxRetries,
			"delay", delay,
		)

		_ = s.src.Close()

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		openCtx, cancelOpen := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		err := s.src.Open(openCtx, url)
		cancelOpen()
		if err == nil {
			s.setStatus(StatusConnected, "camera reconnected, streaming")
			slog.Info("stream: reconnected", "attempt", attempt)
			return true
		}
		s.countError(err)
		slog.Warn("stream: reopen failed", "attempt", attempt, "error", err)
	}
}

// Snapshot returns an independent copy of the most recently decoded frame.
// The second return is false until the first successful read.
func (s *Session) Snapshot() (Frame, bool) {
	s.mu.RLock()
	f := s.latest
	s.mu.RUnlock()

	if f == nil {
		return Frame{}, false
	}

	out := *f
	out.Data = make([]byte, len(f.Data))
	copy(out.Data, f.Data)
	return out, true
}

// Running reports whether the decode loop is active
func (s *Session) Running() bool {
	return s.running.Load()
}

// Status returns the current connection status and its human-readable message
func (s *Session) Status() (Status, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.statusMsg
}

// Err returns ErrRetriesExhausted once the reconnect budget is spent and
// the session is lost, nil in every other state.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status == StatusLost {
		return ErrRetriesExhausted
	}
	return nil
}

// ConsecutiveFailures returns the current run of failed reads
func (s *Session) ConsecutiveFailures() int {
	return int(s.failures.Load())
}

// Stats returns a snapshot of session statistics. Thread-safe.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	status := s.status
	lastFrameAt := s.lastFrameAt
	started := s.started
	s.mu.RUnlock()

	frameCount := s.frameCount.Load()
	var fpsReal float64
	if !started.IsZero() {
		if uptime := time.Since(started).Seconds(); uptime > 0 {
			fpsReal = float64(frameCount) / uptime
		}
	}

	return Stats{
		FrameCount:          frameCount,
		ConsecutiveFailures: int(s.failures.Load()),
		Reconnects:          s.reconnects.Load(),
		Status:              status,
		LastFrameAt:         lastFrameAt,
		FPSReal:             fpsReal,
		ErrorsNetwork:       s.errorsNetwork.Load(),
		ErrorsCodec:         s.errorsCodec.Load(),
		ErrorsAuth:          s.errorsAuth.Load(),
		ErrorsUnknown:       s.errorsUnknown.Load(),
	}
}

// Stop deactivates the session: cancels the decode loop, waits for it to
// exit, releases the source handle and clears the latest frame.
// Idempotent - safe to call on an already-stopped session.
func (s *Session) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		slog.Debug("stream: session not started, nothing to stop")
		return nil
	}

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		slog.Warn("stream: stop timeout exceeded, decode loop may still be running")
	}

	_ = s.src.Close()

	s.mu.Lock()
	s.latest = nil
	s.setStatusLocked(StatusStopped, "stream stopped")
	s.mu.Unlock()

	slog.Info("stream: session stopped",
		"frames_decoded", s.frameCount.Load(),
		"reconnects", s.reconnects.Load(),
	)
	return nil
}

func (s *Session) setStatus(status Status, msg string) {
	s.mu.Lock()
	s.setStatusLocked(status, msg)
	s.mu.Unlock()
}

// setStatusLocked updates the status and publishes the transition.
// Caller must hold s.mu.
func (s *Session) setStatusLocked(status Status, msg string) {
	s.status = status
	s.statusMsg = msg
	s.bus.Publish(events.Event{
		Kind: events.KindStatus,
		Data: StatusChange{Status: status, Message: msg},
	})
	slog.Debug("stream: status", "status", status.String(), "message", msg)
}

func (s *Session) countError(err error) {
	switch Classify(err) {
	case ErrCategoryNetwork:
		s.errorsNetwork.Add(1)
	case ErrCategoryCodec:
		s.errorsCodec.Add(1)
	case ErrCategoryAuth:
		s.errorsAuth.Add(1)
	default:
		s.errorsUnknown.Add(1)
	}
}
