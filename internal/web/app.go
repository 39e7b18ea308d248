// Package web exposes the camera service over HTTP: session lifecycle,
// status, on-demand snapshots, capture triggering and a websocket event
// feed.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/obedfeni/v80-cam/internal/capture"
	"github.com/obedfeni/v80-cam/internal/config"
	"github.com/obedfeni/v80-cam/internal/events"
	"github.com/obedfeni/v80-cam/internal/stream"
	"github.com/obedfeni/v80-cam/internal/upload"
)

var (
	ErrStreamRunning    = errors.New("stream already running")
	ErrStreamNotRunning = errors.New("no active stream")
)

// SourceFactory builds a fresh frame source per session. Sessions own their
// source for its whole lifetime, so a stopped session's source is never
// reused.
type SourceFactory func() (stream.Source, error)

// App owns the single camera session and its capture controller.
type App struct {
	cfg       *config.Config
	bus       *events.Bus
	uploader  upload.Uploader
	newSource SourceFactory

	mu         sync.Mutex
	session    *stream.Session
	controller *capture.Controller
}

// NewApp wires the application with fail-fast validation.
func NewApp(cfg *config.Config, newSource SourceFactory, uploader upload.Uploader, bus *events.Bus) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("web: config is required")
	}
	if newSource == nil {
		return nil, fmt.Errorf("web: source factory is required")
	}
	if uploader == nil {
		return nil, fmt.Errorf("web: uploader is required")
	}
	if bus == nil {
		bus = events.New()
	}
	return &App{
		cfg:       cfg,
		bus:       bus,
		uploader:  uploader,
		newSource: newSource,
	}, nil
}

// StartStream opens a new session. One session at a time: a second start
// while one is running fails with ErrStreamRunning.
func (a *App) StartStream(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil && a.session.Running() {
		return ErrStreamRunning
	}
	if a.session != nil {
		// Stale handle from a lost or stopped session
		a.session.Stop()
		a.session = nil
		a.controller = nil
	}

	src, err := a.newSource()
	if err != nil {
		return fmt.Errorf("web: create source: %w", err)
	}

	quality := stream.QualityLow
	if a.cfg.Camera.Quality == "high" {
		quality = stream.QualityHigh
	}

	sess, err := stream.NewSession(stream.Config{
		URL:              a.cfg.Camera.URL,
		Quality:          quality,
		ConnectTimeout:   a.cfg.Camera.ConnectTimeout,
		ReadTimeout:      a.cfg.Camera.ReadTimeout,
		FrameInterval:    a.cfg.Camera.FrameInterval,
		FailureThreshold: a.cfg.Camera.FailureThreshold,
		Reconnect: stream.ReconnectConfig{
			MaxRetries:    a.cfg.Reconnect.MaxRetries,
			RetryDelay:    a.cfg.Reconnect.RetryDelay,
			MaxRetryDelay: a.cfg.Reconnect.MaxRetryDelay,
		},
	}, src, a.bus)
	if err != nil {
		return fmt.Errorf("web: create session: %w", err)
	}

	ctrl, err := capture.NewController(capture.Config{
		JPEGQuality:    a.cfg.Capture.JPEGQuality,
		Folder:         a.cfg.Capture.Folder,
		PublicIDPrefix: a.cfg.Capture.PublicIDPrefix,
		UploadTimeout:  a.cfg.Capture.UploadTimeout,
	}, sess, a.uploader, a.bus)
	if err != nil {
		return fmt.Errorf("web: create capture controller: %w", err)
	}

	// The session outlives the request that started it
	if err := sess.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	a.session = sess
	a.controller = ctrl
	slog.Info("web: stream started", "quality", a.cfg.Camera.Quality)
	return nil
}

// StopStream shuts the session down. Stopping an already stopped app
// returns ErrStreamNotRunning so the caller can report a clean no-op.
func (a *App) StopStream() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return ErrStreamNotRunning
	}
	a.session.Stop()
	a.session = nil
	a.controller = nil
	slog.Info("web: stream stopped")
	return nil
}

// Session returns the current session, nil when none is active.
func (a *App) Session() *stream.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Controller returns the capture controller of the current session.
func (a *App) Controller() *capture.Controller {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.controller
}

// Shutdown stops everything. Used by the process signal handler.
func (a *App) Shutdown() {
	if err := a.StopStream(); err != nil && !errors.Is(err, ErrStreamNotRunning) {
		slog.Error("web: shutdown stop failed", "error", err)
	}
	a.bus.Close()
}
