// Package gstsource implements the stream.Source contract on top of
// GStreamer (go-gst), decoding H.264 RTSP streams from consumer IP cameras
// into raw RGB frames.
package gstsource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/obedfeni/v80-cam/internal/stream"
)

// Source is a reusable RTSP frame source: Open builds and starts a decode
// pipeline, Read pulls the newest decoded frame, Close tears the pipeline
// down. Close then Open reconnects from scratch.
type Source struct {
	width  int
	height int

	mu       sync.Mutex
	elements *pipelineElements
	frames   chan stream.Frame
	errCh    chan error
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	seq      atomic.Uint64
}

// NewSource creates a source with fail-fast validation.
//
// Construction verifies GStreamer availability so misconfigured hosts fail
// at load time, not mid-session.
func NewSource(width, height int) (*Source, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gstsource: invalid resolution %dx%d", width, height)
	}
	if err := checkGStreamerAvailable(); err != nil {
		return nil, fmt.Errorf("gstsource: GStreamer not available: %w", err)
	}
	return &Source{width: width, height: height}, nil
}

// Open builds the pipeline for url and waits for it to start playing,
// bounded by ctx.
func (s *Source) Open(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.elements != nil {
		return fmt.Errorf("gstsource: already open")
	}

	elements, err := createPipeline(url, s.width, s.height)
	if err != nil {
		return fmt.Errorf("gstsource: create pipeline: %w", err)
	}

	frames := make(chan stream.Frame, 1)
	s.frames = frames
	s.errCh = make(chan error, 1)

	elements.appSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return onNewSample(sink, frames, &s.seq, s.width, s.height)
		},
	})

	elements.rtspSrc.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		onPadAdded(srcPad, elements.depay)
	})

	if err := elements.pipeline.SetState(gst.StatePlaying); err != nil {
		_ = destroyPipeline(elements)
		return fmt.Errorf("gstsource: start pipeline: %w", err)
	}

	if err := s.waitPlaying(ctx, elements); err != nil {
		_ = destroyPipeline(elements)
		return err
	}

	s.elements = elements

	watchCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.watchBus(watchCtx, elements)

	slog.Info("gstsource: pipeline playing",
		"resolution", fmt.Sprintf("%dx%d", s.width, s.height),
	)
	return nil
}

// waitPlaying polls the pipeline bus until the PLAYING transition, a
// pipeline error, or the context deadline.
func (s *Source) waitPlaying(ctx context.Context, elements *pipelineElements) error {
	bus := elements.pipeline.GetPipelineBus()
	for {
		if ctx.Err() != nil {
			return fmt.Errorf("gstsource: open timed out: %w", ctx.Err())
		}
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageError:
			gerr := msg.ParseError()
			return fmt.Errorf("gstsource: pipeline error: %s", gerr.Error())
		case gst.MessageEOS:
			return fmt.Errorf("gstsource: end of stream before playing")
		case gst.MessageStateChanged:
			if msg.Source() == elements.pipeline.GetName() {
				_, newState := msg.ParseStateChanged()
				if newState == gst.StatePlaying {
					return nil
				}
			}
		}
	}
}

// watchBus forwards pipeline errors to Read. One error is enough: the
// session closes and reopens the source on escalation.
func (s *Source) watchBus(ctx context.Context, elements *pipelineElements) {
	defer s.wg.Done()
	bus := elements.pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			s.reportError(fmt.Errorf("end of stream"))
			return
		case gst.MessageError:
			gerr := msg.ParseError()
			slog.Error("gstsource: pipeline error",
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
			)
			s.reportError(fmt.Errorf("pipeline error: %s", gerr.Error()))
			return
		}
	}
}

func (s *Source) reportError(err error) {
	select {
	case s.errCh <- err:
	default:
	}
}

// Read returns the newest decoded frame, a pipeline error, or the context
// error, whichever happens first.
func (s *Source) Read(ctx context.Context) (stream.Frame, error) {
	s.mu.Lock()
	frames := s.frames
	errCh := s.errCh
	s.mu.Unlock()

	if frames == nil {
		return stream.Frame{}, fmt.Errorf("gstsource: not open")
	}

	select {
	case <-ctx.Done():
		return stream.Frame{}, ctx.Err()
	case err := <-errCh:
		return stream.Frame{}, err
	case frame := <-frames:
		return frame, nil
	}
}

// Close tears down the pipeline. Idempotent.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.elements == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.wg.Wait()

	err := destroyPipeline(s.elements)
	s.elements = nil
	s.frames = nil
	s.errCh = nil

	if err != nil {
		slog.Error("gstsource: failed to destroy pipeline", "error", err)
		return err
	}
	slog.Debug("gstsource: pipeline destroyed")
	return nil
}

// checkGStreamerAvailable verifies the runtime can create elements at all
func checkGStreamerAvailable() error {
	gst.Init(nil)
	elem, err := gst.NewElement("fakesrc")
	if err != nil {
		return fmt.Errorf("GStreamer not available or not properly installed: %w", err)
	}
	elem.SetState(gst.StateNull)
	return nil
}
