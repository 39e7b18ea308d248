package gstsource

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/obedfeni/v80-cam/internal/stream"
)

// onNewSample pulls a decoded sample from the appsink, copies the pixel data
// (GStreamer reuses the buffer) and hands the newest frame to the channel,
// replacing any undelivered older one.
func onNewSample(sink *app.Sink, frames chan stream.Frame, seq *atomic.Uint64, width, height int) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		// A single corrupt frame must not kill the stream
		slog.Warn("gstsource: failed to pull sample, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("gstsource: failed to get buffer from sample, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("gstsource: empty buffer received")
		return gst.FlowOK
	}

	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	frame := stream.Frame{
		Seq:       seq.Add(1),
		Timestamp: time.Now(),
		Width:     width,
		Height:    height,
		Data:      frameData,
		TraceID:   uuid.New().String(),
	}

	// Depth-1 handoff: replace the undelivered frame rather than queueing,
	// a stale frame would defeat a live capture
	select {
	case frames <- frame:
	default:
		select {
		case <-frames:
		default:
		}
		select {
		case frames <- frame:
		default:
		}
	}

	return gst.FlowOK
}

// onPadAdded links the dynamic rtspsrc output pad to the depayloader once
// the stream is negotiated.
func onPadAdded(srcPad *gst.Pad, depay *gst.Element) {
	sinkPad := depay.GetStaticPad("sink")
	if sinkPad == nil {
		slog.Error("gstsource: failed to get sink pad from depayloader")
		return
	}
	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		slog.Error("gstsource: failed to link pads",
			"src_pad", srcPad.GetName(),
			"ret", ret,
		)
		return
	}
	slog.Debug("gstsource: pads linked", "src_pad", srcPad.GetName())
}
