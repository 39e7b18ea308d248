package gstsource

import (
	"fmt"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// pipelineElements holds references to the GStreamer elements needed for
// callback wiring and cleanup
type pipelineElements struct {
	pipeline *gst.Pipeline
	appSink  *app.Sink
	rtspSrc  *gst.Element
	depay    *gst.Element
}

// createPipeline builds the decode pipeline for one RTSP endpoint:
//
//	rtspsrc → rtph264depay → avdec_h264 → videoconvert → videoscale →
//	capsfilter(RGB, WxH) → appsink(max-buffers=1, drop)
//
// The appsink keeps only the newest frame so stale frames are never
// delivered. The pipeline is configured but not started; the caller sets it
// to PLAYING.
func createPipeline(url string, width, height int) (*pipelineElements, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	rtspsrc, err := gst.NewElement("rtspsrc")
	if err != nil {
		return nil, fmt.Errorf("failed to create rtspsrc: %w", err)
	}
	rtspsrc.SetProperty("location", url)
	rtspsrc.SetProperty("protocols", 4) // TCP only, consumer cameras drop UDP
	rtspsrc.SetProperty("latency", 200)
	rtspsrc.SetProperty("tcp-timeout", uint64(3000000)) // 3s, microseconds

	depay, err := gst.NewElement("rtph264depay")
	if err != nil {
		return nil, fmt.Errorf("failed to create rtph264depay: %w", err)
	}
	depay.SetProperty("request-keyframe", true)

	decoder, err := gst.NewElement("avdec_h264")
	if err != nil {
		return nil, fmt.Errorf("failed to create avdec_h264: %w", err)
	}
	decoder.SetProperty("max-threads", 0)
	decoder.SetProperty("output-corrupt", false)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoscale: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsStr := fmt.Sprintf("video/x-raw,format=RGB,width=%d,height=%d", width, height)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1) // Keep only the latest frame
	appsink.SetProperty("drop", true)
	appsink.SetProperty("qos", true)

	pipeline.AddMany(
		rtspsrc,
		depay,
		decoder,
		converter,
		scaler,
		capsfilter,
		appsink.Element,
	)

	// rtspsrc has dynamic pads, linked in the pad-added callback
	if err := gst.ElementLinkMany(
		depay,
		decoder,
		converter,
		scaler,
		capsfilter,
		appsink.Element,
	); err != nil {
		return nil, fmt.Errorf("failed to link pipeline elements: %w", err)
	}

	return &pipelineElements{
		pipeline: pipeline,
		appSink:  appsink,
		rtspSrc:  rtspsrc,
		depay:    depay,
	}, nil
}

// destroyPipeline releases pipeline resources. Safe to call twice.
func destroyPipeline(elements *pipelineElements) error {
	if elements == nil || elements.pipeline == nil {
		return nil
	}
	if err := elements.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}
	return nil
}
