package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/obedfeni/v80-cam/internal/capture"
)

type handlers struct {
	app *App
}

func newHandlers(app *App) *handlers {
	return &handlers{app: app}
}

func (h *handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "v80-cam",
		"time":    time.Now().Unix(),
	})
}

// StartStream opens the camera session. A second start while one is
// running is a conflict, not an error to retry.
func (h *handlers) StartStream(c *gin.Context) {
	err := h.app.StartStream(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"message":   "stream started",
			"timestamp": time.Now().Unix(),
		})
	case errors.Is(err, ErrStreamRunning):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "conflict",
			"message": "stream already running",
		})
	default:
		slog.Error("web: stream start failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "connect failed",
			"message": err.Error(),
		})
	}
}

// StopStream shuts the session down. Stopping an idle service is a clean
// no-op.
func (h *handlers) StopStream(c *gin.Context) {
	err := h.app.StopStream()
	if errors.Is(err, ErrStreamNotRunning) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "no active stream",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "stream stopped",
		"timestamp": time.Now().Unix(),
	})
}

// Status reports the session state, stream statistics and the last capture
// result in one response.
func (h *handlers) Status(c *gin.Context) {
	sess := h.app.Session()
	if sess == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":    "idle",
			"running":   false,
			"timestamp": time.Now().Unix(),
		})
		return
	}

	status, message := sess.Status()
	stats := sess.Stats()

	body := gin.H{
		"status":    status.String(),
		"message":   message,
		"running":   sess.Running(),
		"timestamp": time.Now().Unix(),
		"stream": gin.H{
			"frame_count":          stats.FrameCount,
			"consecutive_failures": stats.ConsecutiveFailures,
			"reconnects":           stats.Reconnects,
			"last_frame_at":        stats.LastFrameAt,
			"errors": gin.H{
				"network": stats.ErrorsNetwork,
				"codec":   stats.ErrorsCodec,
				"auth":    stats.ErrorsAuth,
				"unknown": stats.ErrorsUnknown,
			},
		},
	}

	if ctrl := h.app.Controller(); ctrl != nil {
		if last, ok := ctrl.LastResult(); ok {
			body["last_capture"] = last
		}
		body["capturing"] = ctrl.Busy()
	}

	c.JSON(http.StatusOK, body)
}

// Snapshot encodes the latest frame on demand. The session keeps raw RGB,
// so every snapshot request pays one JPEG encode.
func (h *handlers) Snapshot(c *gin.Context) {
	sess := h.app.Session()
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "no stream",
			"message": "start the stream first",
		})
		return
	}

	frame, ok := sess.Snapshot()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "no frame",
			"message": "no frame decoded yet",
		})
		return
	}

	data, err := capture.EncodeJPEG(frame, h.app.cfg.Capture.JPEGQuality)
	if err != nil {
		slog.Error("web: snapshot encode failed", "error", err, "frame_seq", frame.Seq)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "encode failed",
			"message": err.Error(),
		})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/jpeg", data)
}

// Capture triggers one capture-and-upload. Busy and no-frame outcomes map
// to conflict and not-found; encode and upload failures come back as a
// failed result body, not an HTTP error, because the service itself worked.
func (h *handlers) Capture(c *gin.Context) {
	ctrl := h.app.Controller()
	if ctrl == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "no stream",
			"message": "start the stream first",
		})
		return
	}

	res, err := ctrl.Capture(c.Request.Context())
	switch {
	case errors.Is(err, capture.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "busy",
			"message": "a capture is already in flight",
		})
	case errors.Is(err, capture.ErrNoFrame):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "no frame",
			"message": "no frame available to capture",
		})
	case err != nil:
		slog.Error("web: capture failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "capture failed",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusOK, res)
	}
}
