package capture

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/obedfeni/v80-cam/internal/stream"
)

func rgbFrame(w, h int, r, g, b byte) stream.Frame {
	data := make([]byte, w*h*3)
	for i := 0; i < len(data); i += 3 {
		data[i] = r
		data[i+1] = g
		data[i+2] = b
	}
	return stream.Frame{Seq: 1, Timestamp: time.Now(), Width: w, Height: h, Data: data}
}

// TestEncodeJPEGRoundTrip verifies a synthetic frame survives encode/decode
// within lossy-compression tolerance.
func TestEncodeJPEGRoundTrip(t *testing.T) {
	const w, h = 32, 24
	frame := rgbFrame(w, h, 200, 50, 100)

	data, err := EncodeJPEG(frame, 90)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatal("output does not start with JPEG SOI marker")
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding produced bytes failed: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != w || bounds.Dy() != h {
		t.Fatalf("decoded size %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), w, h)
	}

	const tolerance = 12
	for _, pt := range []image.Point{{0, 0}, {w / 2, h / 2}, {w - 1, h - 1}} {
		r, g, b, _ := img.At(pt.X, pt.Y).RGBA()
		checkClose(t, "R", pt, int(r>>8), 200, tolerance)
		checkClose(t, "G", pt, int(g>>8), 50, tolerance)
		checkClose(t, "B", pt, int(b>>8), 100, tolerance)
	}
}

func checkClose(t *testing.T, channel string, pt image.Point, got, want, tolerance int) {
	t.Helper()
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		t.Errorf("pixel %v channel %s = %d, want %d±%d", pt, channel, got, want, tolerance)
	}
}

// TestEncodeJPEGValidation verifies malformed frames are rejected before
// encoding.
func TestEncodeJPEGValidation(t *testing.T) {
	tests := []struct {
		name  string
		frame stream.Frame
	}{
		{
			name:  "zero dimensions",
			frame: stream.Frame{Width: 0, Height: 0},
		},
		{
			name:  "negative width",
			frame: stream.Frame{Width: -1, Height: 10, Data: make([]byte, 30)},
		},
		{
			name:  "short buffer",
			frame: stream.Frame{Width: 4, Height: 4, Data: make([]byte, 10)},
		},
		{
			name:  "nil buffer",
			frame: stream.Frame{Width: 4, Height: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeJPEG(tt.frame, 90); err == nil {
				t.Error("EncodeJPEG accepted malformed frame")
			}
		})
	}
}

// TestEncodeJPEGQualityFallback verifies out-of-range quality falls back to
// the default instead of failing the capture.
func TestEncodeJPEGQualityFallback(t *testing.T) {
	frame := rgbFrame(8, 8, 10, 20, 30)
	for _, q := range []int{-1, 0, 101} {
		if _, err := EncodeJPEG(frame, q); err != nil {
			t.Errorf("EncodeJPEG(quality=%d) failed: %v", q, err)
		}
	}
}
