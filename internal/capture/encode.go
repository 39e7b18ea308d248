package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/obedfeni/v80-cam/internal/stream"
)

// DefaultJPEGQuality is the default still-image compression quality (0-100)
const DefaultJPEGQuality = 90

// EncodeJPEG serializes an RGB24 frame into JPEG bytes.
//
// The frame is validated first: a malformed buffer is an encode error fatal
// to the capture only, never to the session.
func EncodeJPEG(frame stream.Frame, quality int) ([]byte, error) {
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, fmt.Errorf("capture: invalid frame dimensions %dx%d", frame.Width, frame.Height)
	}
	if len(frame.Data) != frame.Width*frame.Height*3 {
		return nil, fmt.Errorf("capture: frame buffer is %d bytes, want %d for %dx%d RGB",
			len(frame.Data), frame.Width*frame.Height*3, frame.Width, frame.Height)
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	img := image.NewNRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		si := y * frame.Width * 3
		di := y * img.Stride
		for x := 0; x < frame.Width; x++ {
			img.Pix[di+0] = frame.Data[si+0]
			img.Pix[di+1] = frame.Data[si+1]
			img.Pix[di+2] = frame.Data[si+2]
			img.Pix[di+3] = 0xff
			si += 3
			di += 4
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("capture: jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}
