package capture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// UploadQuality is the JPEG quality used when preparing a capture for
// classification.
const UploadQuality = 90

// Image is a decoded capture and its scratch file.
type Image struct {
	Path       string
	Data       []byte // file contents as written by the camera
	Format     string // decoder name: jpeg, png, gif, bmp, tiff, webp
	Width      int
	Height     int
	CapturedAt time.Time

	decoded image.Image
}

// Decode validates data as an image.
func Decode(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrDecode)
	}

	m, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := m.Bounds()
	return &Image{
		Data:    data,
		Format:  format,
		Width:   b.Dx(),
		Height:  b.Dy(),
		decoded: m,
	}, nil
}

// Encode re-encodes the decoded photo as JPEG at the given quality.
func (i *Image) Encode(quality int) ([]byte, error) {
	if i.decoded == nil {
		return nil, fmt.Errorf("%w: image not decoded", ErrDecode)
	}

	var buf bytes.Buffer
	buf.Grow(len(i.Data))
	if err := jpeg.Encode(&buf, i.decoded, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("capture: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
