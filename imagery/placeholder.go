package imagery

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
)

const (
	maxWidth    = 800
	maxHeight   = 600
	jpegQuality = 85
)

var (
	defaultOnce  sync.Once
	defaultBytes []byte
)

// DefaultPlaceholder is a neutral 800x600 JPEG. The bytes are identical on every call.
func DefaultPlaceholder() []byte {
	defaultOnce.Do(func() {
		bg := imaging.New(maxWidth, maxHeight, color.NRGBA{R: 0xe8, G: 0xe4, B: 0xdc, A: 0xff})
		band := imaging.New(maxWidth, maxHeight/6, color.NRGBA{R: 0xc9, G: 0xa9, B: 0x6e, A: 0xff})
		img := imaging.Paste(bg, band, image.Pt(0, maxHeight-maxHeight/6))
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			panic(fmt.Sprintf("encoding default placeholder: %v", err))
		}
		defaultBytes = buf.Bytes()
	})
	return defaultBytes
}

// LoadPlaceholder reads an image file and normalizes it like a downloaded photo.
func LoadPlaceholder(path string) ([]byte, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("opening placeholder %s: %w", path, err)
	}
	return encode(img)
}

// Normalize decodes any supported image, fits it within 800x600 and
// re-encodes it as JPEG, which also drops EXIF metadata.
func Normalize(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return encode(img)
}

func encode(img image.Image) ([]byte, error) {
	img = imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
