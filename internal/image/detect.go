// Package image validates downloaded artwork before it is stored.
package image

import (
	"bytes"
	"fmt"
	"image"
	"io"

	// Stdlib decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	// Extended decoders for formats some providers serve.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Known image formats as reported by DetectFormat.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatGIF  = "gif"
	FormatBMP  = "bmp"
	FormatWebP = "webp"
)

// DetectFormat decodes just enough of the stream to identify the image
// format and dimensions.
func DetectFormat(r io.Reader) (format string, width, height int, err error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return "", 0, 0, fmt.Errorf("decoding image header: %w", err)
	}
	return format, cfg.Width, cfg.Height, nil
}

// Validate checks that data is a non-empty, decodable image and returns its
// format. Providers occasionally serve zero-byte files or HTML error pages
// with an image content type; those must not end up in the asset directory.
func Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image payload")
	}
	format, w, h, err := DetectFormat(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if w <= 0 || h <= 0 {
		return "", fmt.Errorf("invalid image dimensions %dx%d", w, h)
	}
	return format, nil
}

// ExtensionFor returns the conventional file extension (without dot) for a
// detected format, defaulting to jpg for unknown formats.
func ExtensionFor(format string) string {
	switch format {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpg"
	case FormatGIF:
		return "gif"
	case FormatBMP:
		return "bmp"
	case FormatWebP:
		return "webp"
	default:
		return "jpg"
	}
}
