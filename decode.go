package quadjpeg

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"strings"

	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// sniffLen is the number of bytes net/http looks at to detect a type.
const sniffLen = 512

// DefaultMaxPixels is the pixel limit applied by [Decode].
const DefaultMaxPixels = 64 << 20

// Decode reads one image from r with the [DefaultMaxPixels] limit.
func Decode(r io.Reader, contentType string) (image.Image, string, error) {
	return DecodeLimit(r, contentType, DefaultMaxPixels)
}

// DecodeLimit reads one image from r. contentType is the media type the
// caller was given for the data; anything outside image/* is rejected with
// [ErrInvalidInput] without decoding. An empty or generic type is replaced
// by sniffing the data. It returns the image and its format name.
//
// The header is read first, and an image of more than maxPixels pixels
// fails with [ErrTooLarge] before any pixel memory is allocated. A
// maxPixels of zero or less disables the check.
func DecodeLimit(r io.Reader, contentType string, maxPixels int64) (image.Image, string, error) {
	br := bufio.NewReaderSize(r, sniffLen)

	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		head, _ := br.Peek(sniffLen)
		mediaType, _, _ = strings.Cut(http.DetectContentType(head), ";")
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, "", fmt.Errorf("%w: content type %q", ErrInvalidInput, mediaType)
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, "", fmt.Errorf("quadjpeg: read image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrInvalidInput, mediaType, err)
	}
	if n := int64(cfg.Width) * int64(cfg.Height); maxPixels > 0 && n > maxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d is over %d pixels", ErrTooLarge, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrInvalidInput, mediaType, err)
	}
	return img, format, nil
}
