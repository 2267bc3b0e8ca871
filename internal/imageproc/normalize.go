package imageproc

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	jpegQuality = 85
	outputMIME  = "image/jpeg"
)

var (
	// ErrEmptyImage is returned for an empty upload.
	ErrEmptyImage = errors.New("image is empty")
	// ErrUnsupportedImage is returned when the bytes are not a JPEG or PNG.
	ErrUnsupportedImage = errors.New("unsupported image type, use JPEG or PNG")
	// ErrCorruptImage is returned when the header is valid but decoding fails.
	ErrCorruptImage = errors.New("image could not be decoded")
)

// Image is a normalized upload ready for the vision model.
type Image struct {
	Data          []byte
	MIME          string
	Width, Height int
}

// DataURL renders the image as an inline base64 data URL.
func (i Image) DataURL() string {
	return "data:" + i.MIME + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Normalize validates a JPEG or PNG by magic number, applies EXIF orientation,
// downsizes to maxWidth when wider and re-encodes as JPEG.
func Normalize(data []byte, maxWidth int) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	if _, err := Sniff(data); err != nil {
		return Image{}, err
	}

	im, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}
	var out image.Image = im
	if maxWidth > 0 && im.Bounds().Dx() > maxWidth {
		out = imaging.Resize(im, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return Image{}, fmt.Errorf("failed to encode image: %w", err)
	}
	return Image{
		Data:   buf.Bytes(),
		MIME:   outputMIME,
		Width:  out.Bounds().Dx(),
		Height: out.Bounds().Dy(),
	}, nil
}

// Sniff returns the MIME type of a JPEG or PNG, verifying its magic number.
func Sniff(data []byte) (string, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	mimeType := http.DetectContentType(head)
	switch {
	case strings.HasPrefix(mimeType, "image/jpeg") && len(head) > 2 && head[0] == 0xFF && head[1] == 0xD8:
		return "image/jpeg", nil
	case strings.HasPrefix(mimeType, "image/png") && bytes.HasPrefix(head, []byte{0x89, 0x50, 0x4E, 0x47}):
		return "image/png", nil
	default:
		return "", ErrUnsupportedImage
	}
}

// DecodeBase64 accepts raw base64 or a data URL and returns the bytes.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, fmt.Errorf("%w: malformed data URL", ErrUnsupportedImage)
		}
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64", ErrUnsupportedImage)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	return data, nil
}
