// Package images shrinks pasted images and stores them where the browser can
// load them back.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxUploadSize bounds the request body accepted for one image.
	MaxUploadSize = 10 << 20

	ContentType = "image/jpeg"
	jpegQuality = 85
)

var ErrUnsupportedImage = errors.New("unsupported image")

// Store saves an encoded image under name and returns the URL it is served at.
type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Resize decodes a PNG, JPEG, GIF or WebP image, scales it down to at most
// maxWidth pixels wide keeping the aspect ratio, and re-encodes it as JPEG.
// Images already narrow enough are re-encoded at their own size.
func Resize(r io.Reader, maxWidth int) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	if maxWidth > 0 && w > maxWidth {
		h = max(1, h*maxWidth/w)
		w = maxWidth
	}

	// JPEG has no alpha, so flatten onto white.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// NewName returns a fresh object name for a resized image.
func NewName() string {
	return uuid.NewString() + ".jpg"
}
