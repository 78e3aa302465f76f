// Package imaging holds the thin image I/O used by the client: loading
// caller-supplied images, PNG encoding for inline prompt artifacts, and
// client-side alpha-to-mask synthesis.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	// Registered decoders for caller-supplied init/mask/depth images.
	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"
)

var (
	ErrDecodeFailed = errors.New("imaging: failed to decode image")
	ErrEncodeFailed = errors.New("imaging: failed to encode image")
)

// Load reads and decodes an image file.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imaging: open %s: %w", path, err)
	}
	defer f.Close()

	im, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, path, err)
	}
	return im, nil
}

// EncodePNG encodes an image to PNG bytes, the inline format for
// image-bearing prompts.
func EncodePNG(im image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, im); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return buf.Bytes(), nil
}

// MaskFromAlpha builds an inpainting mask from an image's alpha channel:
// opaque pixels become black (keep), transparent pixels become white
// (regenerate). It is the client-side analog of the server-side
// channel-split-then-invert adjustment chain, for library callers that
// want to inspect or post-process the mask before attaching it as an
// explicit mask prompt; the CLI's alpha-mask path uses the server-side
// adjustments instead.
func MaskFromAlpha(im image.Image) *image.NRGBA {
	bounds := im.Bounds()

	src := image.NewNRGBA(bounds)
	draw.Copy(src, bounds.Min, im, bounds, draw.Src, nil)

	mask := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := 255 - src.NRGBAAt(x, y).A
			mask.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return mask
}
