package atlas

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/pixelfold/atlasforge/pkg/errors"
)

// FitMode controls how a source image is placed into its slot rectangle.
type FitMode string

const (
	// FitNone draws the image at native size anchored at the slot's
	// top-left corner, clipped to the slot rectangle. This is the default.
	FitNone FitMode = "none"

	// FitCover scales the image to cover the slot (preserving aspect
	// ratio) and center-crops the overflow, so the slot is filled exactly.
	FitCover FitMode = "cover"
)

// Compose draws each resolved image into its slot rectangle on a blank,
// fully transparent RGBA canvas of the given size. It is a pure function
// of its inputs: the same canvas, slots, and images always produce the
// same pixels.
func Compose(canvas Canvas, resolved []ResolvedSlot, fit FitMode) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
	for _, rs := range resolved {
		slotRect := image.Rect(rs.X, rs.Y, rs.X+rs.W, rs.Y+rs.H)
		switch fit {
		case FitCover:
			coverDraw(dst, slotRect, rs.Image)
		default:
			nativeDraw(dst, slotRect, rs.Image)
		}
	}
	return dst
}

// nativeDraw blits src at native size, anchored at the slot's top-left
// corner and clipped to the slot rectangle.
func nativeDraw(dst *image.RGBA, slotRect image.Rectangle, src image.Image) {
	b := src.Bounds()
	r := image.Rect(slotRect.Min.X, slotRect.Min.Y, slotRect.Min.X+b.Dx(), slotRect.Min.Y+b.Dy())
	draw.Draw(dst, r.Intersect(slotRect), src, b.Min, draw.Over)
}

// coverDraw scales the centered sub-rectangle of src whose aspect ratio
// matches the slot onto the slot rectangle exactly. Choosing the source
// window first makes cover-plus-crop a single scaling pass.
func coverDraw(dst *image.RGBA, slotRect image.Rectangle, src image.Image) {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	tw, th := slotRect.Dx(), slotRect.Dy()
	if sw == 0 || sh == 0 {
		return
	}

	// Largest source window with the slot's aspect ratio.
	winW, winH := sw, sh
	if sw*th > tw*sh {
		winW = sh * tw / th
	} else {
		winH = sw * th / tw
	}
	if winW < 1 {
		winW = 1
	}
	if winH < 1 {
		winH = 1
	}

	x0 := b.Min.X + (sw-winW)/2
	y0 := b.Min.Y + (sh-winH)/2
	window := image.Rect(x0, y0, x0+winW, y0+winH)

	xdraw.CatmullRom.Scale(dst, slotRect, src, window, xdraw.Over, nil)
}

// EncodePNG encodes the composed canvas as a PNG buffer.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncodeFailed, err, "encode atlas image")
	}
	return buf.Bytes(), nil
}
