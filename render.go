package quadjpeg

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Surface is a reusable scratch raster for extracting regions. The zero
// value is ready to use.
type Surface struct {
	img *image.RGBA
}

// Render copies region r of src onto the surface at 1:1 scale and returns
// the surface. The surface is resized to the region, reusing its buffer when
// it is large enough, and cleared to transparent black before the copy so
// nothing from an earlier region shows through.
//
// The returned image is owned by the surface and is only valid until the
// next call to Render.
func (s *Surface) Render(src image.Image, r Region) (*image.RGBA, error) {
	sb := src.Bounds()
	rect := r.Rect().Add(sb.Min)
	if r.X < 0 || r.Y < 0 || r.Width < 0 || r.Height < 0 || !rect.In(sb) {
		return nil, fmt.Errorf("%w: %s region %v of %v", ErrOutOfBounds, r.Label, r.Rect(), sb)
	}

	s.resize(r.Width, r.Height)
	draw.Draw(s.img, s.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	draw.Copy(s.img, image.Point{}, src, rect, draw.Src, nil)
	return s.img, nil
}

func (s *Surface) resize(w, h int) {
	n := 4 * w * h
	var pix []uint8
	if s.img != nil && cap(s.img.Pix) >= n {
		pix = s.img.Pix[:n]
	} else {
		pix = make([]uint8, n)
	}
	s.img = &image.RGBA{Pix: pix, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
}

// Release drops the surface buffer.
func (s *Surface) Release() {
	s.img = nil
}

// Render extracts region r of src into a newly allocated raster.
func Render(src image.Image, r Region) (*image.RGBA, error) {
	var s Surface
	return s.Render(src, r)
}
