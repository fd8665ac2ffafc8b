package quadjpeg

import (
	"fmt"
	"image"
)

// Label names one quadrant of an image.
type Label int

// The quadrants, in processing order.
const (
	TopLeft Label = iota
	TopRight
	BottomLeft
	BottomRight
)

// Labels lists the quadrants in processing order.
var Labels = [4]Label{TopLeft, TopRight, BottomLeft, BottomRight}

var labelNames = [4]string{"top-left", "top-right", "bottom-left", "bottom-right"}

func (l Label) String() string {
	if l < 0 || int(l) >= len(labelNames) {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return labelNames[l]
}

// Filename returns the download name of the quadrant, e.g. "top-left.jpg".
func (l Label) Filename() string {
	return l.String() + ".jpg"
}

// ParseFilename is the inverse of [Label.Filename].
func ParseFilename(name string) (Label, bool) {
	for _, l := range Labels {
		if l.Filename() == name {
			return l, true
		}
	}
	return 0, false
}

// Region is a rectangle of the source image, relative to its top-left
// corner.
type Region struct {
	X, Y          int
	Width, Height int
	Label         Label
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the region contains no pixels.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Split divides a width×height image into four quadrants, in label order.
//
// The split point is (width/2, height/2) with integer division. The
// quadrants touching the right and bottom edges extend to the edge, so for
// odd dimensions they are one pixel wider or taller than their neighbours.
// The four regions cover the image exactly once. For a dimension of 1 the
// left or top quadrants are empty.
func Split(width, height int) ([4]Region, error) {
	if width < 1 || height < 1 {
		return [4]Region{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimension, width, height)
	}
	halfW, halfH := width/2, height/2
	return [4]Region{
		{X: 0, Y: 0, Width: halfW, Height: halfH, Label: TopLeft},
		{X: halfW, Y: 0, Width: width - halfW, Height: halfH, Label: TopRight},
		{X: 0, Y: halfH, Width: halfW, Height: height - halfH, Label: BottomLeft},
		{X: halfW, Y: halfH, Width: width - halfW, Height: height - halfH, Label: BottomRight},
	}, nil
}
