package jpeg

import (
	"errors"
	"image"
	"image/color"
)

// A Frame holds the DCT coefficients of an image, ready to be quantized and
// entropy coded. Colour conversion, chroma subsampling and the forward DCT
// do not depend on the quality setting, so a Frame can be encoded many times
// at different qualities for the cost of the entropy coding alone.
//
// A Frame does not reference the image it was prepared from.
type Frame struct {
	width, height int
	gray          bool

	// planes[c] holds the blocks of component c (Y, Cb, Cr). For colour
	// frames the luma plane covers whole 16x16 MCUs; chroma is 4:2:0.
	planes [3]plane
}

type plane struct {
	cols, rows int
	blocks     []block
}

func newPlane(cols, rows int) plane {
	return plane{cols: cols, rows: rows, blocks: make([]block, cols*rows)}
}

func (p *plane) at(col, row int) *block {
	return &p.blocks[row*p.cols+col]
}

// Bounds returns the size of the frame as a rectangle at the origin.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.width, f.height)
}

func (f *Frame) nComponent() int {
	if f.gray {
		return 1
	}
	return 3
}

// codedSize returns the number of blocks of component c that a
// non-interleaved scan visits.
func (f *Frame) codedSize(c int) (cols, rows int) {
	w, h := f.width, f.height
	if c > 0 {
		w, h = (w+1)/2, (h+1)/2
	}
	return (w + 7) / 8, (h + 7) / 8
}

// Prepare converts m to YCbCr (or keeps it as luma only for *image.Gray),
// subsamples chroma and applies the forward DCT to every block.
func Prepare(m image.Image) (*Frame, error) {
	b := m.Bounds()
	if b.Dx() >= 1<<16 || b.Dy() >= 1<<16 {
		return nil, errors.New("jpeg: image is too large to encode")
	}
	if b.Empty() {
		return nil, errors.New("jpeg: image has no pixels")
	}
	f := &Frame{width: b.Dx(), height: b.Dy()}

	if g, ok := m.(*image.Gray); ok {
		f.gray = true
		cols, rows := f.codedSize(0)
		f.planes[0] = newPlane(cols, rows)
		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				blk := f.planes[0].at(col, row)
				grayToY(g, image.Pt(b.Min.X+8*col, b.Min.Y+8*row), blk)
				fdct(blk)
			}
		}
		return f, nil
	}

	sample := samplerFor(m)
	mcuCols, mcuRows := (f.width+15)/16, (f.height+15)/16
	f.planes[0] = newPlane(2*mcuCols, 2*mcuRows)
	f.planes[1] = newPlane(mcuCols, mcuRows)
	f.planes[2] = newPlane(mcuCols, mcuRows)
	var cb, cr [4]block
	for my := 0; my < mcuRows; my++ {
		for mx := 0; mx < mcuCols; mx++ {
			for i := 0; i < 4; i++ {
				dx, dy := i&1, i>>1
				blk := f.planes[0].at(2*mx+dx, 2*my+dy)
				p := image.Pt(b.Min.X+16*mx+8*dx, b.Min.Y+16*my+8*dy)
				sample(p, blk, &cb[i], &cr[i])
				fdct(blk)
			}
			blk := f.planes[1].at(mx, my)
			scale(blk, &cb)
			fdct(blk)
			blk = f.planes[2].at(mx, my)
			scale(blk, &cr)
			fdct(blk)
		}
	}
	return f, nil
}

// sampler fills the luma and chroma blocks for the 8x8 region of an image
// whose top-left corner is p. Pixels past the right and bottom edges repeat
// the last column and row.
type sampler func(p image.Point, yBlock, cbBlock, crBlock *block)

func samplerFor(m image.Image) sampler {
	switch m := m.(type) {
	case *image.RGBA:
		return func(p image.Point, yb, cbb, crb *block) { rgbaToYCbCr(m, p, yb, cbb, crb) }
	case *image.YCbCr:
		return func(p image.Point, yb, cbb, crb *block) { yCbCrToYCbCr(m, p, yb, cbb, crb) }
	default:
		return func(p image.Point, yb, cbb, crb *block) { toYCbCr(m, p, yb, cbb, crb) }
	}
}

func toYCbCr(m image.Image, p image.Point, yBlock, cbBlock, crBlock *block) {
	b := m.Bounds()
	xmax := b.Max.X - 1
	ymax := b.Max.Y - 1
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			r, g, b, _ := m.At(min(p.X+i, xmax), min(p.Y+j, ymax)).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			yBlock[8*j+i] = int32(yy)
			cbBlock[8*j+i] = int32(cb)
			crBlock[8*j+i] = int32(cr)
		}
	}
}

func grayToY(m *image.Gray, p image.Point, yBlock *block) {
	b := m.Bounds()
	xmax := b.Max.X - 1
	ymax := b.Max.Y - 1
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			idx := m.PixOffset(min(p.X+i, xmax), min(p.Y+j, ymax))
			yBlock[8*j+i] = int32(m.Pix[idx])
		}
	}
}

// rgbaToYCbCr reads the premultiplied colour channels directly, so
// transparent pixels come out black.
func rgbaToYCbCr(m *image.RGBA, p image.Point, yBlock, cbBlock, crBlock *block) {
	b := m.Bounds()
	xmax := b.Max.X - 1
	ymax := b.Max.Y - 1
	for j := 0; j < 8; j++ {
		sy := min(p.Y+j, ymax)
		for i := 0; i < 8; i++ {
			off := m.PixOffset(min(p.X+i, xmax), sy)
			pix := m.Pix[off : off+3 : off+3]
			yy, cb, cr := color.RGBToYCbCr(pix[0], pix[1], pix[2])
			yBlock[8*j+i] = int32(yy)
			cbBlock[8*j+i] = int32(cb)
			crBlock[8*j+i] = int32(cr)
		}
	}
}

func yCbCrToYCbCr(m *image.YCbCr, p image.Point, yBlock, cbBlock, crBlock *block) {
	b := m.Bounds()
	xmax := b.Max.X - 1
	ymax := b.Max.Y - 1
	for j := 0; j < 8; j++ {
		sy := min(p.Y+j, ymax)
		for i := 0; i < 8; i++ {
			sx := min(p.X+i, xmax)
			yi := m.YOffset(sx, sy)
			ci := m.COffset(sx, sy)
			yBlock[8*j+i] = int32(m.Y[yi])
			cbBlock[8*j+i] = int32(m.Cb[ci])
			crBlock[8*j+i] = int32(m.Cr[ci])
		}
	}
}

// scale averages the 16x16 region held by the four src blocks (ordered
// top-left, top-right, bottom-left, bottom-right) down to one 8x8 block.
func scale(dst *block, src *[4]block) {
	for i := 0; i < 4; i++ {
		dstOff := (i&2)<<4 | (i&1)<<2
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				j := 16*y + 2*x
				sum := src[i][j] + src[i][j+1] + src[i][j+8] + src[i][j+9]
				dst[8*y+x+dstOff] = (sum + 2) >> 2
			}
		}
	}
}
