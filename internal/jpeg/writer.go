// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jpeg

import (
	"bufio"
	"image"
	"io"
	"math/bits"
)

// div returns a/b rounded to the nearest integer, instead of rounded to zero.
func div(a, b int32) int32 {
	if a >= 0 {
		return (a + (b >> 1)) / b
	}
	return -((-a + (b >> 1)) / b)
}

// writer is a buffered writer.
type writer interface {
	Flush() error
	io.Writer
	io.ByteWriter
}

// encoder writes one JPEG stream. After the first write error all further
// writes are no-ops and the error is reported by Encode.
type encoder struct {
	w   writer
	err error
	// buf is a scratch buffer.
	buf [16]byte
	// bits and nBits are accumulated bits to write to w.
	bits, nBits uint32
	// quant is the scaled quantization tables, in zig-zag order.
	quant [nQuantIndex][blockSize]byte
}

func (e *encoder) flush() {
	if e.err != nil {
		return
	}
	e.err = e.w.Flush()
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *encoder) writeByte(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}

// emit emits the least significant nBits bits of bits to the bit-stream.
// The precondition is bits < 1<<nBits && nBits <= 16.
func (e *encoder) emit(bits, nBits uint32) {
	nBits += e.nBits
	bits <<= 32 - nBits
	bits |= e.bits
	for nBits >= 8 {
		b := uint8(bits >> 24)
		e.writeByte(b)
		if b == 0xff {
			e.writeByte(0x00)
		}
		bits <<= 8
		nBits -= 8
	}
	e.bits, e.nBits = bits, nBits
}

// padBits completes the last byte of a scan with 1 bits and discards the
// padding that did not make it into a byte.
func (e *encoder) padBits() {
	e.emit(0x7f, 7)
	e.bits, e.nBits = 0, 0
}

// emitHuff emits the given value with the given Huffman table.
func (e *encoder) emitHuff(h huffIndex, value int32) {
	x := stdHuffCodes[h][value]
	e.emit(x&(1<<24-1), x>>24)
}

// emitHuffRLE emits a run of runLength zeros followed by value, using the
// given Huffman table for the run/size symbol.
func (e *encoder) emitHuffRLE(h huffIndex, runLength, value int32) {
	a, b := value, value
	if a < 0 {
		a, b = -value, value-1
	}
	nBits := uint32(bits.Len32(uint32(a)))
	e.emitHuff(h, runLength<<4|int32(nBits))
	if nBits > 0 {
		e.emit(uint32(b)&(1<<nBits-1), nBits)
	}
}

func (e *encoder) writeMarker(marker uint8) {
	e.buf[0] = 0xff
	e.buf[1] = marker
	e.write(e.buf[:2])
}

// writeMarkerHeader writes the header for a marker with the given length.
func (e *encoder) writeMarkerHeader(marker uint8, markerlen int) {
	e.buf[0] = 0xff
	e.buf[1] = marker
	e.buf[2] = uint8(markerlen >> 8)
	e.buf[3] = uint8(markerlen & 0xff)
	e.write(e.buf[:4])
}

func (e *encoder) writeDQT() {
	const markerlen = 2 + int(nQuantIndex)*(1+blockSize)
	e.writeMarkerHeader(dqtMarker, markerlen)
	for i := range e.quant {
		e.writeByte(uint8(i))
		e.write(e.quant[i][:])
	}
}

// writeSOF writes a Start Of Frame marker. Colour frames use 4:2:0 chroma
// subsampling.
func (e *encoder) writeSOF(size image.Point, nComponent int, marker uint8) {
	markerlen := 8 + 3*nComponent
	e.writeMarkerHeader(marker, markerlen)
	e.buf[0] = 8 // 8-bit color.
	e.buf[1] = uint8(size.Y >> 8)
	e.buf[2] = uint8(size.Y & 0xff)
	e.buf[3] = uint8(size.X >> 8)
	e.buf[4] = uint8(size.X & 0xff)
	e.buf[5] = uint8(nComponent)
	if nComponent == 1 {
		e.buf[6] = 1
		e.buf[7] = 0x11
		e.buf[8] = 0x00
	} else {
		for i := 0; i < nComponent; i++ {
			e.buf[3*i+6] = uint8(i + 1)
			e.buf[3*i+7] = "\x22\x11\x11"[i]
			e.buf[3*i+8] = "\x00\x01\x01"[i]
		}
	}
	e.write(e.buf[:3*(nComponent-1)+9])
}

func (e *encoder) writeDHT(nComponent int) {
	markerlen := 2
	tables := stdHuffTables[:]
	if nComponent == 1 {
		// Drop the Chrominance tables.
		tables = tables[:2]
	}
	for _, t := range tables {
		markerlen += 1 + 16 + len(t.value)
	}
	e.writeMarkerHeader(dhtMarker, markerlen)
	for i, t := range tables {
		e.writeByte("\x00\x10\x01\x11"[i])
		e.write(t.count[:])
		e.write(t.value)
	}
}

// writeSOS writes a Start Of Scan header for the given components and
// spectral band. Luma uses table set 0 and chroma table set 1.
func (e *encoder) writeSOS(components []int, ss, se int) {
	e.writeMarkerHeader(sosMarker, 6+2*len(components))
	e.writeByte(uint8(len(components)))
	for _, c := range components {
		e.writeByte(uint8(c + 1))
		if c == 0 {
			e.writeByte(0x00)
		} else {
			e.writeByte(0x11)
		}
	}
	// Successive approximation is not used, so Ah and Al are zero.
	e.buf[0], e.buf[1], e.buf[2] = uint8(ss), uint8(se), 0
	e.write(e.buf[:3])
}

// writeBlock quantizes the zig-zag band [ss, se] of a DCT block and emits
// it, returning the post-quantized DC value when the band includes it.
// Baseline scans use the band [0, 63]; progressive scans either code the DC
// alone or an AC band without it.
func (e *encoder) writeBlock(b *block, q quantIndex, prevDC int32, ss, se int) int32 {
	dc := prevDC
	if ss == 0 {
		dc = div(b[0], 8*int32(e.quant[q][0]))
		e.emitHuffRLE(huffIndex(2*q+0), 0, dc-prevDC)
		ss = 1
	}
	if ss > se {
		return dc
	}
	h, runLength := huffIndex(2*q+1), int32(0)
	for zig := ss; zig <= se; zig++ {
		ac := div(b[unzig[zig]], 8*int32(e.quant[q][zig]))
		if ac == 0 {
			runLength++
			continue
		}
		for runLength > 15 {
			e.emitHuff(h, 0xf0)
			runLength -= 16
		}
		e.emitHuffRLE(h, runLength, ac)
		runLength = 0
	}
	if runLength > 0 {
		e.emitHuff(h, 0x00)
	}
	return dc
}

func quantFor(c int) quantIndex {
	if c == 0 {
		return quantIndexLuminance
	}
	return quantIndexChrominance
}

// writeInterleaved codes all components of f in MCU order.
func (e *encoder) writeInterleaved(f *Frame, ss, se int) {
	if f.gray {
		e.writeComponent(f, 0, ss, se)
		return
	}
	var prevDC [3]int32
	mcuCols, mcuRows := f.planes[1].cols, f.planes[1].rows
	for my := 0; my < mcuRows; my++ {
		for mx := 0; mx < mcuCols; mx++ {
			for i := 0; i < 4; i++ {
				blk := f.planes[0].at(2*mx+(i&1), 2*my+(i>>1))
				prevDC[0] = e.writeBlock(blk, quantIndexLuminance, prevDC[0], ss, se)
			}
			for c := 1; c < 3; c++ {
				prevDC[c] = e.writeBlock(f.planes[c].at(mx, my), quantIndexChrominance, prevDC[c], ss, se)
			}
		}
	}
}

// writeComponent codes one component of f in raster block order, visiting
// only the blocks that overlap the component's own extent.
func (e *encoder) writeComponent(f *Frame, c, ss, se int) {
	var prevDC int32
	cols, rows := f.codedSize(c)
	q := quantFor(c)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			prevDC = e.writeBlock(f.planes[c].at(col, row), q, prevDC, ss, se)
		}
	}
}

func allComponents(n int) []int {
	if n == 1 {
		return []int{0}
	}
	return []int{0, 1, 2}
}

func (e *encoder) writeBaseline(f *Frame) {
	n := f.nComponent()
	e.writeSOF(f.Bounds().Size(), n, sof0Marker)
	e.writeDHT(n)
	e.writeSOS(allComponents(n), 0, blockSize-1)
	e.writeInterleaved(f, 0, blockSize-1)
	e.padBits()
}

func (e *encoder) writeProgressive(f *Frame, script ScanScript) {
	n := f.nComponent()
	e.writeSOF(f.Bounds().Size(), n, sof2Marker)
	e.writeDHT(n)
	for _, scan := range script {
		if scan.Component < 0 {
			e.writeSOS(allComponents(n), scan.SpectralStart, scan.SpectralEnd)
			e.writeInterleaved(f, scan.SpectralStart, scan.SpectralEnd)
		} else {
			e.writeSOS([]int{scan.Component}, scan.SpectralStart, scan.SpectralEnd)
			e.writeComponent(f, scan.Component, scan.SpectralStart, scan.SpectralEnd)
		}
		// Each scan ends on a byte boundary.
		e.padBits()
	}
}

// Options are the encoding parameters.
// Quality ranges from 1 to 100 inclusive, higher is better.
type Options struct {
	Quality     int
	Progressive bool

	// ScanScript defines a custom progressive scan sequence.
	// If nil, default scan scripts are used based on the image type.
	// Only used when Progressive is true.
	ScanScript ScanScript
}

// Encode writes f to w as a complete JPEG stream. Default parameters are
// used if a nil *[Options] is passed. An invalid progressive scan script is
// reported before anything is written.
func (f *Frame) Encode(w io.Writer, o *Options) error {
	quality := DefaultQuality
	var script ScanScript
	if o != nil {
		quality = o.Quality
		if o.Progressive {
			script = o.ScanScript
			if script == nil {
				script = DefaultScanScript(f.nComponent())
			}
			if err := validateScanScript(script, f.nComponent()); err != nil {
				return err
			}
		}
	}

	var e encoder
	if ww, ok := w.(writer); ok {
		e.w = ww
	} else {
		e.w = bufio.NewWriter(w)
	}
	e.quant = scaledQuant(quality)

	e.writeMarker(soiMarker)
	e.writeDQT()
	if script != nil {
		e.writeProgressive(f, script)
	} else {
		e.writeBaseline(f)
	}
	e.writeMarker(eoiMarker)
	e.flush()
	return e.err
}

// Encode writes the Image m to w in JPEG 4:2:0 format with the given
// options. Default parameters are used if a nil *[Options] is passed.
func Encode(w io.Writer, m image.Image, o *Options) error {
	f, err := Prepare(m)
	if err != nil {
		return err
	}
	return f.Encode(w, o)
}
