package jpeg

import (
	"errors"
	"fmt"
)

// ProgressiveScan represents a single scan in a progressive JPEG sequence.
// Each scan encodes one spectral band of the DCT coefficients. Successive
// approximation is not supported, so every coefficient is sent at full
// precision in exactly one scan.
type ProgressiveScan struct {
	// Component specifies which color component to encode:
	// -1 = all components (DC scan), 0 = Y (luminance), 1 = Cb, 2 = Cr
	Component int

	// SpectralStart and SpectralEnd define the range of DCT coefficients
	// (0-63) in zig-zag order. A scan codes either the DC coefficient alone
	// (0, 0) or a band of AC coefficients (1-63).
	SpectralStart, SpectralEnd int
}

// ScanScript defines a complete progressive scan sequence.
type ScanScript []ProgressiveScan

// DefaultScanScript returns the default scan script for an image with
// nComponent colour components.
func DefaultScanScript(nComponent int) ScanScript {
	if nComponent == 1 {
		return DefaultGrayscaleScanScript()
	}
	return DefaultColorScanScript()
}

// DefaultGrayscaleScanScript returns the default progressive scan script for grayscale images.
func DefaultGrayscaleScanScript() ScanScript {
	return ScanScript{
		{Component: 0, SpectralStart: 0, SpectralEnd: 0},
		{Component: 0, SpectralStart: 1, SpectralEnd: 9},
		{Component: 0, SpectralStart: 10, SpectralEnd: 63},
	}
}

// DefaultColorScanScript returns a progressive scan script that gets a
// recognisable luma image on screen first and fills in colour afterwards.
func DefaultColorScanScript() ScanScript {
	return ScanScript{
		// DC scan for all components
		{Component: -1, SpectralStart: 0, SpectralEnd: 0},
		// Very low frequency AC for Y only - fastest recognizable image
		{Component: 0, SpectralStart: 1, SpectralEnd: 2},
		{Component: 0, SpectralStart: 3, SpectralEnd: 9},
		// Add color information
		{Component: 1, SpectralStart: 1, SpectralEnd: 5},
		{Component: 2, SpectralStart: 1, SpectralEnd: 5},
		// Complete the image
		{Component: 0, SpectralStart: 10, SpectralEnd: 63},
		{Component: 1, SpectralStart: 6, SpectralEnd: 63},
		{Component: 2, SpectralStart: 6, SpectralEnd: 63},
	}
}

// validateScanScript checks that script codes every coefficient of every
// component exactly once, with each component's DC scan before its AC scans.
func validateScanScript(script ScanScript, nComponent int) error {
	if len(script) == 0 {
		return errors.New("jpeg: scan script cannot be empty")
	}

	// coded[c] has bit k set once zig-zag coefficient k of component c
	// has been sent.
	var coded [3]uint64
	for i, scan := range script {
		if scan.Component < -1 || scan.Component >= nComponent {
			return fmt.Errorf("jpeg: scan %d has invalid component %d (must be -1 to %d)", i, scan.Component, nComponent-1)
		}
		if scan.SpectralStart < 0 || scan.SpectralStart > 63 {
			return fmt.Errorf("jpeg: scan %d has invalid spectral start %d (must be 0-63)", i, scan.SpectralStart)
		}
		if scan.SpectralEnd < scan.SpectralStart || scan.SpectralEnd > 63 {
			return fmt.Errorf("jpeg: scan %d has invalid spectral end %d (must be %d-63)", i, scan.SpectralEnd, scan.SpectralStart)
		}
		if scan.SpectralStart == 0 && scan.SpectralEnd != 0 {
			return fmt.Errorf("jpeg: scan %d mixes DC and AC coefficients", i)
		}
		if scan.SpectralStart > 0 && scan.Component == -1 {
			return fmt.Errorf("jpeg: AC scan %d cannot have component -1 (interleaved AC not allowed)", i)
		}

		components := []int{scan.Component}
		if scan.Component == -1 {
			components = allComponents(nComponent)
		}
		band := (uint64(1)<<(scan.SpectralEnd-scan.SpectralStart+1) - 1) << scan.SpectralStart
		for _, c := range components {
			if scan.SpectralStart > 0 && coded[c]&1 == 0 {
				return fmt.Errorf("jpeg: scan %d codes AC of component %d before its DC", i, c)
			}
			if coded[c]&band != 0 {
				return fmt.Errorf("jpeg: scan %d codes coefficients of component %d twice", i, c)
			}
			coded[c] |= band
		}
	}
	for c := 0; c < nComponent; c++ {
		if coded[c] != ^uint64(0) {
			return fmt.Errorf("jpeg: scan script leaves coefficients of component %d uncoded", c)
		}
	}
	return nil
}
