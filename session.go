package quadjpeg

import (
	"errors"
	"fmt"
	"image"
)

var errSessionReset = errors.New("quadjpeg: session has been reset")

// Session carries one source image through the split-and-encode pipeline.
// It is created when an image is loaded and discarded with Reset. A Session
// is not safe for concurrent use.
type Session struct {
	src     image.Image
	encoder Encoder
	surface Surface
	results []Result
}

// NewSession starts a session for src. If enc is nil a baseline encoder
// without logging is used.
func NewSession(src image.Image, enc *Encoder) *Session {
	s := &Session{src: src}
	if enc != nil {
		s.encoder = *enc
	}
	return s
}

// Source returns the image being split, or nil after Reset.
func (s *Session) Source() image.Image {
	return s.src
}

// Process splits the source into quadrants and encodes each within
// [Budget], strictly in label order. The quadrants share one scratch
// surface, so each is fully encoded before the next is extracted.
//
// The first failure aborts the whole run: no results are kept and the error
// names the failing quadrant. Running Process again on the same session
// yields byte-identical results.
func (s *Session) Process() ([]Result, error) {
	s.results = nil
	if s.src == nil {
		return nil, errSessionReset
	}
	b := s.src.Bounds()
	regions, err := Split(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	for _, r := range regions {
		if r.Empty() {
			return nil, fmt.Errorf("%w: %dx%d image has an empty %s quadrant", ErrInvalidDimension, b.Dx(), b.Dy(), r.Label)
		}
	}

	results := make([]Result, 0, len(regions))
	for _, r := range regions {
		raster, err := s.surface.Render(s.src, r)
		if err != nil {
			return nil, fmt.Errorf("quadjpeg: %s: %w", r.Label, err)
		}
		res, err := s.encoder.Encode(raster, Budget)
		if err != nil {
			return nil, fmt.Errorf("quadjpeg: %s: %w", r.Label, err)
		}
		res.Label = r.Label
		if l := s.encoder.Logger; l != nil {
			l.Printf("%s: %dx%d at (%d,%d), %d bytes at quality %s after %d attempts",
				r.Label, r.Width, r.Height, r.X, r.Y, res.Len(), res.Quality, len(res.Attempts))
		}
		results = append(results, res)
	}
	s.results = results
	return results, nil
}

// Results returns the results of the last successful Process call.
func (s *Session) Results() []Result {
	return s.results
}

// Result returns the encoded quadrant with the given label.
func (s *Session) Result(l Label) (*Result, bool) {
	for i := range s.results {
		if s.results[i].Label == l {
			return &s.results[i], true
		}
	}
	return nil, false
}

// Reset releases the source image, the results and the scratch surface.
func (s *Session) Reset() {
	s.src = nil
	s.results = nil
	s.surface.Release()
}
