package quadjpeg

import "errors"

var (
	// ErrInvalidInput is returned for input that is not an image.
	ErrInvalidInput = errors.New("quadjpeg: not an image")

	// ErrInvalidDimension is returned for image dimensions that cannot be
	// split into four quadrants.
	ErrInvalidDimension = errors.New("quadjpeg: invalid dimension")

	// ErrTooLarge is returned for images with more pixels than allowed.
	ErrTooLarge = errors.New("quadjpeg: image too large")

	// ErrOutOfBounds is returned when a region extends past its source.
	ErrOutOfBounds = errors.New("quadjpeg: region out of bounds")

	// ErrEncodeFailure is returned when the JPEG encoder produces no output.
	ErrEncodeFailure = errors.New("quadjpeg: encode failure")
)
