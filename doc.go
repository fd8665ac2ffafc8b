// Package quadjpeg splits an image into its four quadrants and encodes each
// one as a JPEG that fits a byte budget.
//
// A [Session] drives the pipeline for one decoded image: [Split] computes the
// quadrant geometry, a [Surface] extracts each quadrant at 1:1 scale, and an
// [Encoder] re-encodes it at decreasing quality until it fits [Budget].
// Quadrants are processed one after the other in label order, sharing a
// single scratch surface.
package quadjpeg
