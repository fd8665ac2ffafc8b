package quadjpeg

import (
	"bytes"
	"fmt"
	"image"
	"log"
	"math"

	"github.com/dlecorfec/quadjpeg/internal/jpeg"
)

// Budget is the target ceiling, in bytes, for each encoded quadrant.
const Budget = 1 << 20

const bytesPerMB = 1 << 20

// Quality is a JPEG quality in integer percent. The size-bounded encoder
// works in whole percents so that its sequence of attempts is exact.
type Quality int

const (
	// MaxQuality is the quality of the first attempt.
	MaxQuality Quality = 95
	// QualityStep is subtracted after each attempt that misses the budget.
	QualityStep Quality = 10
	// QualityFloor bounds the search: no attempt is made at or below it.
	QualityFloor Quality = 10
)

// Float returns q on the 0.0-1.0 scale.
func (q Quality) Float() float64 {
	return float64(q) / 100
}

func (q Quality) String() string {
	return fmt.Sprintf("%.2f", q.Float())
}

// QualitySteps returns every quality the encoder may try, in order.
func QualitySteps() []Quality {
	var steps []Quality
	for q := MaxQuality; ; q -= QualityStep {
		steps = append(steps, q)
		if q-QualityStep <= QualityFloor {
			return steps
		}
	}
}

// Attempt records one encoding pass.
type Attempt struct {
	Quality Quality
	Size    int
}

// Result is the encoded form of one quadrant.
type Result struct {
	Label    Label
	Data     []byte
	Quality  Quality   // quality of Data
	Attempts []Attempt // every pass, in order; the last one produced Data
}

// Len returns the size of the encoded quadrant in bytes.
func (r *Result) Len() int {
	return len(r.Data)
}

// SizeMB returns the size in MiB, rounded to two decimal places.
func (r *Result) SizeMB() float64 {
	return math.Round(float64(len(r.Data))/bytesPerMB*100) / 100
}

// Encoder re-encodes rasters as JPEG until they fit a byte budget.
type Encoder struct {
	// Progressive selects progressive instead of baseline JPEG.
	Progressive bool

	// Logger, if set, receives one line per attempt.
	Logger *log.Logger
}

// Encode encodes m as JPEG, starting at [MaxQuality] and lowering the
// quality by [QualityStep] while the output exceeds budget bytes. The search
// stops before quality would drop to [QualityFloor]; the last encoding is
// then returned even if it is over budget. The budget is a target, not a
// guarantee.
//
// Every attempt is a complete encoding of m. m is not modified.
func (e *Encoder) Encode(m image.Image, budget int) (Result, error) {
	f, err := jpeg.Prepare(m)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrEncodeFailure, err)
	}

	var (
		res  Result
		buf  bytes.Buffer
		opts = jpeg.Options{Progressive: e.Progressive}
	)
	for q := MaxQuality; ; q -= QualityStep {
		buf.Reset()
		opts.Quality = int(q)
		if err := f.Encode(&buf, &opts); err != nil {
			return Result{}, fmt.Errorf("%w: quality %s: %v", ErrEncodeFailure, q, err)
		}
		res.Attempts = append(res.Attempts, Attempt{Quality: q, Size: buf.Len()})
		if e.Logger != nil {
			e.Logger.Printf("quality %s: %d bytes (budget %d)", q, buf.Len(), budget)
		}
		if buf.Len() <= budget || q-QualityStep <= QualityFloor {
			res.Quality = q
			res.Data = bytes.Clone(buf.Bytes())
			return res, nil
		}
	}
}
