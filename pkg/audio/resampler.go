package audio

import (
	"fmt"
)

// Resampler converts mono 16-bit little-endian PCM between two sample rates
// using linear interpolation. It keeps its fractional read position and the
// last input sample across calls, so audio fed in arbitrary chunk sizes comes
// out continuous and with an exact long-run sample count.
//
// A Resampler belongs to a single stream and is not safe for concurrent use.
type Resampler struct {
	from, to int

	// pos is the read position of the next output sample relative to the
	// first sample of the next chunk, in units of 1/to input samples. It is
	// negative while the next output falls between prev and the next chunk.
	pos  int64
	prev int16
}

// NewResampler builds a resampler from one rate to another. Equal rates give
// a pass-through resampler.
func NewResampler(from, to int) (*Resampler, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", from, to)
	}
	g := gcd(from, to)
	r := &Resampler{from: from / g, to: to / g}
	r.Reset()
	return r, nil
}

// Passthrough reports whether the resampler returns its input unchanged.
func (r *Resampler) Passthrough() bool {
	return r.from == r.to
}

// Reset drops the carried position and sample history.
func (r *Resampler) Reset() {
	r.pos = int64(r.from - r.to)
	r.prev = 0
}

// Resample converts one chunk. A trailing odd byte is ignored.
func (r *Resampler) Resample(pcm []byte) []byte {
	if r.Passthrough() {
		return pcm
	}
	in := LEToSamples(pcm)
	n := int64(len(in))
	if n == 0 {
		return nil
	}

	from, to := int64(r.from), int64(r.to)
	limit := (n - 1) * to
	out := make([]int16, 0, (n*to)/from+2)

	for ; r.pos <= limit; r.pos += from {
		idx := floorDiv(r.pos, to)
		frac := r.pos - idx*to

		var a, b int64
		if idx < 0 {
			a = int64(r.prev)
			b = int64(in[0])
		} else {
			a = int64(in[idx])
			if frac > 0 {
				b = int64(in[idx+1])
			}
		}
		out = append(out, int16(a+(b-a)*frac/to))
	}

	r.pos -= n * to
	r.prev = in[n-1]

	return SamplesToLE(out)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
