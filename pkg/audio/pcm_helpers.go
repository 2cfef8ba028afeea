package audio

import (
	"encoding/binary"
	"math"
)

// SamplesToLE converts int16 samples to raw little-endian bytes.
func SamplesToLE(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerPCMSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// LEToSamples converts raw little-endian bytes to int16 samples. A trailing
// odd byte is ignored.
func LEToSamples(b []byte) []int16 {
	out := make([]int16, len(b)/BytesPerPCMSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

// PadTo returns b zero-extended to exactly size bytes. b is returned unchanged
// when it is already at least size long.
func PadTo(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	padded := make([]byte, size)
	copy(padded, b)
	return padded
}

// RMS returns the root mean square level of 16-bit PCM, in sample units.
func RMS(pcm []byte) float64 {
	n := len(pcm) / BytesPerPCMSample
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
