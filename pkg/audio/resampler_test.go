package audio_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-asterisk-bridge/pkg/audio"
)

func constantPCM(samples int, value int16) []byte {
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(value))
	}
	return out
}

func rampPCM(samples int) []byte {
	s := make([]int16, samples)
	for i := range s {
		s[i] = int16(i * 10)
	}
	return audio.SamplesToLE(s)
}

func TestNewResampler_InvalidRates(t *testing.T) {
	_, err := audio.NewResampler(0, 16000)
	assert.Error(t, err)
	_, err = audio.NewResampler(8000, -1)
	assert.Error(t, err)
}

func TestResampler_OutputCounts(t *testing.T) {
	tests := map[string]struct {
		from, to   int
		inSamples  int
		outSamples int
	}{
		"8k_to_16k_20ms":  {8000, 16000, 160, 320},
		"16k_to_8k_20ms":  {16000, 8000, 320, 160},
		"16k_to_24k_20ms": {16000, 24000, 320, 480},
		"24k_to_16k_20ms": {24000, 16000, 480, 320},
		"16k_passthrough": {16000, 16000, 320, 320},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r, err := audio.NewResampler(tt.from, tt.to)
			require.NoError(t, err)

			// Every chunk of a long stream comes out at the exact ratio.
			for i := 0; i < 50; i++ {
				out := r.Resample(constantPCM(tt.inSamples, 1000))
				require.Len(t, out, tt.outSamples*2, "chunk %d", i)
			}
		})
	}
}

func TestResampler_ArbitraryChunksKeepTotal(t *testing.T) {
	r, err := audio.NewResampler(8000, 16000)
	require.NoError(t, err)

	total := 0
	for _, n := range []int{1, 7, 33, 80, 39} {
		total += len(r.Resample(constantPCM(n, 0))) / 2
	}
	assert.Equal(t, 320, total)
}

func TestResampler_ConstantSignalStaysConstant(t *testing.T) {
	r, err := audio.NewResampler(16000, 24000)
	require.NoError(t, err)

	// Prime the history so the first interpolated sample is not against zero.
	r.Resample(constantPCM(320, 1234))
	out := audio.LEToSamples(r.Resample(constantPCM(320, 1234)))
	for i, s := range out {
		require.Equal(t, int16(1234), s, "sample %d", i)
	}
}

func TestResampler_ContinuityAcrossChunks(t *testing.T) {
	whole, err := audio.NewResampler(8000, 16000)
	require.NoError(t, err)
	chunked, err := audio.NewResampler(8000, 16000)
	require.NoError(t, err)

	input := rampPCM(320)
	expected := whole.Resample(input)

	var got bytes.Buffer
	got.Write(chunked.Resample(input[:200]))
	got.Write(chunked.Resample(input[200:]))

	assert.Equal(t, expected, got.Bytes())
}

func TestResampler_UpsampleInterpolates(t *testing.T) {
	r, err := audio.NewResampler(8000, 16000)
	require.NoError(t, err)

	out := audio.LEToSamples(r.Resample(audio.SamplesToLE([]int16{100, 200, 300})))
	// First output sits halfway between the zero history and the first sample.
	assert.Equal(t, []int16{50, 100, 150, 200, 250, 300}, out)
}

func TestResampler_Reset(t *testing.T) {
	r, err := audio.NewResampler(8000, 16000)
	require.NoError(t, err)

	first := r.Resample(rampPCM(10))
	r.Resample(rampPCM(3))
	r.Reset()
	assert.Equal(t, first, r.Resample(rampPCM(10)))
}

func TestResampler_EmptyInput(t *testing.T) {
	r, err := audio.NewResampler(8000, 16000)
	require.NoError(t, err)
	assert.Empty(t, r.Resample(nil))
	assert.Empty(t, r.Resample([]byte{0x01}))
}
