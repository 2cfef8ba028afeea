package audio_test

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-asterisk-bridge/pkg/audio"
)

func TestWriteWAV(t *testing.T) {
	var buf bytes.Buffer
	pcm := constantPCM(160, 42)

	require.NoError(t, audio.WriteWAV(&buf, pcm, 8000))

	b := buf.Bytes()
	require.Len(t, b, 44+320)
	assert.Equal(t, "RIFF", string(b[0:4]))
	assert.Equal(t, uint32(36+320), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, "WAVE", string(b[8:12]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[22:24]))
	assert.Equal(t, uint32(8000), binary.LittleEndian.Uint32(b[24:28]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(b[28:32]))
	assert.Equal(t, "data", string(b[36:40]))
	assert.Equal(t, uint32(320), binary.LittleEndian.Uint32(b[40:44]))
	assert.Equal(t, pcm, b[44:])
}

func TestWriteWAV_InvalidRate(t *testing.T) {
	assert.Error(t, audio.WriteWAV(&bytes.Buffer{}, nil, 0))
}

func TestFrameBytesAndDuration(t *testing.T) {
	assert.Equal(t, 320, audio.FrameBytes(8000, 20*time.Millisecond))
	assert.Equal(t, 640, audio.FrameBytes(16000, 20*time.Millisecond))
	assert.Equal(t, 960, audio.FrameBytes(24000, 20*time.Millisecond))

	assert.Equal(t, 20*time.Millisecond, audio.Duration(make([]byte, 640), 16000))
	assert.Equal(t, time.Duration(0), audio.Duration(make([]byte, 640), 0))
}

func TestPCMHelpers(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768}
	assert.Equal(t, samples, audio.LEToSamples(audio.SamplesToLE(samples)))
	assert.Len(t, audio.LEToSamples([]byte{1, 2, 3}), 1)

	assert.Equal(t, []byte{1, 2, 0, 0}, audio.PadTo([]byte{1, 2}, 4))
	assert.Equal(t, []byte{1, 2, 3}, audio.PadTo([]byte{1, 2, 3}, 2))
}

func TestRMS(t *testing.T) {
	assert.Zero(t, audio.RMS(nil))
	assert.Zero(t, audio.RMS(make([]byte, 320)))
	assert.InDelta(t, 1000, audio.RMS(constantPCM(160, 1000)), 0.001)
	assert.InDelta(t, 1000, audio.RMS(constantPCM(160, -1000)), 0.001)
}
