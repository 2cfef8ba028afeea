package audio

import "time"

// Format constants shared by the codec, resampler and transport layers.
const (
	// Telephony side.
	TelephonySampleRate = 8_000 // Hz, ulaw/alaw/slin
	WidebandSampleRate  = 16_000

	// Pipeline side. Every chunk handed to or accepted from the agent is
	// 16-bit little-endian mono PCM at this rate.
	PipelineSampleRate = 16_000
	PipelineChannels   = 1

	BytesPerPCMSample = 2

	DefaultPtime = 20 * time.Millisecond
)

// FrameBytes returns the size in bytes of one ptime worth of 16-bit PCM at
// sampleRate.
func FrameBytes(sampleRate int, ptime time.Duration) int {
	samples := int(int64(sampleRate) * ptime.Milliseconds() / 1000)
	return samples * BytesPerPCMSample
}

// Duration returns how long len(pcm) bytes of 16-bit mono PCM last at sampleRate.
func Duration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(pcm) / BytesPerPCMSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
