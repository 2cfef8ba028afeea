// Package frames defines the values exchanged between the telephony transport
// and the conversational pipeline.
//
// Frame is a closed sum type. Consumers switch on the concrete type and must
// handle every case listed here; new kinds are added only in this file.
package frames

import "github.com/Raikerian/go-asterisk-bridge/pkg/audio"

// Frame is implemented only by the types in this package.
type Frame interface {
	frame()
}

// CallStart is emitted once the switch has negotiated media for a call.
type CallStart struct {
	CallID     string
	Codec      audio.Codec
	SampleRate int
}

// Audio carries 16-bit little-endian PCM.
type Audio struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// DTMF is a keypress received from the caller.
type DTMF struct {
	Digit  string
	CallID string
}

// Hangup reports that the call has ended on the telephony side.
type Hangup struct {
	CallID string
}

// End closes a stream of frames. Sent downstream it asks the transport to
// finish the call cleanly.
type End struct{}

// Cancel aborts a stream without a clean end.
type Cancel struct {
	Reason string
}

// StartInterruption asks the transport to discard all queued outbound audio.
type StartInterruption struct{}

func (CallStart) frame()         {}
func (Audio) frame()             {}
func (DTMF) frame()              {}
func (Hangup) frame()            {}
func (End) frame()               {}
func (Cancel) frame()            {}
func (StartInterruption) frame() {}

// Name returns a short label for logging.
func Name(f Frame) string {
	switch f.(type) {
	case CallStart:
		return "call_start"
	case Audio:
		return "audio"
	case DTMF:
		return "dtmf"
	case Hangup:
		return "hangup"
	case End:
		return "end"
	case Cancel:
		return "cancel"
	case StartInterruption:
		return "start_interruption"
	default:
		return "unknown"
	}
}

// NewAudio builds a mono pipeline audio frame.
func NewAudio(pcm []byte, sampleRate int) Audio {
	return Audio{PCM: pcm, SampleRate: sampleRate, Channels: audio.PipelineChannels}
}
