package asterisk

import (
	"fmt"

	"github.com/Raikerian/go-asterisk-bridge/pkg/audio"
)

const (
	// UnknownCallID is used when MEDIA_START carries no channel.
	UnknownCallID = "unknown"

	defaultCodecName = "slin16"
)

// MediaParams is what a call negotiated in MEDIA_START.
type MediaParams struct {
	CallID     string
	Codec      audio.Codec
	SampleRate int
}

// NegotiateMedia resolves a MEDIA_START event into usable parameters. It never
// fails the call: a missing codec means slin16, and an unsupported one falls
// back to 8 kHz signed linear. The returned error describes such a fallback and
// is meant to be logged.
func NegotiateMedia(ev MediaStart) (MediaParams, error) {
	params := MediaParams{CallID: ev.Channel}
	if params.CallID == "" {
		params.CallID = UnknownCallID
	}

	name := ev.Codec
	if name == "" {
		name = defaultCodecName
	}

	codec, err := audio.ParseCodec(name)
	if err != nil {
		params.Codec = audio.CodecSLin
		params.SampleRate = audio.TelephonySampleRate
		if rate, ok := audio.CodecSampleRate(name); ok {
			return params, fmt.Errorf("codec %q (%d Hz) has no transcoder, treating as slin: %w",
				name, rate, err)
		}
		return params, fmt.Errorf("treating codec as slin: %w", err)
	}

	params.Codec = codec
	params.SampleRate = codec.SampleRate()
	return params, nil
}
