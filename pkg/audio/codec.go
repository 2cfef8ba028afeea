package audio

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedCodec is returned for codec names or values the transcoder
// has no encode/decode branch for.
var ErrUnsupportedCodec = errors.New("unsupported codec")

// Codec identifies a telephony payload encoding negotiated by the switch.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecULaw
	CodecALaw
	CodecSLin   // 8 kHz signed linear
	CodecSLin16 // 16 kHz signed linear
)

// codecRates mirrors the switch's codec table. slin12 is listed by the switch
// but has no transcoder branch, so ParseCodec rejects it.
var codecRates = map[string]int{
	"ulaw":   8000,
	"alaw":   8000,
	"slin":   8000,
	"slin16": 16000,
	"slin12": 12000,
}

// ParseCodec maps a wire codec name to a Codec. Matching is case-insensitive
// and accepts the common G.711 aliases.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ulaw", "mulaw", "pcmu", "g711u":
		return CodecULaw, nil
	case "alaw", "pcma", "g711a":
		return CodecALaw, nil
	case "slin", "slin8":
		return CodecSLin, nil
	case "slin16":
		return CodecSLin16, nil
	default:
		return CodecUnknown, fmt.Errorf("%w: %q", ErrUnsupportedCodec, name)
	}
}

// CodecSampleRate looks a codec name up in the switch's rate table. The second
// result is false for names that are not in the table.
func CodecSampleRate(name string) (int, bool) {
	rate, ok := codecRates[strings.ToLower(strings.TrimSpace(name))]
	return rate, ok
}

// String returns the wire name of the codec.
func (c Codec) String() string {
	switch c {
	case CodecULaw:
		return "ulaw"
	case CodecALaw:
		return "alaw"
	case CodecSLin:
		return "slin"
	case CodecSLin16:
		return "slin16"
	default:
		return "unknown"
	}
}

// SampleRate returns the fixed sample rate for the codec, or 0 if unknown.
func (c Codec) SampleRate() int {
	switch c {
	case CodecULaw, CodecALaw, CodecSLin:
		return 8000
	case CodecSLin16:
		return 16000
	default:
		return 0
	}
}

// BytesPerSample is the encoded width of one sample on the wire.
func (c Codec) BytesPerSample() int {
	switch c {
	case CodecULaw, CodecALaw:
		return 1
	case CodecSLin, CodecSLin16:
		return 2
	default:
		return 0
	}
}

// Decode converts wire bytes in codec c to 16-bit little-endian PCM. Linear
// codecs are returned as is. Decode is pure and safe for concurrent use.
func Decode(c Codec, data []byte) ([]byte, error) {
	switch c {
	case CodecSLin, CodecSLin16:
		return data, nil
	case CodecULaw:
		out := make([]byte, len(data)*2)
		for i, b := range data {
			s := ulawDecodeTable[b]
			out[2*i] = byte(s)
			out[2*i+1] = byte(s >> 8)
		}
		return out, nil
	case CodecALaw:
		out := make([]byte, len(data)*2)
		for i, b := range data {
			s := alawDecodeTable[b]
			out[2*i] = byte(s)
			out[2*i+1] = byte(s >> 8)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("decode %s: %w", c, ErrUnsupportedCodec)
	}
}

// Encode converts 16-bit little-endian PCM to codec c. A trailing odd byte in
// pcm is ignored for the companded codecs.
func Encode(c Codec, pcm []byte) ([]byte, error) {
	switch c {
	case CodecSLin, CodecSLin16:
		return pcm, nil
	case CodecULaw:
		out := make([]byte, len(pcm)/2)
		for i := range out {
			out[i] = MuLawEncode(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
		}
		return out, nil
	case CodecALaw:
		out := make([]byte, len(pcm)/2)
		for i := range out {
			out[i] = ALawEncode(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("encode %s: %w", c, ErrUnsupportedCodec)
	}
}
