package asterisk

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Wire event names used by chan_websocket.
const (
	EventMediaStart = "MEDIA_START"
	EventMedia      = "MEDIA"
	EventMediaEnd   = "MEDIA_END"
	EventDTMF       = "DTMF"
	EventXOFF       = "XOFF"
	EventXON        = "XON"
	EventFlushMedia = "FLUSH_MEDIA"
)

// Event is one inbound message from the switch. The set of implementations is
// closed; see ParseEvent.
type Event interface {
	EventName() string
	isEvent()
}

// MediaStart opens media for a call. Codec is the raw codec name as sent.
type MediaStart struct {
	Codec   string
	Channel string
}

// Media carries one audio payload in the negotiated codec.
type Media struct {
	Payload []byte
	// Raw is set when the payload arrived as a binary or non-JSON frame.
	Raw bool
}

type DTMF struct {
	Digit string
}

type MediaEnd struct{}

// XOFF asks the sender to pause audio.
type XOFF struct{}

// XON lets a paused sender resume.
type XON struct{}

// Unknown is a JSON frame that could not be mapped to a known event. Err is
// set when a known event carried a malformed field.
type Unknown struct {
	Name string
	Err  error
}

func (MediaStart) EventName() string { return EventMediaStart }
func (Media) EventName() string      { return EventMedia }
func (DTMF) EventName() string       { return EventDTMF }
func (MediaEnd) EventName() string   { return EventMediaEnd }
func (XOFF) EventName() string       { return EventXOFF }
func (XON) EventName() string        { return EventXON }
func (u Unknown) EventName() string  { return u.Name }

func (MediaStart) isEvent() {}
func (Media) isEvent()      {}
func (DTMF) isEvent()       {}
func (MediaEnd) isEvent()   {}
func (XOFF) isEvent()       {}
func (XON) isEvent()        {}
func (Unknown) isEvent()    {}

type wireMessage struct {
	Event   string `json:"event"`
	Codec   string `json:"codec,omitempty"`
	Channel string `json:"channel,omitempty"`
	Media   string `json:"media,omitempty"`
	Digit   string `json:"digit,omitempty"`
}

// ParseEvent decodes a text frame. A frame that is not a JSON object is not an
// error: it is returned as raw Media, since some switches send audio frames
// alongside JSON control frames on the same socket.
func ParseEvent(data []byte) Event {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Media{Payload: data, Raw: true}
	}

	switch msg.Event {
	case EventMediaStart:
		return MediaStart{Codec: msg.Codec, Channel: msg.Channel}
	case EventMedia:
		payload, err := base64.StdEncoding.DecodeString(msg.Media)
		if err != nil {
			return Unknown{Name: msg.Event, Err: fmt.Errorf("decode media payload: %w", err)}
		}
		return Media{Payload: payload}
	case EventDTMF:
		return DTMF{Digit: msg.Digit}
	case EventMediaEnd:
		return MediaEnd{}
	case EventXOFF:
		return XOFF{}
	case EventXON:
		return XON{}
	default:
		return Unknown{Name: msg.Event}
	}
}

// EncodeMedia builds an outbound MEDIA frame for an encoded audio chunk.
func EncodeMedia(payload []byte) ([]byte, error) {
	return json.Marshal(wireMessage{
		Event: EventMedia,
		Media: base64.StdEncoding.EncodeToString(payload),
	})
}

// EncodeFlushMedia builds the control frame telling the switch to drop any
// audio it has buffered for playback.
func EncodeFlushMedia() []byte {
	return []byte(`{"event":"` + EventFlushMedia + `"}`)
}

// EncodeMediaEnd builds the control frame ending outbound media.
func EncodeMediaEnd() []byte {
	return []byte(`{"event":"` + EventMediaEnd + `"}`)
}
