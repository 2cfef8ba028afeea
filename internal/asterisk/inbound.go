package asterisk

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Raikerian/go-asterisk-bridge/internal/frames"
	"github.com/Raikerian/go-asterisk-bridge/pkg/audio"
)

// InboundHandler consumes wire events from the switch.
type InboundHandler interface {
	HandleInbound(ctx context.Context, ev Event) error
}

// Emitter delivers a frame to the pipeline. It blocks until the frame is
// accepted or ctx is done.
type Emitter func(ctx context.Context, f frames.Frame) error

// State is the lifecycle position of an inbound session.
type State int32

const (
	StateIdle State = iota
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return "invalid"
	}
}

// InboundStats counts what an inbound session has seen.
type InboundStats struct {
	AudioFrames  uint64
	AudioBytes   uint64
	DTMF         uint64
	Dropped      uint64
	DecodeErrors uint64
}

// InboundSession turns wire events into pipeline frames for one call.
//
// Idle moves to Active on MEDIA_START. Active moves to Ended on MEDIA_END or
// Cancel. Audio and DTMF outside Active are dropped.
type InboundSession struct {
	logger       *zap.Logger
	pipelineRate int
	emit         Emitter

	mu        sync.Mutex
	state     State
	params    MediaParams
	resampler *audio.Resampler

	audioFrames  atomic.Uint64
	audioBytes   atomic.Uint64
	dtmf         atomic.Uint64
	dropped      atomic.Uint64
	decodeErrors atomic.Uint64
}

var _ InboundHandler = (*InboundSession)(nil)

// NewInboundSession creates a session in the Idle state.
func NewInboundSession(logger *zap.Logger, pipelineRate int, emit Emitter) *InboundSession {
	return &InboundSession{
		logger:       logger,
		pipelineRate: pipelineRate,
		emit:         emit,
	}
}

// State returns the current lifecycle state.
func (s *InboundSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Params returns the negotiated media parameters. They are zero until the
// session has left Idle.
func (s *InboundSession) Params() MediaParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// HandleInbound applies one wire event. The only error it returns comes from
// the emitter, meaning the pipeline is gone.
func (s *InboundSession) HandleInbound(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case MediaStart:
		return s.start(ctx, e)
	case Media:
		return s.media(ctx, e)
	case DTMF:
		return s.digit(ctx, e)
	case MediaEnd:
		return s.end(ctx, "media_end")
	case XOFF, XON:
		// Flow control belongs to the outbound side.
		return nil
	case Unknown:
		if e.Err != nil {
			s.decodeErrors.Add(1)
			s.logger.Warn("Malformed event", zap.String("event", e.Name), zap.Error(e.Err))
		} else {
			s.logger.Debug("Ignoring unknown event", zap.String("event", e.Name))
		}
		return nil
	default:
		s.logger.Debug("Ignoring unhandled event", zap.String("event", ev.EventName()))
		return nil
	}
}

// Cancel forces the session to Ended, emitting Hangup and End unless that
// already happened.
func (s *InboundSession) Cancel(ctx context.Context) error {
	return s.end(ctx, "cancel")
}

// Stats returns a snapshot of the session counters.
func (s *InboundSession) Stats() InboundStats {
	return InboundStats{
		AudioFrames:  s.audioFrames.Load(),
		AudioBytes:   s.audioBytes.Load(),
		DTMF:         s.dtmf.Load(),
		Dropped:      s.dropped.Load(),
		DecodeErrors: s.decodeErrors.Load(),
	}
}

func (s *InboundSession) start(ctx context.Context, ev MediaStart) error {
	params, err := NegotiateMedia(ev)

	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		s.logger.Warn("Ignoring repeated MEDIA_START",
			zap.String("call_id", params.CallID),
			zap.Stringer("state", state))
		return nil
	}

	var resampler *audio.Resampler
	if params.SampleRate != s.pipelineRate {
		// Rates are positive here, so construction cannot fail.
		resampler, _ = audio.NewResampler(params.SampleRate, s.pipelineRate)
	}
	s.params = params
	s.resampler = resampler
	s.state = StateActive
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Unsupported codec, audio may be garbled",
			zap.String("call_id", params.CallID),
			zap.String("codec", ev.Codec),
			zap.Error(err))
	}
	s.logger.Info("Media started",
		zap.String("call_id", params.CallID),
		zap.Stringer("codec", params.Codec),
		zap.Int("sample_rate", params.SampleRate),
		zap.Bool("resampling", resampler != nil))

	return s.emit(ctx, frames.CallStart{
		CallID:     params.CallID,
		Codec:      params.Codec,
		SampleRate: params.SampleRate,
	})
}

func (s *InboundSession) media(ctx context.Context, ev Media) error {
	if len(ev.Payload) == 0 {
		return nil
	}

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		s.dropped.Add(1)
		return nil
	}
	codec := s.params.Codec
	resampler := s.resampler

	pcm, err := audio.Decode(codec, ev.Payload)
	if err == nil && resampler != nil {
		pcm = resampler.Resample(pcm)
	}
	s.mu.Unlock()

	if err != nil {
		s.decodeErrors.Add(1)
		s.logger.Warn("Dropping undecodable audio", zap.Stringer("codec", codec), zap.Error(err))
		return nil
	}
	if len(pcm) == 0 {
		return nil
	}

	s.audioFrames.Add(1)
	s.audioBytes.Add(uint64(len(pcm)))

	return s.emit(ctx, frames.NewAudio(pcm, s.pipelineRate))
}

func (s *InboundSession) digit(ctx context.Context, ev DTMF) error {
	if ev.Digit == "" {
		return nil
	}

	s.mu.Lock()
	state, callID := s.state, s.params.CallID
	s.mu.Unlock()

	if state != StateActive {
		s.dropped.Add(1)
		return nil
	}

	s.dtmf.Add(1)
	s.logger.Debug("DTMF received", zap.String("call_id", callID), zap.String("digit", ev.Digit))

	return s.emit(ctx, frames.DTMF{Digit: ev.Digit, CallID: callID})
}

func (s *InboundSession) end(ctx context.Context, reason string) error {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return nil
	}
	s.state = StateEnded
	callID := s.params.CallID
	s.mu.Unlock()

	s.logger.Info("Media ended", zap.String("call_id", callID), zap.String("reason", reason))

	if err := s.emit(ctx, frames.Hangup{CallID: callID}); err != nil {
		return err
	}
	return s.emit(ctx, frames.End{})
}
