package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openairt "github.com/WqyJh/go-openai-realtime"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Raikerian/go-asterisk-bridge/internal/config"
	"github.com/Raikerian/go-asterisk-bridge/internal/frames"
	"github.com/Raikerian/go-asterisk-bridge/pkg/audio"
)

// realtimeSampleRate is the pcm16 rate of the OpenAI realtime API.
const realtimeSampleRate = 24_000

type realtimeConn interface {
	SendMessage(ctx context.Context, msg openairt.ClientEvent) error
	Close() error
}

type connectFunc func(ctx context.Context, onEvent openairt.ServerEventHandler) (realtimeConn, error)

// Realtime bridges a call to an OpenAI realtime session. Caller audio is
// streamed into the input buffer and the server's voice activity detection
// drives turns; speech from the caller interrupts playback.
type Realtime struct {
	logger  *zap.Logger
	cfg     config.RealtimeConfig
	connect connectFunc
}

func NewRealtime(logger *zap.Logger, cfg *config.Config) *Realtime {
	r := &Realtime{
		logger: logger.Named("realtime"),
		cfg:    cfg.Realtime,
	}
	client := openairt.NewClient(cfg.Realtime.APIKey)
	r.connect = func(ctx context.Context, onEvent openairt.ServerEventHandler) (realtimeConn, error) {
		conn, err := client.Connect(ctx, openairt.WithModel(r.cfg.Model))
		if err != nil {
			return nil, err
		}
		handler := openairt.NewConnHandler(ctx, conn, onEvent)
		go handler.Start()
		return conn, nil
	}
	return r
}

func (r *Realtime) Serve(ctx context.Context, call Call) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Both directions keep interpolation state, so each call gets its own pair.
	up, err := audio.NewResampler(audio.PipelineSampleRate, realtimeSampleRate)
	if err != nil {
		return err
	}
	down, err := audio.NewResampler(realtimeSampleRate, audio.PipelineSampleRate)
	if err != nil {
		return err
	}

	// Open the upstream session only once the switch has negotiated media.
	callID, ok := waitCallStart(call.Frames())
	if !ok {
		return nil
	}
	logger := r.logger.With(zap.String("call_id", callID))

	s := &realtimeSession{
		logger: logger,
		call:   call,
		down:   down,
	}

	logger.Info("Connecting to OpenAI Realtime API", zap.String("model", r.cfg.Model))
	conn, err := r.connect(ctx, s.handleServerEvent)
	if err != nil {
		return fmt.Errorf("failed to connect to OpenAI Realtime: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("Error closing realtime connection", zap.Error(err))
		}
	}()

	if err := conn.SendMessage(ctx, r.sessionUpdate()); err != nil {
		return fmt.Errorf("failed to configure session: %w", err)
	}

	for f := range call.Frames() {
		switch f := f.(type) {
		case frames.Audio:
			pcm := up.Resample(f.PCM)
			if len(pcm) == 0 {
				continue
			}
			event := &openairt.InputAudioBufferAppendEvent{
				Audio: base64.StdEncoding.EncodeToString(pcm),
			}
			if err := conn.SendMessage(ctx, event); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("append input audio: %w", err)
			}

		case frames.DTMF:
			logger.Debug("Ignoring DTMF", zap.String("digit", f.Digit))

		case frames.Hangup:
			logger.Info("Realtime call hung up")

		case frames.CallStart, frames.End, frames.Cancel, frames.StartInterruption:
		}
	}

	return nil
}

func (r *Realtime) sessionUpdate() *openairt.SessionUpdateEvent {
	return &openairt.SessionUpdateEvent{
		Session: openairt.ClientSession{
			Modalities:        []openairt.Modality{openairt.ModalityText, openairt.ModalityAudio},
			Instructions:      r.cfg.Instructions,
			Voice:             openairt.Voice(r.cfg.Voice),
			InputAudioFormat:  openairt.AudioFormatPcm16,
			OutputAudioFormat: openairt.AudioFormatPcm16,
			InputAudioTranscription: &openairt.InputAudioTranscription{
				Model: openai.Whisper1,
			},
		},
	}
}

// realtimeSession holds per-call state touched by the server event handler.
type realtimeSession struct {
	logger *zap.Logger
	call   Call
	down   *audio.Resampler
}

// waitCallStart consumes frames up to the first CallStart. It returns false
// if the stream closed first.
func waitCallStart(in <-chan frames.Frame) (string, bool) {
	for f := range in {
		if start, ok := f.(frames.CallStart); ok {
			return start.CallID, true
		}
	}
	return "", false
}

// handleServerEvent runs on the connection handler goroutine.
func (s *realtimeSession) handleServerEvent(ctx context.Context, event openairt.ServerEvent) {
	switch event.ServerEventType() {
	case openairt.ServerEventTypeResponseAudioDelta:
		delta := event.(openairt.ResponseAudioDeltaEvent)
		if err := s.onAudioDelta(ctx, delta.Delta); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("Failed to play audio delta", zap.Error(err))
		}

	case openairt.ServerEventTypeInputAudioBufferSpeechStarted:
		if err := s.onSpeechStarted(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("Failed to interrupt playback", zap.Error(err))
		}

	case openairt.ServerEventTypeResponseAudioTranscriptDone:
		transcript := event.(openairt.ResponseAudioTranscriptDoneEvent)
		s.logger.Info("Assistant said", zap.String("transcript", transcript.Transcript))

	case openairt.ServerEventTypeConversationItemInputAudioTranscriptionCompleted:
		transcript := event.(openairt.ConversationItemInputAudioTranscriptionCompletedEvent)
		s.logger.Info("Caller said", zap.String("transcript", transcript.Transcript))

	case openairt.ServerEventTypeError:
		errorEvent := event.(openairt.ErrorEvent)
		s.logger.Error("OpenAI error", zap.String("message", errorEvent.Error.Message))
	}
}

func (s *realtimeSession) onAudioDelta(ctx context.Context, b64 string) error {
	if b64 == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("decode audio delta: %w", err)
	}

	pcm := s.down.Resample(data)
	if len(pcm) == 0 {
		return nil
	}
	return s.call.Send(ctx, frames.NewAudio(pcm, audio.PipelineSampleRate))
}

func (s *realtimeSession) onSpeechStarted(ctx context.Context) error {
	s.logger.Debug("Caller started speaking, interrupting playback")
	s.down.Reset()
	return s.call.Send(ctx, frames.StartInterruption{})
}
