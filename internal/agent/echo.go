package agent

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-asterisk-bridge/internal/config"
	"github.com/Raikerian/go-asterisk-bridge/internal/frames"
	"github.com/Raikerian/go-asterisk-bridge/pkg/audio"
	"github.com/Raikerian/go-asterisk-bridge/pkg/util"
)

const (
	// speechLevel is the RMS above which a chunk counts as speech.
	speechLevel = 500.0
	// maxUtterance caps how much audio is buffered for one echo.
	maxUtterance = 10 * time.Second
)

// Echo plays back what the caller said once they pause. DTMF * interrupts
// playback and # ends the call. With a record directory set, the caller's
// audio is also saved as a WAV file when the call ends.
type Echo struct {
	logger    *zap.Logger
	delay     time.Duration
	recordDir string
}

func NewEcho(logger *zap.Logger, cfg *config.Config) *Echo {
	return &Echo{
		logger:    logger.Named("echo"),
		delay:     cfg.Agent.EchoDelay(),
		recordDir: cfg.Agent.RecordDir,
	}
}

func (e *Echo) Serve(ctx context.Context, call Call) error {
	quiet := util.NewDebouncer(e.delay)
	defer quiet.Stop()

	var (
		callID      string
		utterance   bytes.Buffer
		recording   bytes.Buffer
		maxBytes    = int(audio.PipelineSampleRate*maxUtterance.Seconds()) * audio.BytesPerPCMSample
		incoming    = call.Frames()
		interrupted int
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case f, ok := <-incoming:
			if !ok {
				e.saveRecording(callID, recording.Bytes())
				return nil
			}

			switch f := f.(type) {
			case frames.CallStart:
				callID = f.CallID
				e.logger.Info("Echo call started", zap.String("call_id", callID))

			case frames.Audio:
				if e.recordDir != "" {
					recording.Write(f.PCM)
				}
				speaking := audio.RMS(f.PCM) >= speechLevel
				if speaking || quiet.Armed() {
					if utterance.Len()+len(f.PCM) <= maxBytes {
						utterance.Write(f.PCM)
					}
				}
				if speaking {
					quiet.Trigger()
				}

			case frames.DTMF:
				switch f.Digit {
				case "*":
					interrupted++
					utterance.Reset()
					quiet.Cancel()
					if err := call.Send(ctx, frames.StartInterruption{}); err != nil {
						return err
					}
				case "#":
					if err := call.Send(ctx, frames.End{}); err != nil {
						return err
					}
				}

			case frames.Hangup:
				e.logger.Info("Echo call hung up",
					zap.String("call_id", callID),
					zap.Int("interruptions", interrupted))

			case frames.End, frames.Cancel, frames.StartInterruption:
			}

		case <-quiet.C():
			quiet.Fired()
			if utterance.Len() == 0 {
				continue
			}
			pcm := bytes.Clone(utterance.Bytes())
			utterance.Reset()

			e.logger.Debug("Echoing utterance",
				zap.String("call_id", callID),
				zap.Duration("length", audio.Duration(pcm, audio.PipelineSampleRate)))
			if err := call.Send(ctx, frames.NewAudio(pcm, audio.PipelineSampleRate)); err != nil {
				return err
			}
		}
	}
}

func (e *Echo) saveRecording(callID string, pcm []byte) {
	if e.recordDir == "" || len(pcm) == 0 {
		return
	}
	if callID == "" {
		callID = "unknown"
	}

	path, err := writeRecording(e.recordDir, callID, pcm)
	if err != nil {
		e.logger.Error("Failed to save call recording", zap.String("call_id", callID), zap.Error(err))
		return
	}

	e.logger.Info("Saved call recording",
		zap.String("call_id", callID),
		zap.String("file", path),
		zap.Duration("duration", audio.Duration(pcm, audio.PipelineSampleRate)))
}

func writeRecording(dir, callID string, pcm []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("recording dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.wav", filepath.Base(callID), time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create wav: %w", err)
	}
	defer file.Close()

	if err := audio.WriteWAV(file, pcm, audio.PipelineSampleRate); err != nil {
		return "", err
	}
	return path, file.Close()
}
