package asterisk_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Raikerian/go-asterisk-bridge/internal/asterisk"
	"github.com/Raikerian/go-asterisk-bridge/internal/frames"
	"github.com/Raikerian/go-asterisk-bridge/pkg/audio"
)

type frameRecorder struct {
	frames []frames.Frame
	err    error
}

func (r *frameRecorder) emit(_ context.Context, f frames.Frame) error {
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, f)
	return nil
}

func newTestSession(t *testing.T) (*asterisk.InboundSession, *frameRecorder) {
	t.Helper()
	rec := &frameRecorder{}
	return asterisk.NewInboundSession(zaptest.NewLogger(t), 16000, rec.emit), rec
}

func TestInboundSession_ULawCallScenario(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.HandleInbound(ctx, asterisk.MediaStart{Codec: "ulaw", Channel: "C1"}))
	assert.Equal(t, asterisk.StateActive, s.State())
	require.Len(t, rec.frames, 1)
	assert.Equal(t, frames.CallStart{CallID: "C1", Codec: audio.CodecULaw, SampleRate: 8000}, rec.frames[0])

	require.NoError(t, s.HandleInbound(ctx, asterisk.Media{Payload: bytes.Repeat([]byte{0xFF}, 160)}))
	require.Len(t, rec.frames, 2)
	chunk, ok := rec.frames[1].(frames.Audio)
	require.True(t, ok)
	assert.Len(t, chunk.PCM, 640)
	assert.Equal(t, 16000, chunk.SampleRate)
	assert.Equal(t, 1, chunk.Channels)

	require.NoError(t, s.HandleInbound(ctx, asterisk.MediaEnd{}))
	assert.Equal(t, asterisk.StateEnded, s.State())
	require.Len(t, rec.frames, 4)
	assert.Equal(t, frames.Hangup{CallID: "C1"}, rec.frames[2])
	assert.Equal(t, frames.End{}, rec.frames[3])

	// Audio after the end is dropped without error.
	require.NoError(t, s.HandleInbound(ctx, asterisk.Media{Payload: []byte{0xFF}}))
	assert.Len(t, rec.frames, 4)

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.AudioFrames)
	assert.Equal(t, uint64(640), stats.AudioBytes)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestInboundSession_Slin16PassesThrough(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.HandleInbound(ctx, asterisk.MediaStart{Codec: "slin16", Channel: "C2"}))
	payload := []byte{1, 2, 3, 4}
	require.NoError(t, s.HandleInbound(ctx, asterisk.Media{Payload: payload}))

	require.Len(t, rec.frames, 2)
	assert.Equal(t, payload, rec.frames[1].(frames.Audio).PCM)
}

func TestInboundSession_RawMediaIsDecoded(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.HandleInbound(ctx, asterisk.MediaStart{Codec: "alaw", Channel: "C3"}))
	require.NoError(t, s.HandleInbound(ctx, asterisk.Media{Payload: bytes.Repeat([]byte{0xD5}, 80), Raw: true}))

	require.Len(t, rec.frames, 2)
	assert.Len(t, rec.frames[1].(frames.Audio).PCM, 320)
}

func TestInboundSession_DropsBeforeStart(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.HandleInbound(ctx, asterisk.Media{Payload: []byte{1, 2}}))
	require.NoError(t, s.HandleInbound(ctx, asterisk.DTMF{Digit: "1"}))

	assert.Empty(t, rec.frames)
	assert.Equal(t, asterisk.StateIdle, s.State())
	assert.Equal(t, uint64(2), s.Stats().Dropped)
}

func TestInboundSession_DTMF(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.HandleInbound(ctx, asterisk.MediaStart{Codec: "ulaw", Channel: "C1"}))
	require.NoError(t, s.HandleInbound(ctx, asterisk.DTMF{Digit: "#"}))
	require.NoError(t, s.HandleInbound(ctx, asterisk.DTMF{}))

	require.Len(t, rec.frames, 2)
	assert.Equal(t, frames.DTMF{Digit: "#", CallID: "C1"}, rec.frames[1])
	assert.Equal(t, asterisk.StateActive, s.State())
}

func TestInboundSession_IgnoresRepeatedStartAndControl(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.HandleInbound(ctx, asterisk.MediaStart{Codec: "ulaw", Channel: "C1"}))
	require.NoError(t, s.HandleInbound(ctx, asterisk.MediaStart{Codec: "slin16", Channel: "C9"}))
	require.NoError(t, s.HandleInbound(ctx, asterisk.XOFF{}))
	require.NoError(t, s.HandleInbound(ctx, asterisk.Unknown{Name: "HOLD"}))
	require.NoError(t, s.HandleInbound(ctx, asterisk.Unknown{Name: "MEDIA", Err: errors.New("bad base64")}))

	assert.Len(t, rec.frames, 1)
	assert.Equal(t, "C1", s.Params().CallID)
	assert.Equal(t, audio.CodecULaw, s.Params().Codec)
	assert.Equal(t, uint64(1), s.Stats().DecodeErrors)
}

func TestInboundSession_CancelIsIdempotent(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.HandleInbound(ctx, asterisk.MediaStart{Codec: "ulaw", Channel: "C1"}))
	require.NoError(t, s.Cancel(ctx))
	require.NoError(t, s.Cancel(ctx))
	require.NoError(t, s.HandleInbound(ctx, asterisk.MediaEnd{}))

	assert.Equal(t, []frames.Frame{
		frames.CallStart{CallID: "C1", Codec: audio.CodecULaw, SampleRate: 8000},
		frames.Hangup{CallID: "C1"},
		frames.End{},
	}, rec.frames)
}

func TestInboundSession_CancelFromIdle(t *testing.T) {
	s, rec := newTestSession(t)

	require.NoError(t, s.Cancel(context.Background()))
	assert.Equal(t, asterisk.StateEnded, s.State())
	assert.Equal(t, []frames.Frame{frames.Hangup{}, frames.End{}}, rec.frames)
}

func TestInboundSession_EmitterErrorPropagates(t *testing.T) {
	s, rec := newTestSession(t)
	rec.err = context.Canceled

	err := s.HandleInbound(context.Background(), asterisk.MediaStart{Codec: "ulaw", Channel: "C1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", asterisk.StateIdle.String())
	assert.Equal(t, "active", asterisk.StateActive.String())
	assert.Equal(t, "ended", asterisk.StateEnded.String())
}
