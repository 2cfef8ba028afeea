package asterisk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Raikerian/go-asterisk-bridge/internal/frames"
	"github.com/Raikerian/go-asterisk-bridge/pkg/audio"
)

var errNoConnection = errors.New("no websocket connection")

// OutboundHandler consumes frames produced by the pipeline.
type OutboundHandler interface {
	HandleOutbound(ctx context.Context, f frames.Frame) error
}

// MessageWriter is the write half of a WebSocket connection.
type MessageWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
}

// OutboundStats counts what an outbound pacer has done.
type OutboundStats struct {
	Frames        uint64
	Chunks        uint64
	StaleChunks   uint64
	DroppedFrames uint64
	FlowTimeouts  uint64
	Flushes       uint64
	WriteErrors   uint64
}

// OutboundPacer delivers pipeline audio to the switch in ptime sized MEDIA
// frames at real-time rate. It owns the socket's write side.
//
// Each send captures the generation counter. Flush bumps it, and any send
// holding an older value stops before its next chunk. XOFF pauses sends for at
// most the configured flow control timeout, after which the rest of the frame
// is dropped.
type OutboundPacer struct {
	logger       *zap.Logger
	settings     Settings
	conn         MessageWriter
	onWriteError func(error)

	writeMu sync.Mutex

	// sendMu serializes audio sends; nextSend is only touched under it.
	sendMu   sync.Mutex
	nextSend time.Time

	mu         sync.Mutex
	configured bool
	params     MediaParams
	chunkSize  int
	resampler  *audio.Resampler

	gate       *flowGate
	generation atomic.Uint64
	ended      atomic.Bool

	frames        atomic.Uint64
	chunks        atomic.Uint64
	staleChunks   atomic.Uint64
	droppedFrames atomic.Uint64
	flowTimeouts  atomic.Uint64
	flushes       atomic.Uint64
	writeErrors   atomic.Uint64
}

var _ OutboundHandler = (*OutboundPacer)(nil)

// NewOutboundPacer creates a pacer writing to conn. onWriteError, if not nil,
// is called for every failed audio write so the owner can tear the
// connection down.
func NewOutboundPacer(logger *zap.Logger, settings Settings, conn MessageWriter, onWriteError func(error)) *OutboundPacer {
	return &OutboundPacer{
		logger:       logger,
		settings:     settings,
		conn:         conn,
		onWriteError: onWriteError,
		gate:         newFlowGate(),
	}
}

// Configure sets the call's codec and rate. Audio sent before Configure is
// dropped.
func (p *OutboundPacer) Configure(params MediaParams) {
	var resampler *audio.Resampler
	if rate := p.settings.pipelineRate(); rate != params.SampleRate {
		resampler, _ = audio.NewResampler(rate, params.SampleRate)
	}
	chunkSize := audio.FrameBytes(params.SampleRate, p.settings.ptime())

	p.mu.Lock()
	p.params = params
	p.chunkSize = chunkSize
	p.resampler = resampler
	p.configured = true
	p.mu.Unlock()

	p.logger.Info("Outbound ready",
		zap.String("call_id", params.CallID),
		zap.Stringer("codec", params.Codec),
		zap.Int("sample_rate", params.SampleRate),
		zap.Int("chunk_bytes", chunkSize))
}

// ChunkSize is the linear PCM size of one ptime packet at the call's rate.
func (p *OutboundPacer) ChunkSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chunkSize
}

// Generation returns the current interruption generation.
func (p *OutboundPacer) Generation() uint64 {
	return p.generation.Load()
}

// HandleOutbound maps a pipeline frame to a pacer operation.
func (p *OutboundPacer) HandleOutbound(ctx context.Context, f frames.Frame) error {
	return p.deliver(ctx, f, p.Generation())
}

func (p *OutboundPacer) deliver(ctx context.Context, f frames.Frame, gen uint64) error {
	switch f := f.(type) {
	case frames.Audio:
		if f.SampleRate != 0 && f.SampleRate != p.settings.pipelineRate() {
			p.droppedFrames.Add(1)
			p.logger.Warn("Dropping audio at unexpected rate",
				zap.Int("sample_rate", f.SampleRate),
				zap.Int("expected", p.settings.pipelineRate()))
			return nil
		}
		return p.sendAudio(ctx, f.PCM, gen)
	case frames.StartInterruption:
		p.Flush()
		return nil
	case frames.End, frames.Cancel:
		p.End()
		return nil
	case frames.CallStart, frames.DTMF, frames.Hangup:
		return nil
	default:
		return fmt.Errorf("unsupported outbound frame %T", f)
	}
}

// SendAudio paces one chunk of pipeline-rate PCM to the switch. It returns nil
// when the frame was dropped because of a flush or a flow control timeout;
// errors mean the socket or ctx failed.
func (p *OutboundPacer) SendAudio(ctx context.Context, pcm []byte) error {
	return p.sendAudio(ctx, pcm, p.Generation())
}

func (p *OutboundPacer) sendAudio(ctx context.Context, pcm []byte, gen uint64) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.mu.Lock()
	configured, codec, chunkSize, resampler := p.configured, p.params.Codec, p.chunkSize, p.resampler
	p.mu.Unlock()

	if !configured || p.ended.Load() || len(pcm) == 0 {
		p.droppedFrames.Add(1)
		return nil
	}

	if resampler != nil {
		pcm = resampler.Resample(pcm)
	}
	p.frames.Add(1)

	total := (len(pcm) + chunkSize - 1) / chunkSize
	for i := 0; i < total; i++ {
		if p.superseded(gen, total-i) {
			return nil
		}

		if err := p.gate.wait(ctx, p.settings.FlowControlTimeout); err != nil {
			if errors.Is(err, errFlowTimeout) {
				p.flowTimeouts.Add(1)
				p.logger.Warn("Flow control timeout, dropping audio",
					zap.Int("chunks_dropped", total-i),
					zap.Duration("timeout", p.settings.FlowControlTimeout))
				return nil
			}
			return err
		}
		if p.superseded(gen, total-i) {
			return nil
		}

		if err := p.pace(ctx); err != nil {
			return err
		}

		end := min((i+1)*chunkSize, len(pcm))
		chunk := audio.PadTo(pcm[i*chunkSize:end], chunkSize)
		encoded, err := audio.Encode(codec, chunk)
		if err != nil {
			return fmt.Errorf("encode chunk: %w", err)
		}
		msg, err := EncodeMedia(encoded)
		if err != nil {
			return fmt.Errorf("marshal media: %w", err)
		}

		if err := p.write(msg); err != nil {
			p.writeErrors.Add(1)
			p.logger.Error("Failed to send audio", zap.Error(err))
			if p.onWriteError != nil {
				p.onWriteError(err)
			}
			return fmt.Errorf("send media: %w", err)
		}
		p.nextSend = time.Now().Add(p.settings.ptime())
		p.chunks.Add(1)
	}

	return nil
}

// superseded reports whether a send holding gen must stop, accounting for the
// remaining chunks it will not send.
func (p *OutboundPacer) superseded(gen uint64, remaining int) bool {
	if p.ended.Load() {
		p.staleChunks.Add(uint64(remaining))
		return true
	}
	if current := p.generation.Load(); current != gen {
		p.staleChunks.Add(uint64(remaining))
		p.logger.Debug("Dropping stale audio after flush",
			zap.Uint64("generation", gen),
			zap.Uint64("current_generation", current),
			zap.Int("chunks_dropped", remaining))
		return true
	}
	return false
}

func (p *OutboundPacer) pace(ctx context.Context) error {
	wait := time.Until(p.nextSend)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush discards queued audio: in-flight sends stop before their next chunk
// and the switch is told to drop its own buffer. It never blocks on pacing.
func (p *OutboundPacer) Flush() {
	gen := p.generation.Add(1)
	p.flushes.Add(1)

	if p.ended.Load() {
		return
	}
	if err := p.write(EncodeFlushMedia()); err != nil {
		p.logger.Warn("Failed to send FLUSH_MEDIA", zap.Uint64("generation", gen), zap.Error(err))
		return
	}
	p.logger.Debug("Sent FLUSH_MEDIA", zap.Uint64("generation", gen))
}

// SetFlowControl applies XOFF (paused) or XON. It never blocks.
func (p *OutboundPacer) SetFlowControl(paused bool) {
	if paused {
		p.logger.Debug("Flow control XOFF")
		p.gate.pause()
		return
	}
	p.logger.Debug("Flow control XON")
	p.gate.resume()
}

// End sends MEDIA_END once. Failures are swallowed since the socket may
// already be gone.
func (p *OutboundPacer) End() {
	if !p.ended.CompareAndSwap(false, true) {
		return
	}
	if err := p.write(EncodeMediaEnd()); err != nil {
		p.logger.Debug("MEDIA_END not delivered", zap.Error(err))
	}
}

// Ended reports whether End has been called.
func (p *OutboundPacer) Ended() bool {
	return p.ended.Load()
}

// Stats returns a snapshot of the pacer counters.
func (p *OutboundPacer) Stats() OutboundStats {
	return OutboundStats{
		Frames:        p.frames.Load(),
		Chunks:        p.chunks.Load(),
		StaleChunks:   p.staleChunks.Load(),
		DroppedFrames: p.droppedFrames.Load(),
		FlowTimeouts:  p.flowTimeouts.Load(),
		Flushes:       p.flushes.Load(),
		WriteErrors:   p.writeErrors.Load(),
	}
}

func (p *OutboundPacer) write(data []byte) error {
	if p.conn == nil {
		return errNoConnection
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if p.settings.WriteTimeout > 0 {
		if err := p.conn.SetWriteDeadline(time.Now().Add(p.settings.WriteTimeout)); err != nil {
			return err
		}
	}
	return p.conn.WriteMessage(websocket.TextMessage, data)
}
