// Package calls keeps track of calls handled by the bridge: the ones in
// progress and a bounded history of finished ones.
package calls

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/Raikerian/go-asterisk-bridge/internal/asterisk"
	"github.com/Raikerian/go-asterisk-bridge/internal/config"
	"github.com/Raikerian/go-asterisk-bridge/pkg/audio"
)

type State string

const (
	StateActive State = "active"
	StateEnded  State = "ended"
)

// Record describes one call.
type Record struct {
	CallID       string
	ConnectionID string
	RemoteAddr   string
	Codec        audio.Codec
	SampleRate   int
	State        State
	StartTime    time.Time
	EndTime      time.Time
	Inbound      asterisk.InboundStats
	Outbound     asterisk.OutboundStats
}

// Duration is how long the call lasted, or has lasted so far.
func (r Record) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

type Registry interface {
	// Start records a call that has negotiated media.
	Start(info asterisk.CallInfo) error

	// End moves an active call into history.
	End(info asterisk.CallInfo) (Record, error)

	// Get returns an active call, or the most recent ended one with that id.
	Get(callID string) (Record, error)

	// Active returns the calls in progress ordered by start time.
	Active() []Record

	// History returns ended calls, oldest first.
	History() []Record
}

type registry struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	active  map[string]*Record
	history *lru.Cache[string, Record]
}

// NewRegistry creates a registry keeping up to cfg.Calls.HistorySize ended
// calls.
func NewRegistry(logger *zap.Logger, cfg *config.Config) (Registry, error) {
	size := cfg.Calls.HistorySize
	if size <= 0 {
		size = 1
	}
	history, err := lru.New[string, Record](size)
	if err != nil {
		return nil, err
	}

	return &registry{
		logger:  logger.Named("calls"),
		active:  make(map[string]*Record),
		history: history,
	}, nil
}

func (r *registry) Start(info asterisk.CallInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.active[info.CallID]; exists {
		r.logger.Warn("Call id already active",
			zap.String("call_id", info.CallID),
			zap.String("conn_id", info.ConnectionID),
			zap.String("active_conn_id", existing.ConnectionID))
		return ErrCallAlreadyActive
	}

	start := info.StartedAt
	if start.IsZero() {
		start = time.Now()
	}
	r.active[info.CallID] = &Record{
		CallID:       info.CallID,
		ConnectionID: info.ConnectionID,
		RemoteAddr:   info.RemoteAddr,
		Codec:        info.Codec,
		SampleRate:   info.SampleRate,
		State:        StateActive,
		StartTime:    start,
	}

	r.logger.Info("Call started",
		zap.String("call_id", info.CallID),
		zap.String("remote_addr", info.RemoteAddr),
		zap.Stringer("codec", info.Codec),
		zap.Int("active_calls", len(r.active)))

	return nil
}

func (r *registry) End(info asterisk.CallInfo) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.active[info.CallID]
	if !exists || rec.ConnectionID != info.ConnectionID {
		return Record{}, ErrCallNotFound
	}

	rec.State = StateEnded
	rec.EndTime = time.Now()
	rec.Inbound = info.Inbound
	rec.Outbound = info.Outbound

	delete(r.active, info.CallID)
	r.history.Add(info.CallID, *rec)

	r.logger.Info("Call ended",
		zap.String("call_id", rec.CallID),
		zap.Duration("duration", rec.Duration()),
		zap.Uint64("audio_frames_in", rec.Inbound.AudioFrames),
		zap.Uint64("chunks_out", rec.Outbound.Chunks),
		zap.Uint64("flushes", rec.Outbound.Flushes),
		zap.Uint64("flow_timeouts", rec.Outbound.FlowTimeouts))

	return *rec, nil
}

func (r *registry) Get(callID string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, exists := r.active[callID]; exists {
		return *rec, nil
	}
	if rec, ok := r.history.Peek(callID); ok {
		return rec, nil
	}
	return Record{}, ErrCallNotFound
}

func (r *registry) Active() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]Record, 0, len(r.active))
	for rec := range maps.Values(r.active) {
		records = append(records, *rec)
	}
	slices.SortFunc(records, func(a, b Record) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return records
}

func (r *registry) History() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.history.Values()
}

// NewHookRegistrations subscribes the registry to call lifecycle hooks.
func NewHookRegistrations(r Registry) []asterisk.HookRegistration {
	return []asterisk.HookRegistration{
		{
			Event: asterisk.HookCallStart,
			Func: func(_ context.Context, info asterisk.CallInfo) error {
				return r.Start(info)
			},
		},
		{
			Event: asterisk.HookCallEnd,
			Func: func(_ context.Context, info asterisk.CallInfo) error {
				_, err := r.End(info)
				return err
			},
		},
	}
}

var (
	ErrCallAlreadyActive = NewCallError("call already active")
	ErrCallNotFound      = NewCallError("call not found")
)

// CallError represents errors specific to call tracking.
type CallError struct {
	message string
}

func NewCallError(message string) *CallError {
	return &CallError{message: message}
}

func (e *CallError) Error() string {
	return e.message
}
