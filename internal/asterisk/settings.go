package asterisk

import (
	"time"

	"github.com/Raikerian/go-asterisk-bridge/internal/config"
	"github.com/Raikerian/go-asterisk-bridge/pkg/audio"
)

// Settings holds the per-connection transport parameters.
type Settings struct {
	Addr               string
	Path               string
	PipelineSampleRate int
	Ptime              time.Duration
	FlowControlTimeout time.Duration
	WriteTimeout       time.Duration
	ReadLimit          int64
	UpstreamBuffer     int
	DrainTimeout       time.Duration
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default())
}

// SettingsFromConfig derives transport settings from the application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	t := cfg.Transport
	return Settings{
		Addr:               t.Addr(),
		Path:               t.Path,
		PipelineSampleRate: t.PipelineSampleRate,
		Ptime:              t.Ptime(),
		FlowControlTimeout: t.FlowControlTimeout(),
		WriteTimeout:       t.WriteTimeout(),
		ReadLimit:          t.ReadLimitBytes,
		UpstreamBuffer:     t.UpstreamBuffer,
		DrainTimeout:       t.DrainTimeout(),
	}
}

func (s Settings) pipelineRate() int {
	if s.PipelineSampleRate <= 0 {
		return audio.PipelineSampleRate
	}
	return s.PipelineSampleRate
}

func (s Settings) ptime() time.Duration {
	if s.Ptime <= 0 {
		return audio.DefaultPtime
	}
	return s.Ptime
}
