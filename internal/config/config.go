package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AgentModeEcho     = "echo"
	AgentModeRealtime = "realtime"
)

// TransportConfig stores the telephony WebSocket transport settings.
type TransportConfig struct {
	Host                 string `yaml:"host"`
	Port                 int    `yaml:"port"`
	Path                 string `yaml:"path"`
	PipelineSampleRate   int    `yaml:"pipeline_sample_rate"`
	PtimeMs              int    `yaml:"ptime_ms"`
	FlowControlTimeoutMs int    `yaml:"flow_control_timeout_ms"`
	WriteTimeoutMs       int    `yaml:"write_timeout_ms"`
	ReadLimitBytes       int64  `yaml:"read_limit_bytes"`
	UpstreamBuffer       int    `yaml:"upstream_buffer"`
	DrainTimeoutMs       int    `yaml:"drain_timeout_ms"`
}

// Addr returns the listen address.
func (t TransportConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// Ptime returns the packet duration.
func (t TransportConfig) Ptime() time.Duration {
	return time.Duration(t.PtimeMs) * time.Millisecond
}

// FlowControlTimeout bounds how long a send waits for XON.
func (t TransportConfig) FlowControlTimeout() time.Duration {
	return time.Duration(t.FlowControlTimeoutMs) * time.Millisecond
}

func (t TransportConfig) WriteTimeout() time.Duration {
	return time.Duration(t.WriteTimeoutMs) * time.Millisecond
}

func (t TransportConfig) DrainTimeout() time.Duration {
	return time.Duration(t.DrainTimeoutMs) * time.Millisecond
}

// AgentConfig selects the pipeline collaborator attached to every call.
type AgentConfig struct {
	Mode        string `yaml:"mode"`
	EchoDelayMs int    `yaml:"echo_delay_ms"`
	RecordDir   string `yaml:"record_dir"`
}

func (a AgentConfig) EchoDelay() time.Duration {
	return time.Duration(a.EchoDelayMs) * time.Millisecond
}

// RealtimeConfig stores OpenAI realtime API settings.
type RealtimeConfig struct {
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	Voice        string `yaml:"voice"`
	Instructions string `yaml:"instructions"`
}

// CallsConfig stores call registry settings.
type CallsConfig struct {
	HistorySize int `yaml:"history_size"`
}

// Config stores the application configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Transport TransportConfig `yaml:"transport"`
	Agent     AgentConfig     `yaml:"agent"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Calls     CallsConfig     `yaml:"calls"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// LoadConfig loads the configuration from the given file path, fills in
// defaults and validates the result.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", filePath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	t := &c.Transport
	if t.Host == "" {
		t.Host = "0.0.0.0"
	}
	if t.Port == 0 {
		t.Port = 8765
	}
	if t.Path == "" {
		t.Path = "/"
	}
	if t.PipelineSampleRate == 0 {
		t.PipelineSampleRate = 16000
	}
	if t.PtimeMs == 0 {
		t.PtimeMs = 20
	}
	if t.FlowControlTimeoutMs == 0 {
		t.FlowControlTimeoutMs = 5000
	}
	if t.WriteTimeoutMs == 0 {
		t.WriteTimeoutMs = 5000
	}
	if t.ReadLimitBytes == 0 {
		t.ReadLimitBytes = 1 << 20
	}
	if t.UpstreamBuffer == 0 {
		t.UpstreamBuffer = 256
	}
	if t.DrainTimeoutMs == 0 {
		t.DrainTimeoutMs = 2000
	}

	if c.Agent.Mode == "" {
		c.Agent.Mode = AgentModeEcho
	}
	if c.Agent.EchoDelayMs == 0 {
		c.Agent.EchoDelayMs = 600
	}

	if c.Realtime.APIKey == "" {
		c.Realtime.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Realtime.Model == "" {
		c.Realtime.Model = "gpt-4o-realtime-preview"
	}
	if c.Realtime.Voice == "" {
		c.Realtime.Voice = "alloy"
	}

	if c.Calls.HistorySize == 0 {
		c.Calls.HistorySize = 256
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}

	t := c.Transport
	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("transport.port %d out of range", t.Port)
	}
	if t.PipelineSampleRate != 16000 {
		return fmt.Errorf("transport.pipeline_sample_rate must be 16000, got %d", t.PipelineSampleRate)
	}
	// The switch only negotiates packet times in 10 ms steps.
	if t.PtimeMs <= 0 || t.PtimeMs > 1000 || t.PtimeMs%10 != 0 {
		return fmt.Errorf("transport.ptime_ms %d is not a valid packet time", t.PtimeMs)
	}
	if t.FlowControlTimeoutMs < 0 || t.WriteTimeoutMs < 0 || t.DrainTimeoutMs < 0 {
		return errors.New("transport timeouts must not be negative")
	}
	if t.UpstreamBuffer < 0 {
		return errors.New("transport.upstream_buffer must not be negative")
	}

	switch c.Agent.Mode {
	case AgentModeEcho:
	case AgentModeRealtime:
		if c.Realtime.APIKey == "" {
			return errors.New("realtime.api_key is required in realtime agent mode")
		}
	default:
		return fmt.Errorf("unknown agent.mode %q", c.Agent.Mode)
	}

	if c.Calls.HistorySize < 0 {
		return errors.New("calls.history_size must not be negative")
	}

	return nil
}
