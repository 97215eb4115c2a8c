// Package config loads the TOML configuration for a sessionswitch
// node: MTU and frame sizing for the transport layer, and the action
// queue's timing parameters.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mixsession/core/chainactions"
	"github.com/mixsession/core/session"
)

// SessionConfig is the TOML-facing mirror of session.Config: field
// names match the wire config file rather than the Go package's
// naming, and durations are parsed from strings like "30s".
type SessionConfig struct {
	MTU                int    `toml:"mtu"`
	FrameSize          int    `toml:"frame_size"`
	ReassemblyMaxAge   string `toml:"reassembly_max_age"`
	ReassemblyCapacity int    `toml:"reassembly_capacity"`
	SequencerMaxWait   string `toml:"sequencer_max_wait"`
	SequencerCapacity  int    `toml:"sequencer_capacity"`
	QueueDepth         int    `toml:"queue_depth"`
	DefaultTimeout     string `toml:"default_timeout"`
}

// ToSessionConfig converts the parsed TOML fields into session.Config,
// parsing its duration strings.
func (c SessionConfig) ToSessionConfig() (session.Config, error) {
	maxAge, err := time.ParseDuration(orDefault(c.ReassemblyMaxAge, "30s"))
	if err != nil {
		return session.Config{}, fmt.Errorf("reassembly_max_age: %w", err)
	}
	maxWait, err := time.ParseDuration(orDefault(c.SequencerMaxWait, "5s"))
	if err != nil {
		return session.Config{}, fmt.Errorf("sequencer_max_wait: %w", err)
	}
	defaultTimeout, err := time.ParseDuration(orDefault(c.DefaultTimeout, "30s"))
	if err != nil {
		return session.Config{}, fmt.Errorf("default_timeout: %w", err)
	}

	return session.Config{
		MTU:                c.MTU,
		FrameSize:          c.FrameSize,
		ReassemblyMaxAge:   maxAge,
		ReassemblyCapacity: c.ReassemblyCapacity,
		SequencerMaxWait:   maxWait,
		SequencerCapacity:  c.SequencerCapacity,
		QueueDepth:         c.QueueDepth,
		DefaultTimeout:     defaultTimeout,
	}, nil
}

// ActionQueueConfig is the TOML-facing mirror of
// chainactions.ActionQueueConfig.
type ActionQueueConfig struct {
	MaxActionConfirmationWait string `toml:"max_action_confirmation_wait"`
	AntiBatchingDelay         string `toml:"anti_batching_delay"`
	QueueDepth                int    `toml:"queue_depth"`
}

// ToActionQueueConfig converts the parsed TOML fields into
// chainactions.ActionQueueConfig, parsing its duration strings.
func (c ActionQueueConfig) ToActionQueueConfig() (chainactions.ActionQueueConfig, error) {
	defaults := chainactions.DefaultActionQueueConfig()

	maxWait, err := time.ParseDuration(orDefault(c.MaxActionConfirmationWait, defaults.MaxActionConfirmationWait.String()))
	if err != nil {
		return chainactions.ActionQueueConfig{}, fmt.Errorf("max_action_confirmation_wait: %w", err)
	}
	antiBatching, err := time.ParseDuration(orDefault(c.AntiBatchingDelay, defaults.AntiBatchingDelay.String()))
	if err != nil {
		return chainactions.ActionQueueConfig{}, fmt.Errorf("anti_batching_delay: %w", err)
	}

	depth := c.QueueDepth
	if depth <= 0 {
		depth = defaults.QueueDepth
	}

	return chainactions.ActionQueueConfig{
		MaxActionConfirmationWait: maxWait,
		AntiBatchingDelay:         antiBatching,
		QueueDepth:                depth,
	}, nil
}

// Config is the top-level node configuration file.
type Config struct {
	Session     SessionConfig     `toml:"session"`
	ActionQueue ActionQueueConfig `toml:"action_queue"`
	ListenAddr  string            `toml:"listen_addr"`
	MetricsAddr string            `toml:"metrics_addr"`
}

// Load reads and parses a TOML config file at path.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config %s: %w", path, err)
	}
	return cfg, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
