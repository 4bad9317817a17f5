// Package config loads runtime settings from an optional YAML file with
// environment overrides, and derives the action policy from them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"screen-agent/internal/domain/entity"
)

type Settings struct {
	Proposer struct {
		Provider       string  `mapstructure:"provider"`
		Model          string  `mapstructure:"model"`
		Temperature    float64 `mapstructure:"temperature"`
		MaxTokens      int     `mapstructure:"maxTokens"`
		MinConfidence  float64 `mapstructure:"minConfidence"`
		TimeoutSeconds int     `mapstructure:"timeoutSeconds"`
	} `mapstructure:"proposer"`

	Run struct {
		MaxActionsPerIteration int  `mapstructure:"maxActionsPerIteration"`
		InterActionDelayMs     int  `mapstructure:"interActionDelayMs"`
		IterationDelayMs       int  `mapstructure:"iterationDelayMs"`
		Continuous             bool `mapstructure:"continuous"`
	} `mapstructure:"run"`

	Limits struct {
		MaxPixelDelta float64  `mapstructure:"maxPixelDelta"`
		MaxDx         float64  `mapstructure:"maxDx"`
		MaxDy         float64  `mapstructure:"maxDy"`
		AllowedKeys   []string `mapstructure:"allowedKeys"`
	} `mapstructure:"limits"`

	Convergence struct {
		Window    int     `mapstructure:"window"`
		Threshold float64 `mapstructure:"threshold"`
	} `mapstructure:"convergence"`

	Target struct {
		Backend         string `mapstructure:"backend"`
		FocusTitle      string `mapstructure:"focusTitle"`
		CalibrationPath string `mapstructure:"calibrationPath"`
		ReferencePath   string `mapstructure:"referencePath"`
		SessionsDir     string `mapstructure:"sessionsDir"`
	} `mapstructure:"target"`
}

// Load reads settings from path when it exists; a missing file falls back to
// defaults so a bare checkout still runs. Every key is overridable through
// AGENT_-prefixed environment variables.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("proposer.provider", "openai")
	v.SetDefault("proposer.model", "gpt-4o")
	v.SetDefault("proposer.temperature", 0.2)
	v.SetDefault("proposer.maxTokens", 1500)
	v.SetDefault("proposer.minConfidence", 0.3)
	v.SetDefault("proposer.timeoutSeconds", 90)

	v.SetDefault("run.maxActionsPerIteration", 5)
	v.SetDefault("run.interActionDelayMs", 100)
	v.SetDefault("run.iterationDelayMs", 1000)
	v.SetDefault("run.continuous", false)

	v.SetDefault("limits.maxPixelDelta", 300.0)
	v.SetDefault("limits.maxDx", 400.0)
	v.SetDefault("limits.maxDy", 400.0)
	v.SetDefault("limits.allowedKeys", []string{
		"ctrl", "cmd", "shift", "alt", "z", "y", "tab", "enter", "escape",
		"up", "down", "left", "right",
	})

	v.SetDefault("convergence.window", 5)
	v.SetDefault("convergence.threshold", 0.001)

	v.SetDefault("target.backend", "desktop")
	v.SetDefault("target.focusTitle", "DaVinci Resolve")
	v.SetDefault("target.calibrationPath", "controllerConfig.json")
	v.SetDefault("target.referencePath", "reference.png")
	v.SetDefault("target.sessionsDir", "sessions")
}

// Policy derives the validator and executor limits from the settings.
func (s *Settings) Policy() entity.Policy {
	return entity.Policy{
		MaxPixelDelta:          s.Limits.MaxPixelDelta,
		MaxDx:                  s.Limits.MaxDx,
		MaxDy:                  s.Limits.MaxDy,
		AllowedKeys:            entity.AllowKeys(s.Limits.AllowedKeys),
		MaxActionsPerIteration: s.Run.MaxActionsPerIteration,
		InterActionDelay:       time.Duration(s.Run.InterActionDelayMs) * time.Millisecond,
		IterationDelay:         time.Duration(s.Run.IterationDelayMs) * time.Millisecond,
		ConvergenceWindow:      s.Convergence.Window,
		ConvergenceThreshold:   s.Convergence.Threshold,
		MinConfidence:          s.Proposer.MinConfidence,
		FocusTitle:             s.Target.FocusTitle,
	}
}

// ProposerTimeout returns the per-request deadline for proposer calls.
func (s *Settings) ProposerTimeout() time.Duration {
	return time.Duration(s.Proposer.TimeoutSeconds) * time.Second
}
