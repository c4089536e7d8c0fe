package config

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/sethvargo/go-envconfig"
	"github.com/xaionaro-go/wavdenoise/pkg/audio/frame"
	"github.com/xaionaro-go/wavdenoise/pkg/pipeline"
)

// Config holds the defaults of the command line flags.
type Config struct {
	Engine             string           `env:"WAVDENOISE_ENGINE, default=auto"`
	TailPolicy         frame.TailPolicy `env:"WAVDENOISE_TAIL_POLICY, default=drop"`
	VoiceThreshold     float64          `env:"WAVDENOISE_VOICE_THRESHOLD, default=0.5"`
	LogLevel           string           `env:"WAVDENOISE_LOG_LEVEL, default=info"`
	NetPprofListenAddr string           `env:"WAVDENOISE_NET_PPROF_LISTEN_ADDR"`
}

func NewConfigFromEnv(ctx context.Context) (*Config, error) {
	return newConfig(ctx, envconfig.OsLookuper())
}

func newConfig(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("unable to parse the environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.VoiceThreshold < 0 || c.VoiceThreshold > 1 {
		return fmt.Errorf("the voice threshold must be within [0, 1]: %v", c.VoiceThreshold)
	}
	if _, err := c.LoggerLevel(); err != nil {
		return err
	}
	return nil
}

func (c *Config) LoggerLevel() (logger.Level, error) {
	var level logger.Level
	if err := level.Set(c.LogLevel); err != nil {
		return logger.LevelUndefined, fmt.Errorf("unable to parse the log level '%s': %w", c.LogLevel, err)
	}
	return level, nil
}

func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		TailPolicy:     c.TailPolicy,
		VoiceThreshold: c.VoiceThreshold,
	}
}
