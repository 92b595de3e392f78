package host

import (
	"go.uber.org/zap"
)

// Option defines a functional option for configuring the Executor.
type Option func(*executorConfig)

type executorConfig struct {
	cfg    Config
	logger *zap.Logger
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
	}
}

// WithConfig replaces the whole configuration. Options after it still apply.
func WithConfig(cfg Config) Option {
	return func(c *executorConfig) {
		c.cfg = cfg
	}
}

// WithLogger sets the logger for executor lifecycle, guest logs and aborts.
func WithLogger(l *zap.Logger) Option {
	return func(c *executorConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxPayload sets the largest frame payload accepted from a guest.
func WithMaxPayload(n uint32) Option {
	return func(c *executorConfig) {
		c.cfg.MaxPayload = n
	}
}

// WithMemoryLimitPages caps guest linear memory in 64KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *executorConfig) {
		c.cfg.MemoryLimitPages = pages
	}
}

// WithHostModuleName sets the import module name guests link against.
func WithHostModuleName(name string) Option {
	return func(c *executorConfig) {
		c.cfg.HostModuleName = name
	}
}
