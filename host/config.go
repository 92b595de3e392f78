package host

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/reglet-dev/fress-sdk/infrastructure/wazero"
)

const (
	// DefaultMaxPayload bounds a produced frame's payload (16MB).
	DefaultMaxPayload = 16 << 20

	// DefaultMemoryLimitPages caps guest linear memory (256 pages = 16MB).
	DefaultMemoryLimitPages = 256
)

// Config is the host configuration, usually loaded from a TOML file.
type Config struct {
	// HostModuleName is the import module guests link against.
	HostModuleName string `toml:"host_module_name" json:"host_module_name" validate:"required,max=64" jsonschema:"default=fress_host"`

	// MaxPayload is the largest frame payload the host accepts from a guest.
	MaxPayload uint32 `toml:"max_payload" json:"max_payload" validate:"min=1" jsonschema:"minimum=1,default=16777216"`

	// MaxLogRecord is the largest log record the host reads from a guest.
	MaxLogRecord uint32 `toml:"max_log_record" json:"max_log_record" validate:"min=1" jsonschema:"minimum=1,default=1048576"`

	// MemoryLimitPages caps each guest's linear memory in 64KiB pages.
	MemoryLimitPages uint32 `toml:"memory_limit_pages" json:"memory_limit_pages" validate:"min=1,max=65536" jsonschema:"minimum=1,maximum=65536,default=256"`

	Log LogConfig `toml:"log" json:"log"`
}

// LogConfig selects the host logger.
type LogConfig struct {
	Level       string `toml:"level" json:"level" validate:"omitempty,oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
	Format      string `toml:"format" json:"format" validate:"omitempty,oneof=console json" jsonschema:"enum=console,enum=json,default=console"`
	Development bool   `toml:"development" json:"development"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		HostModuleName:   wazero.DefaultModuleName,
		MaxPayload:       DefaultMaxPayload,
		MaxLogRecord:     wazero.DefaultMaxRequestSize,
		MemoryLimitPages: DefaultMemoryLimitPages,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

var validate = validator.New()

// Validate checks the configuration against its struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid host config: %w", err)
	}
	return nil
}

// LoadConfig reads a TOML file over DefaultConfig. Unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return checkDecoded(cfg, meta)
}

// ParseConfig decodes TOML text over DefaultConfig.
func ParseConfig(data string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return checkDecoded(cfg, meta)
}

func checkDecoded(cfg Config, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewLogger builds the zap logger described by c.
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	var zc zap.Config
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if c.Level != "" {
		level, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	if c.Format != "" {
		zc.Encoding = c.Format
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
