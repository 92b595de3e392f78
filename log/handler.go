// Package log provides structured logging (slog) for guests. On wasip1 every
// record is encoded in the wire format and handed to the host through the
// fress_host.log_message import; importing the package installs the handler
// as the slog default. Native builds print records locally instead.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
)

// WasmLogHandler implements slog.Handler to route logs through a host function.
type WasmLogHandler struct {
	opts   handlerConfig
	attrs  []slog.Attr
	groups []string
}

// HandlerOption configures the WasmLogHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Leveler
	addSource bool
	out       io.Writer
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
		out:   os.Stderr,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level will be filtered on the guest side.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file:line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithOutput sets where native builds print records. It has no effect on
// wasip1, where records go to the host.
func WithOutput(w io.Writer) HandlerOption {
	return func(c *handlerConfig) {
		c.out = w
	}
}

// NewHandler creates a new WasmLogHandler with the given options.
func NewHandler(opts ...HandlerOption) *WasmLogHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &WasmLogHandler{opts: cfg}
}

// Enabled reports whether the handler handles records at the given level.
func (h *WasmLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// WithAttrs returns a new WasmLogHandler that includes the given attributes.
func (h *WasmLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := h.clone()
	nh.attrs = append(nh.attrs, qualify(h.groups, attrs)...)
	return nh
}

// WithGroup returns a new WasmLogHandler with the given group name.
func (h *WasmLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := h.clone()
	nh.groups = append(nh.groups, name)
	return nh
}

// Handle serializes a slog.Record and delivers it.
func (h *WasmLogHandler) Handle(_ context.Context, record slog.Record) error {
	return h.deliver(h.build(record).ToValue())
}

func (h *WasmLogHandler) build(record slog.Record) Record {
	own := make([]slog.Attr, 0, record.NumAttrs())
	record.Attrs(func(a slog.Attr) bool {
		own = append(own, a)
		return true
	})
	attrs := append(slices.Clone(h.attrs), qualify(h.groups, own)...)
	return newRecord(record, attrs, h.opts.addSource)
}

func (h *WasmLogHandler) clone() *WasmLogHandler {
	return &WasmLogHandler{
		opts:   h.opts,
		attrs:  slices.Clip(h.attrs),
		groups: slices.Clip(h.groups),
	}
}

// qualify nests attrs under the open groups, innermost last.
func qualify(groups []string, attrs []slog.Attr) []slog.Attr {
	if len(groups) == 0 || len(attrs) == 0 {
		return attrs
	}
	out := attrs
	for i := len(groups) - 1; i >= 0; i-- {
		anys := make([]any, len(out))
		for j, a := range out {
			anys[j] = a
		}
		out = []slog.Attr{slog.Group(groups[i], anys...)}
	}
	return out
}
