package logger

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
)

// moduleRoot is stripped from function names to derive module names.
const moduleRoot = "github.com/AltairaLabs/PromptFlow/"

// selfModule is this package's module name; frames in it are skipped.
const selfModule = "runtime.logger"

// ContextHandler is a slog.Handler that copies the known context keys
// (flow, alias, prompt, stage...) onto each record before delegating to
// the inner handler.
type ContextHandler struct {
	inner        slog.Handler
	commonFields []slog.Attr
}

// NewContextHandler creates a new ContextHandler wrapping the given handler.
// The commonFields are added to every log record.
func NewContextHandler(inner slog.Handler, commonFields ...slog.Attr) *ContextHandler {
	return &ContextHandler{
		inner:        inner,
		commonFields: commonFields,
	}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enriches r with common and context fields.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, h.enrich(ctx, r, ""))
}

// enrich builds a new record: common fields, then the logger name, then
// context fields, then the record's own attributes.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ContextHandler) enrich(ctx context.Context, r slog.Record, module string) slog.Record {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	out.AddAttrs(h.commonFields...)
	if module != "" {
		out.AddAttrs(slog.String("logger", module))
	}
	if ctx != nil {
		for _, key := range allContextKeys {
			if s, ok := ctx.Value(key).(string); ok && s != "" {
				out.AddAttrs(slog.String(string(key), s))
			}
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(a)
		return true
	})
	return out
}

// WithAttrs returns a new handler with the given attributes added.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:        h.inner.WithAttrs(attrs),
		commonFields: h.commonFields,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{
		inner:        h.inner.WithGroup(name),
		commonFields: h.commonFields,
	}
}

// Unwrap returns the inner handler.
func (h *ContextHandler) Unwrap() slog.Handler {
	return h.inner
}

var _ slog.Handler = (*ContextHandler)(nil)

// ModuleHandler extends ContextHandler with per-module level filtering.
// The module is derived from the call site of the log statement.
type ModuleHandler struct {
	ContextHandler
	moduleConfig *ModuleConfig
}

// NewModuleHandler creates a new ModuleHandler with per-module log level filtering.
func NewModuleHandler(inner slog.Handler, moduleConfig *ModuleConfig, commonFields ...slog.Attr) *ModuleHandler {
	return &ModuleHandler{
		ContextHandler: ContextHandler{inner: inner, commonFields: commonFields},
		moduleConfig:   moduleConfig,
	}
}

// Enabled checks level against the calling module's configured level.
func (h *ModuleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.moduleConfig.LevelFor(callerModule())
}

// Handle drops records below the module level and tags the rest with the
// module name.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ModuleHandler) Handle(ctx context.Context, r slog.Record) error {
	module := moduleFromPC(r.PC)
	if module == "" || module == selfModule {
		module = callerModule()
	}
	if r.Level < h.moduleConfig.LevelFor(module) {
		return nil
	}
	return h.inner.Handle(ctx, h.enrich(ctx, r, module))
}

// WithAttrs returns a new handler with the given attributes added.
func (h *ModuleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ModuleHandler{
		ContextHandler: ContextHandler{inner: h.inner.WithAttrs(attrs), commonFields: h.commonFields},
		moduleConfig:   h.moduleConfig,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *ModuleHandler) WithGroup(name string) slog.Handler {
	return &ModuleHandler{
		ContextHandler: ContextHandler{inner: h.inner.WithGroup(name), commonFields: h.commonFields},
		moduleConfig:   h.moduleConfig,
	}
}

var _ slog.Handler = (*ModuleHandler)(nil)

// callerModule returns the first module on the stack outside this package
// and log/slog.
func callerModule() string {
	const maxDepth = 16
	var pcs [maxDepth]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if module := moduleFromFunction(frame.Function); module != "" && module != selfModule {
			return module
		}
		if !more {
			return ""
		}
	}
}

func moduleFromPC(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return moduleFromFunction(frame.Function)
}

// moduleFromFunction maps a fully qualified function name to a dotted module,
// e.g. "github.com/AltairaLabs/PromptFlow/runtime/flow.(*Manager).Prepare"
// becomes "runtime.flow". Functions outside the module map to "".
func moduleFromFunction(fn string) string {
	idx := strings.Index(fn, moduleRoot)
	if idx == -1 {
		return ""
	}
	path := fn[idx+len(moduleRoot):]

	// The package path ends at the first dot after the last slash.
	pkgStart := strings.LastIndex(path, "/") + 1
	if dot := strings.Index(path[pkgStart:], "."); dot != -1 {
		path = path[:pkgStart+dot]
	}
	return strings.ReplaceAll(path, "/", ".")
}
