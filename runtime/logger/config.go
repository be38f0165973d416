package logger

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/AltairaLabs/PromptFlow/pkg/config"
)

// ModuleConfig holds per-module log levels. Module names are dotted package
// paths relative to the module root, e.g. "runtime.flow". A level set on a
// parent applies to every child that has no level of its own.
type ModuleConfig struct {
	defaultLevel slog.Level
	modules      map[string]slog.Level
	mu           sync.RWMutex
}

// NewModuleConfig creates a new ModuleConfig with the given default level.
func NewModuleConfig(defaultLevel slog.Level) *ModuleConfig {
	return &ModuleConfig{
		defaultLevel: defaultLevel,
		modules:      make(map[string]slog.Level),
	}
}

// SetModuleLevel sets the log level for a specific module.
func (m *ModuleConfig) SetModuleLevel(module string, level slog.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[module] = level
}

// SetDefaultLevel sets the default log level.
func (m *ModuleConfig) SetDefaultLevel(level slog.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = level
}

// LevelFor returns the log level for module, walking up the dotted hierarchy
// until a configured ancestor is found.
func (m *ModuleConfig) LevelFor(module string) slog.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for {
		if level, ok := m.modules[module]; ok {
			return level
		}
		lastDot := strings.LastIndex(module, ".")
		if lastDot == -1 {
			return m.defaultLevel
		}
		module = module[:lastDot]
	}
}

// HasOverrides reports whether any module level is configured.
func (m *ModuleConfig) HasOverrides() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.modules) > 0
}

var globalModuleConfig = NewModuleConfig(slog.LevelInfo)

// Configure applies the logging section of a PromptFlow config to the
// global logger. A handler installed with SetLogger is left in place.
func Configure(cfg *config.LoggingConfigSpec) error {
	if cfg == nil || customHandler != nil {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	defaultLevel := slog.LevelInfo
	if cfg.DefaultLevel != "" {
		defaultLevel = ParseLevel(cfg.DefaultLevel)
	}

	commonFields := make([]slog.Attr, 0, len(cfg.CommonFields))
	for k, v := range cfg.CommonFields {
		commonFields = append(commonFields, slog.String(k, v))
	}

	moduleConfig := NewModuleConfig(defaultLevel)
	for _, mod := range cfg.Modules {
		moduleConfig.SetModuleLevel(mod.Name, ParseLevel(mod.Level))
	}
	globalModuleConfig = moduleConfig

	initLoggerWithConfig(defaultLevel, commonFields, moduleConfig, cfg.Format == config.LogFormatJSON)
	return nil
}

func initLoggerWithConfig(level slog.Level, commonFields []slog.Attr, moduleConfig *ModuleConfig, useJSON bool) {
	baseLevel := level
	if moduleConfig.HasOverrides() {
		// The module handler filters; let every record through to it.
		baseLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: baseLevel}

	var baseHandler slog.Handler
	if useJSON {
		baseHandler = slog.NewJSONHandler(logOutput, opts)
	} else {
		baseHandler = slog.NewTextHandler(logOutput, opts)
	}

	var handler slog.Handler
	if moduleConfig.HasOverrides() {
		handler = NewModuleHandler(baseHandler, moduleConfig, commonFields...)
	} else {
		handler = NewContextHandler(baseHandler, commonFields...)
	}

	DefaultLogger = slog.New(handler)
}

// GetModuleConfig returns the global module configuration.
func GetModuleConfig() *ModuleConfig {
	return globalModuleConfig
}
