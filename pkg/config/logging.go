package config

import "fmt"

// LoggingConfigSpec defines the logging configuration parameters.
type LoggingConfigSpec struct {
	// DefaultLevel is the default log level for all modules.
	// Supported values: debug, info, warn, error.
	DefaultLevel string `yaml:"defaultLevel,omitempty" mapstructure:"default_level"`

	// Format is "json" for machine-parseable logs or "text" for humans.
	Format string `yaml:"format,omitempty" mapstructure:"format"`

	// CommonFields are key-value pairs added to every log entry.
	CommonFields map[string]string `yaml:"commonFields,omitempty" mapstructure:"common_fields"`

	// Modules configures logging for specific modules.
	// Module names use dot notation (e.g., runtime.flow).
	Modules []ModuleLoggingConfig `yaml:"modules,omitempty" mapstructure:"modules"`
}

// ModuleLoggingConfig configures logging for a specific module.
type ModuleLoggingConfig struct {
	// Name is the module name using dot notation, e.g. "runtime.invoke".
	// More specific names take precedence over less specific ones.
	Name string `yaml:"name" mapstructure:"name"`

	// Level overrides the default level for matching loggers.
	Level string `yaml:"level" mapstructure:"level"`
}

// LogLevel constants for programmatic use.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// LogFormat constants for programmatic use.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Validate validates the LoggingConfigSpec.
func (c *LoggingConfigSpec) Validate() error {
	if c.DefaultLevel != "" && !isValidLogLevel(c.DefaultLevel) {
		return &ValidationError{
			Field:   "defaultLevel",
			Message: "must be one of: debug, info, warn, error",
			Value:   c.DefaultLevel,
		}
	}

	if c.Format != "" && c.Format != LogFormatJSON && c.Format != LogFormatText {
		return &ValidationError{
			Field:   "format",
			Message: "must be one of: json, text",
			Value:   c.Format,
		}
	}

	for i, mod := range c.Modules {
		if mod.Name == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("modules[%d].name", i),
				Message: "module name is required",
			}
		}
		if mod.Level != "" && !isValidLogLevel(mod.Level) {
			return &ValidationError{
				Field:   "modules[" + mod.Name + "].level",
				Message: "must be one of: debug, info, warn, error",
				Value:   mod.Level,
			}
		}
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// ValidationError represents a logging configuration validation error.
type ValidationError struct {
	Field   string
	Message string
	Value   string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return "logging config validation error: " + e.Field + ": " + e.Message + " (got: " + e.Value + ")"
	}
	return "logging config validation error: " + e.Field + ": " + e.Message
}
