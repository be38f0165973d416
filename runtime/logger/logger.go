// Package logger provides structured logging with automatic credential redaction.
//
// This package wraps Go's standard log/slog with convenience functions for:
//   - AWS API call logging (service, operation, duration, outcome)
//   - Lifecycle progress messages for stack, flow and invocation steps
//   - Redaction of AWS access keys and session tokens
//   - Contextual logging with flow and prompt identifiers
//
// All exported functions use the global DefaultLogger which can be configured
// for different output formats and log levels.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"
)

var (
	// DefaultLogger is the global structured logger instance.
	// It is safe for concurrent use and initialized with slog.LevelInfo by default.
	DefaultLogger *slog.Logger

	// logOutput is where handlers created by this package write.
	logOutput io.Writer = os.Stderr

	// customHandler is set by SetLogger and survives Configure calls.
	customHandler slog.Handler
)

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}

	DefaultLogger = slog.New(NewContextHandler(slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	})))
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the logging level for all subsequent log operations.
// This replaces the entire logger instance.
func SetLevel(level slog.Level) {
	if customHandler != nil {
		return
	}
	DefaultLogger = slog.New(NewContextHandler(slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	})))
}

// SetVerbose enables debug-level logging when verbose is true, otherwise sets info-level.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// SetOutput redirects log output. Mostly useful in tests.
func SetOutput(w io.Writer) {
	logOutput = w
}

// SetLogger replaces the global logger with one built on handler.
// A nil handler restores the default text handler.
func SetLogger(handler slog.Handler) {
	customHandler = handler
	if handler == nil {
		SetLevel(slog.LevelInfo)
		return
	}
	DefaultLogger = slog.New(handler)
}

// Info logs an informational message with structured key-value attributes.
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs a warning message with context and structured attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs an error message with structured attributes.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// AWSCall logs a completed AWS API call at debug level.
func AWSCall(ctx context.Context, service, operation string, elapsed time.Duration, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"service", service,
		"operation", operation,
		"duration_ms", elapsed.Milliseconds(),
	)
	allAttrs = append(allAttrs, attrs...)
	DebugContext(ctx, "AWS API call", allAttrs...)
}

// AWSError logs a failed AWS API call. The error text is redacted.
func AWSError(ctx context.Context, service, operation string, err error, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"service", service,
		"operation", operation,
		"error", RedactSensitiveData(err.Error()),
	)
	allAttrs = append(allAttrs, attrs...)
	ErrorContext(ctx, "AWS API call failed", allAttrs...)
}

// Step logs a lifecycle progress message.
func Step(ctx context.Context, step string, attrs ...any) {
	allAttrs := make([]any, 0, 2+len(attrs))
	allAttrs = append(allAttrs, "step", step)
	allAttrs = append(allAttrs, attrs...)
	InfoContext(ctx, step, allAttrs...)
}

var (
	// awsSecretPatterns match AWS credential material.
	awsSecretPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:AKIA|ASIA)[A-Z0-9]{16}\b`),                               // access key IDs
		regexp.MustCompile(`(?i)(aws_secret_access_key|secretAccessKey)["'=:\s]+[A-Za-z0-9/+=]{40}`), // secrets
		regexp.MustCompile(`(?i)X-Amz-Security-Token=[A-Za-z0-9%/+=]+`),                    // presigned tokens
		regexp.MustCompile(`Bearer\s+[a-zA-Z0-9_.-]+`),                                     // bearer tokens
	}
)

// RedactSensitiveData removes AWS credentials and tokens from strings.
// Access key IDs keep their first 4 characters so the key type stays visible.
func RedactSensitiveData(input string) string {
	result := input

	for _, pattern := range awsSecretPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			switch {
			case strings.HasPrefix(match, "Bearer "):
				return "Bearer [REDACTED]"
			case strings.HasPrefix(match, "AKIA"), strings.HasPrefix(match, "ASIA"):
				return match[:4] + "...[REDACTED]"
			default:
				if idx := strings.IndexAny(match, "=:"); idx > 0 {
					return match[:idx+1] + "[REDACTED]"
				}
				return "[REDACTED]"
			}
		})
	}

	return result
}
