package logger

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gemini-proxy/internal"
)

// Level represents the severity level of a log message
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of a log level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Emoji returns the emoji prefix for a log level
func (l Level) Emoji() string {
	switch l {
	case DEBUG:
		return "🔍"
	case INFO:
		return "ℹ️"
	case WARN:
		return "⚠️"
	case ERROR:
		return "❌"
	default:
		return "📝"
	}
}

// Logger defines the interface for structured logging
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	WithField(key, value string) Logger
	WithModel(model string) Logger
	WithComponent(component string) Logger
}

// LoggerConfig holds configuration for the logger
type LoggerConfig interface {
	GetMinLogLevel() Level
	ShouldMaskAPIKeys() bool
}

// ContextLogger implements the Logger interface with request-ID-aware formatting
type ContextLogger struct {
	ctx       context.Context
	config    LoggerConfig
	fields    map[string]string
	model     string
	component string
}

// contextKey is used for storing logger in context
type contextKey string

const loggerContextKey contextKey = "logger"

// New creates a new ContextLogger with the given config
func New(ctx context.Context, config LoggerConfig) Logger {
	return &ContextLogger{
		ctx:    ctx,
		config: config,
		fields: make(map[string]string),
	}
}

// FromContext returns a logger from context, or creates a new one if none exists
func FromContext(ctx context.Context, config LoggerConfig) Logger {
	if logger, ok := ctx.Value(loggerContextKey).(Logger); ok {
		return logger
	}
	return New(ctx, config)
}

// WithContext stores the logger in context for later retrieval
func (l *ContextLogger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey, l)
}

// WithField adds a field to the logger context
func (l *ContextLogger) WithField(key, value string) Logger {
	newFields := make(map[string]string, len(l.fields)+1)
	for k, v := range l.fields {
		newFields[k] = v
	}
	newFields[key] = value

	return &ContextLogger{
		ctx:       l.ctx,
		config:    l.config,
		fields:    newFields,
		model:     l.model,
		component: l.component,
	}
}

// WithModel sets the model name included in log lines
func (l *ContextLogger) WithModel(model string) Logger {
	return &ContextLogger{
		ctx:       l.ctx,
		config:    l.config,
		fields:    l.fields,
		model:     model,
		component: l.component,
	}
}

// WithComponent sets the component for the logger
func (l *ContextLogger) WithComponent(component string) Logger {
	return &ContextLogger{
		ctx:       l.ctx,
		config:    l.config,
		fields:    l.fields,
		model:     l.model,
		component: component,
	}
}

// formatMessage creates a structured log message
func (l *ContextLogger) formatMessage(level Level, format string, args ...interface{}) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("%s [%s]", level.Emoji(), level.String()))

	if requestID := internal.GetRequestID(l.ctx); requestID != "" {
		parts = append(parts, fmt.Sprintf("[%s]", requestID))
	}
	if l.component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", l.component))
	}
	if l.model != "" {
		parts = append(parts, fmt.Sprintf("[%s]", l.model))
	}

	message := fmt.Sprintf(format, args...)
	if l.config.ShouldMaskAPIKeys() {
		message = maskAPIKeys(message)
	}
	parts = append(parts, message)

	if len(l.fields) > 0 {
		var fieldParts []string
		for k, v := range l.fields {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%s", k, v))
		}
		parts = append(parts, fmt.Sprintf("fields={%s}", strings.Join(fieldParts, ", ")))
	}

	return strings.Join(parts, " ")
}

// maskAPIKeys masks potential API keys in log messages
func maskAPIKeys(message string) string {
	if idx := strings.Index(message, "key="); idx != -1 {
		end := idx + len("key=")
		for end < len(message) && message[end] != '&' && message[end] != ' ' && message[end] != '"' {
			end++
		}
		message = message[:idx] + "key=***" + message[end:]
	}
	return message
}

func (l *ContextLogger) output(level Level, format string, args ...interface{}) {
	if level < l.config.GetMinLogLevel() {
		return
	}
	log.Println(l.formatMessage(level, format, args...))
}

// Debug logs a debug level message
func (l *ContextLogger) Debug(format string, args ...interface{}) {
	l.output(DEBUG, format, args...)
}

// Info logs an info level message
func (l *ContextLogger) Info(format string, args ...interface{}) {
	l.output(INFO, format, args...)
}

// Warn logs a warning level message
func (l *ContextLogger) Warn(format string, args ...interface{}) {
	l.output(WARN, format, args...)
}

// Error logs an error level message
func (l *ContextLogger) Error(format string, args ...interface{}) {
	l.output(ERROR, format, args...)
}
