package logger

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"gemini-proxy/types"
)

// ObservabilityLogger provides structured JSONL logging using logrus.
// Every outbound Gemini request is recorded here with its fully-built
// payload; the sink is fire-and-forget and never fails a request.
type ObservabilityLogger struct {
	logger *logrus.Logger
	file   *os.File
}

// Component constants for consistent labeling
const (
	ComponentProxy     = "proxy_core"
	ComponentTransform = "translation"
	ComponentUpstream  = "gemini_upstream"
	ComponentConfig    = "configuration"
)

// Category constants for log classification
const (
	CategoryRequest        = "request"
	CategoryTransformation = "transformation"
	CategorySuccess        = "success"
	CategoryError          = "error"
	CategoryHealth         = "health"
)

// NewObservabilityLogger creates a JSONL event logger under logDir.
func NewObservabilityLogger(logDir string) (*ObservabilityLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	logPath := filepath.Join(logDir, "gemini-proxy.jsonl")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(file)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logger.SetLevel(logrus.InfoLevel)

	return &ObservabilityLogger{
		logger: logger,
		file:   file,
	}, nil
}

// entry builds a logrus entry with the standard labels
func (o *ObservabilityLogger) entry(component, category, requestID string, fields map[string]interface{}) *logrus.Entry {
	entry := o.logger.WithFields(logrus.Fields{
		"service":   "gemini-proxy",
		"component": component,
		"category":  category,
	})
	if requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	for k, v := range fields {
		entry = entry.WithField(k, v)
	}
	return entry
}

// Info logs an informational event
func (o *ObservabilityLogger) Info(component, category, requestID, message string, fields map[string]interface{}) {
	o.entry(component, category, requestID, fields).Info(message)
}

// Warn logs a warning event
func (o *ObservabilityLogger) Warn(component, category, requestID, message string, fields map[string]interface{}) {
	o.entry(component, category, requestID, fields).Warn(message)
}

// Error logs an error event
func (o *ObservabilityLogger) Error(component, category, requestID, message string, fields map[string]interface{}) {
	o.entry(component, category, requestID, fields).Error(message)
}

// LogRequestEvent records the fully-built Gemini request payload, once per
// outbound request. Serialization failures are swallowed: the event log is
// observability, not a dependency of the request path.
func (o *ObservabilityLogger) LogRequestEvent(requestID, model string, payload *types.GeminiRequest) {
	fields := map[string]interface{}{
		"event": "llm_request_sent",
		"model": model,
	}
	if payload != nil {
		fields["contents"] = len(payload.Contents)
		fields["tools"] = len(payload.Tools)
		if raw, err := json.Marshal(payload); err == nil {
			fields["payload"] = json.RawMessage(raw)
		}
	}
	o.Info(ComponentUpstream, CategoryRequest, requestID, "Gemini request sent", fields)
}

// Close flushes and closes the underlying log file
func (o *ObservabilityLogger) Close() error {
	if o.file != nil {
		return o.file.Close()
	}
	return nil
}
