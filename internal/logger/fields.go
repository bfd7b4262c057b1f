package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldCapability is the log key for the capability family (generation, synthesis, ...).
	FieldCapability = "capability"
	// FieldBackend is the log key for the vendor backend serving a call.
	FieldBackend = "backend"
	// FieldModel is the log key for the model identifier, when a backend has one.
	FieldModel = "model"
	// FieldInterview is the log key for the interview identifier.
	FieldInterview = "interview_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, trimming whitespace and
// omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}
		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// ProviderFields describes a capability backend in log entries.
func ProviderFields(capability, backend, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldCapability, Value: capability},
		StringField{Key: FieldBackend, Value: backend},
		StringField{Key: FieldModel, Value: model},
	)
}

// ForProvider returns logger scoped to one capability backend.
func ForProvider(logger *zap.Logger, capability, backend, model string) *zap.Logger {
	return WithFields(logger, ProviderFields(capability, backend, model)...)
}
