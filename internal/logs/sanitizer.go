package logs

import (
	"regexp"

	"go.uber.org/zap/zapcore"
)

// subscriptionSecret matches credential-like query parameters in subscription URLs,
// e.g. https://example.com/sub?token=abcdef.
var subscriptionSecret = regexp.MustCompile(`(?i)([?&](?:token|key|secret|password|passwd|auth)=)([^&#\s"]+)`)

// SecretSanitizer wraps a zapcore.Core to mask subscription credentials before they reach a sink
type SecretSanitizer struct {
	zapcore.Core
}

// NewSecretSanitizer creates a new sanitizing core that wraps the provided core
func NewSecretSanitizer(core zapcore.Core) *SecretSanitizer {
	return &SecretSanitizer{Core: core}
}

// SanitizeString masks credential query values in s
func SanitizeString(s string) string {
	return subscriptionSecret.ReplaceAllStringFunc(s, func(match string) string {
		parts := subscriptionSecret.FindStringSubmatch(match)
		if len(parts) != 3 {
			return match
		}
		return parts[1] + maskValue(parts[2])
	})
}

// Write sanitizes the entry before writing
func (s *SecretSanitizer) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	entry.Message = SanitizeString(entry.Message)

	sanitizedFields := make([]zapcore.Field, len(fields))
	for i, field := range fields {
		sanitizedFields[i] = sanitizeField(field)
	}

	return s.Core.Write(entry, sanitizedFields)
}

func sanitizeField(field zapcore.Field) zapcore.Field {
	switch field.Type {
	case zapcore.StringType:
		field.String = SanitizeString(field.String)
	case zapcore.ByteStringType:
		if b, ok := field.Interface.([]byte); ok {
			field.Interface = []byte(SanitizeString(string(b)))
		}
	}
	return field
}

// With creates a sanitizing child core
func (s *SecretSanitizer) With(fields []zapcore.Field) zapcore.Core {
	sanitizedFields := make([]zapcore.Field, len(fields))
	for i, field := range fields {
		sanitizedFields[i] = sanitizeField(field)
	}
	return &SecretSanitizer{Core: s.Core.With(sanitizedFields)}
}

// Check delegates to the wrapped core
func (s *SecretSanitizer) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if s.Enabled(entry.Level) {
		return checkedEntry.AddCore(entry, s)
	}
	return checkedEntry
}

// maskValue masks a secret value showing first 3 and last 2 characters
func maskValue(value string) string {
	if len(value) <= 5 {
		return "****"
	}
	if len(value) <= 8 {
		return value[:2] + "****"
	}
	return value[:3] + "***" + value[len(value)-2:]
}
