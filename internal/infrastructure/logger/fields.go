package logger

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tenant is the structured field used for every per-tenant log line.
func Tenant(id uuid.UUID) zap.Field {
	return zap.String("tenant_id", id.String())
}

// Job names a scheduled job in log output.
func Job(name string) zap.Field {
	return zap.String("job", name)
}

// Platform names an integration platform in log output.
func Platform(name string) zap.Field {
	return zap.String("platform", name)
}

// Redacted logs that a sensitive value was present without its content.
func Redacted(key string, value string) zap.Field {
	if value == "" {
		return zap.String(key, "")
	}
	return zap.String(key, "[redacted]")
}
