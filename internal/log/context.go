// SPDX-License-Identifier: MIT

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	tenantKey    ctxKey = "tenant"
	referenceKey ctxKey = "reference"
)

// ContextWithRequestID stores the provided request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithParticipant stores the tenant and participant reference in the context.
func ContextWithParticipant(ctx context.Context, tenant, reference string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, tenantKey, tenant)
	return context.WithValue(ctx, referenceKey, reference)
}

// RequestIDFromContext extracts the request ID from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// ParticipantFromContext extracts the tenant and reference from context if present.
func ParticipantFromContext(ctx context.Context) (tenant, reference string) {
	if ctx == nil {
		return "", ""
	}
	if v, ok := ctx.Value(tenantKey).(string); ok {
		tenant = v
	}
	if v, ok := ctx.Value(referenceKey).(string); ok {
		reference = v
	}
	return tenant, reference
}

// WithContext enriches the supplied logger with correlation fields from context.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	builder := logger.With()
	added := false
	if rid := RequestIDFromContext(ctx); rid != "" {
		builder = builder.Str(FieldRequestID, rid)
		added = true
	}
	if tenant, reference := ParticipantFromContext(ctx); tenant != "" || reference != "" {
		if tenant != "" {
			builder = builder.Str(FieldTenant, tenant)
		}
		if reference != "" {
			builder = builder.Str(FieldReference, reference)
		}
		added = true
	}
	if !added {
		return logger
	}
	return builder.Logger()
}
