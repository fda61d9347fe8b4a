package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// bgCtx is used for the metric recording calls in this package: every
// Sink method is a fire-and-forget instrument update with no request
// context of its own (callers report after the fact, not mid-request).
func bgCtx() context.Context {
	return context.Background()
}

func attrString(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}
