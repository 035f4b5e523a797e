package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Period records the billing period (YYYY-MM) under the key "period".
func Period(period string) slog.Attr {
	return slog.String("period", period)
}

// Batch groups the batch identifier, offset and size under the key "batch".
func Batch(id string, offset, size int) slog.Attr {
	return slog.Group("batch",
		slog.String("id", id),
		slog.Int("offset", offset),
		slog.Int("size", size),
	)
}

// Count records a counter value under the given key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
