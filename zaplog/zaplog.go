// Package zaplog adapts zap to the worldstore.Logf hook.
package zaplog

import (
	"context"
	"strings"

	"go.mercari.io/worldstore"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// New builds a sugared logger. mode "prod" or "production" selects the
// JSON production config, anything else the development config.
func New(mode string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// Logf writes every line at debug level. When ctx carries a span
// its trace and span ids are attached.
func Logf(l *zap.SugaredLogger) worldstore.Logf {
	return func(ctx context.Context, format string, args ...interface{}) {
		sc := trace.SpanContextFromContext(ctx)
		if sc.IsValid() {
			l.With(
				"trace_id", sc.TraceID().String(),
				"span_id", sc.SpanID().String(),
			).Debugf(format, args...)
			return
		}
		l.Debugf(format, args...)
	}
}
