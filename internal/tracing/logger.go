package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

func (f Fields) pairs() [4][2]string {
	return [4][2]string{
		{"trace_id", f.TraceID},
		{"request_id", f.RequestID},
		{"instance_id", f.Instance},
		{"table", f.Table},
	}
}

// LoggerFromContext returns base with every non-empty id from ctx attached.
func LoggerFromContext(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	f := FieldsFrom(ctx)
	if f == (Fields{}) {
		return base
	}

	c := base.With()
	for _, kv := range f.pairs() {
		if kv[1] != "" {
			c = c.Str(kv[0], kv[1])
		}
	}
	return c.Logger()
}
