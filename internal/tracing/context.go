package tracing

import (
	"context"

	"github.com/google/uuid"
)

type fieldsKey struct{}

// Fields are the correlation ids carried on a context and copied onto log lines.
type Fields struct {
	TraceID   string
	RequestID string
	Instance  string
	Table     string
}

// FieldsFrom returns the ids stored on ctx. A nil ctx yields the zero value.
func FieldsFrom(ctx context.Context) Fields {
	if ctx == nil {
		return Fields{}
	}
	f, _ := ctx.Value(fieldsKey{}).(Fields)
	return f
}

func withFields(ctx context.Context, update func(*Fields)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	f := FieldsFrom(ctx)
	update(&f)
	return context.WithValue(ctx, fieldsKey{}, f)
}

// NewTraceID generates a trace id for work that has no span
func NewTraceID() string { return uuid.NewString() }

// NewRequestID generates an id for one queue submission
func NewRequestID() string { return uuid.NewString() }

func WithTraceID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *Fields) { f.TraceID = id })
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *Fields) { f.RequestID = id })
}

// WithInstanceID records the runtime instance a request targets
func WithInstanceID(ctx context.Context, instance string) context.Context {
	return withFields(ctx, func(f *Fields) { f.Instance = instance })
}

// WithTable records the table being profiled
func WithTable(ctx context.Context, table string) context.Context {
	return withFields(ctx, func(f *Fields) { f.Table = table })
}

func GetTraceID(ctx context.Context) string { return FieldsFrom(ctx).TraceID }

func GetRequestID(ctx context.Context) string { return FieldsFrom(ctx).RequestID }
