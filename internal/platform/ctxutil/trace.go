package ctxutil

import "context"

type traceDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// Detach keeps trace ids but drops the parent's deadline and cancellation, for
// work that must outlive the request that started it.
func Detach(parent context.Context, base context.Context) context.Context {
	if base == nil {
		base = context.Background()
	}
	if td := GetTraceData(parent); td != nil {
		copied := *td
		return WithTraceData(base, &copied)
	}
	return base
}
