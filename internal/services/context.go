package services

import "context"

type ctxKey int

const (
	taskIDKey ctxKey = iota
	stageKey
	correlationIDKey
)

// WithTask stamps ctx with the queue task id and the correlation id shared by
// every attempt of that task.
func WithTask(ctx context.Context, id uint64, correlationID string) context.Context {
	ctx = context.WithValue(ctx, taskIDKey, id)
	if correlationID != "" {
		ctx = context.WithValue(ctx, correlationIDKey, correlationID)
	}
	return ctx
}

// TaskIDFromContext returns the queue task id set by WithTask.
func TaskIDFromContext(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(taskIDKey).(uint64)
	return id, ok
}

// CorrelationIDFromContext returns the correlation id set by WithTask.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey).(string)
	return id, ok && id != ""
}

// WithStage names the pipeline stage ("scan", "fix") running under ctx. An
// empty stage leaves ctx unchanged.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) {
	stage, ok := ctx.Value(stageKey).(string)
	return stage, ok && stage != ""
}
