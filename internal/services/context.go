package services

import "context"

// jobScope identifies the job a context is working for. Each With* call
// stores a copy so parent contexts are never affected.
type jobScope struct {
	itemID    int64
	hasItem   bool
	stage     string
	requestID string
}

type scopeKey struct{}

func scopeOf(ctx context.Context) jobScope {
	scope, _ := ctx.Value(scopeKey{}).(jobScope)
	return scope
}

func withScope(ctx context.Context, edit func(*jobScope)) context.Context {
	scope := scopeOf(ctx)
	edit(&scope)
	return context.WithValue(ctx, scopeKey{}, scope)
}

// WithItemID tags ctx with the queue item being processed.
func WithItemID(ctx context.Context, id int64) context.Context {
	return withScope(ctx, func(s *jobScope) { s.itemID, s.hasItem = id, true })
}

// ItemIDFromContext returns the queue item set by WithItemID.
func ItemIDFromContext(ctx context.Context) (int64, bool) {
	scope := scopeOf(ctx)
	return scope.itemID, scope.hasItem
}

// WithStage tags ctx with a pipeline stage; blank stages leave ctx as is.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return withScope(ctx, func(s *jobScope) { s.stage = stage })
}

// StageFromContext returns the stage set by WithStage.
func StageFromContext(ctx context.Context) (string, bool) {
	stage := scopeOf(ctx).stage
	return stage, stage != ""
}

// WithRequestID tags ctx with the job's public request id, logged as the
// correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return withScope(ctx, func(s *jobScope) { s.requestID = id })
}

// RequestIDFromContext returns the id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id := scopeOf(ctx).requestID
	return id, id != ""
}
