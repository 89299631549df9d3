package services

import "context"

type contextKey string

const (
	sceneKey     contextKey = "scene"
	paragraphKey contextKey = "paragraph"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithScene annotates context with the scene content digest.
func WithScene(ctx context.Context, digest string) context.Context {
	if digest == "" {
		return ctx
	}
	return context.WithValue(ctx, sceneKey, digest)
}

// SceneFromContext extracts the scene content digest if present.
func SceneFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sceneKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithParagraph annotates context with the 1-based paragraph position within
// its scene.
func WithParagraph(ctx context.Context, position int) context.Context {
	return context.WithValue(ctx, paragraphKey, position)
}

// ParagraphFromContext extracts the paragraph position if present.
func ParagraphFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(paragraphKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithStage annotates context with the render stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
