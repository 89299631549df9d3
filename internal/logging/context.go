package logging

import (
	"context"
	"log/slog"

	"clapper/internal/services"
)

// ContextFields extracts the scene, paragraph, stage, and correlation attrs
// carried by ctx, in that order.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if digest, ok := services.SceneFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldScene, digest))
	}
	if position, ok := services.ParagraphFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldParagraph, position))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns logger augmented with ContextFields(ctx). A nil logger
// falls back to the no-op logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
