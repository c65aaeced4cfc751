package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/progress-pipeline/internal/progress"
)

// Log emits structured logs for every event. It is useful during development
// or when the bar is disabled and a human still wants to follow along.
type Log struct {
	logger *zap.Logger
}

// NewLog wires a Zap logger to the handler interface.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Handle logs evt using structured fields for its variant.
func (h *Log) Handle(_ context.Context, evt progress.Event) error {
	fields := []zap.Field{zap.String("kind", string(evt.Kind))}
	switch evt.Kind {
	case progress.KindStatus:
		fields = append(fields, zap.String("text", evt.Text))
	case progress.KindProgress:
		fields = append(fields, zap.Uint64("current", evt.Current), zap.Uint64("max", evt.Max))
		if evt.Current > evt.Max {
			h.logger.Debug("progress exceeds max", fields...)
		}
	case progress.KindLifecycle:
		fields = append(fields, zap.String("lifecycle", string(evt.Lifecycle.Kind)))
		if evt.Lifecycle.Detail != "" {
			fields = append(fields, zap.String("detail", evt.Lifecycle.Detail))
		}
	}
	h.logger.Info("progress event", fields...)
	return nil
}

// Finish logs that the stream ended.
func (h *Log) Finish(context.Context) error {
	h.logger.Info("progress stream finished")
	return nil
}
