package events

import (
	"log/slog"

	"synthd/core/types"
)

// LogEmitter writes every event as a structured log line.
type LogEmitter struct {
	Logger *slog.Logger
}

// Emit implements Emitter.
func (l LogEmitter) Emit(ev Event) {
	if ev == nil {
		return
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"type", ev.EventType()}
	if payloaded, ok := ev.(interface{ Event() *types.Event }); ok {
		if payload := payloaded.Event(); payload != nil {
			for key, value := range payload.Attributes {
				attrs = append(attrs, key, value)
			}
		}
	}
	logger.Info("event", attrs...)
}
