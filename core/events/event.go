package events

import (
	"log/slog"
	"sort"
)

// Event is a structured state change emitted by the trading engine.
type Event interface {
	EventType() string
}

// Attributed is implemented by events that expose a flat key/value payload in
// addition to their type tag.
type Attributed interface {
	Event
	EventAttributes() map[string]string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards every event. It is the engine's default Emitter so
// components can emit unconditionally.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// LogEmitter writes every event to a structured logger. It serves deployments
// with no subscriber transport wired, keeping the audit trail in the log
// stream.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter returns an Emitter that records events on logger.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit implements the Emitter interface. Attribute keys are sorted so the log
// lines stay stable across runs.
func (l *LogEmitter) Emit(evt Event) {
	if l == nil || l.logger == nil || evt == nil {
		return
	}
	args := []any{slog.String("event", evt.EventType())}
	if attributed, ok := evt.(Attributed); ok {
		attrs := attributed.EventAttributes()
		keys := make([]string, 0, len(attrs))
		for key := range attrs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			args = append(args, slog.String(key, attrs[key]))
		}
	}
	l.logger.Info("event emitted", args...)
}
