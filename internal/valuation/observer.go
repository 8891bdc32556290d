package valuation

import (
	"context"
	"log/slog"
	"sort"
)

// Event is a structured diagnostic raised by the valuation engine.
type Event struct {
	// Name is a stable dotted identifier such as "growth.metric".
	Name    string
	Level   slog.Level
	Message string
	Fields  map[string]any
}

// Observer receives engine events.
type Observer interface {
	Observe(Event)
}

// NopObserver discards every event.
type NopObserver struct{}

// Observe implements Observer.
func (NopObserver) Observe(Event) {}

// SlogObserver forwards events to a structured logger.
type SlogObserver struct {
	Logger *slog.Logger
}

// NewSlogObserver returns an observer writing to logger.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	return &SlogObserver{Logger: logger}
}

// Observe implements Observer. Fields are logged in key order so output is
// stable between runs.
func (o *SlogObserver) Observe(e Event) {
	if o == nil || o.Logger == nil {
		return
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	attrs = append(attrs, slog.String("event", e.Name))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, e.Fields[k]))
	}
	o.Logger.LogAttrs(context.Background(), e.Level, e.Message, attrs...)
}

// orNop guards against a nil observer.
func orNop(o Observer) Observer {
	if o == nil {
		return NopObserver{}
	}
	return o
}
