package run

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ahrav/terrabench/internal/domain"
)

// Emitter consumes progress events. Emit must not block; the coordinator
// calls it inline between attempts and stages.
type Emitter interface {
	Emit(event domain.ProgressEvent)
}

// NopEmitter discards events.
type NopEmitter struct{}

func (NopEmitter) Emit(domain.ProgressEvent) {}

// LogEmitter writes each event as one structured log line.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates an emitter backed by the default logger.
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{logger: slog.Default().With("component", "run")}
}

func (e *LogEmitter) Emit(event domain.ProgressEvent) {
	e.logger.Info("progress",
		"event", event.Type,
		"run_id", event.RunID,
		"task_id", event.TaskID,
		"model_id", event.ModelID,
		"stage", event.Stage,
		"iteration", event.Iteration,
		"status", event.Status)
}

// RingEmitter retains the most recent events in a fixed-size ring for the
// control surface to serve.
type RingEmitter struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
	limit  int
}

// NewRingEmitter creates a ring retaining up to limit events.
func NewRingEmitter(limit int) *RingEmitter {
	return &RingEmitter{limit: limit}
}

func (e *RingEmitter) Emit(event domain.ProgressEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	if len(e.events) > e.limit {
		e.events = e.events[len(e.events)-e.limit:]
	}
}

// Recent returns the retained events, oldest first.
func (e *RingEmitter) Recent() []domain.ProgressEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.ProgressEvent(nil), e.events...)
}

// MultiEmitter fans events out to several emitters.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(event domain.ProgressEvent) {
	for _, e := range m {
		e.Emit(event)
	}
}

func stampEvent(event domain.ProgressEvent) domain.ProgressEvent {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return event
}
