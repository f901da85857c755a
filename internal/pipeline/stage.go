package pipeline

import (
	"context"
	"sync"
)

// Stage is a step of a summarization run as reported to observers.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageFetching    Stage = "fetching"
	StageSummarizing Stage = "summarizing"
	StageMapping     Stage = "mapping"
	StageReducing    Stage = "reducing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Event is one progress notification. Completed/Total count files while
// fetching and chunks while mapping.
type Event struct {
	Stage     Stage  `json:"stage"`
	Completed int    `json:"completed,omitempty"`
	Total     int    `json:"total,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Observer receives progress events. Calls are serialised per run.
type Observer func(Event)

type ctxKeyObserver struct{}

type observerSlot struct {
	mu sync.Mutex
	fn Observer
}

// WithObserver attaches an observer to every run started with ctx.
func WithObserver(ctx context.Context, fn Observer) context.Context {
	if fn == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyObserver{}, &observerSlot{fn: fn})
}

func observe(ctx context.Context, ev Event) {
	slot, _ := ctx.Value(ctxKeyObserver{}).(*observerSlot)
	if slot == nil {
		return
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	slot.fn(ev)
}
