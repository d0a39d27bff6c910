// Package hook fans committed progression events out to observers such as
// the leaderboard, the activity feed, live streams and the audit log.
package hook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/skillbridge/skillbridge/server/progression"
	"go.uber.org/zap"
)

// ErrInterrupt signals that a handler wants to stop further processing.
var ErrInterrupt = errors.New("hook interrupted")

type Event string

const (
	LessonCompleted    Event = "lesson_completed"
	SimulationGraded   Event = "simulation_graded"
	AssessmentRecorded Event = "assessment_recorded"
	PhaseAdvanced      Event = "phase_advanced"
	OpportunityApplied Event = "opportunity_applied"
	SkillSwapAccepted  Event = "skillswap_accepted"

	// All registers a handler for every event.
	All Event = "*"
)

// ProgressEvent describes a change that has already been persisted.
type ProgressEvent struct {
	Name     Event                `json:"event"`
	UserID   string               `json:"userId"`
	TraceID  string               `json:"traceId,omitempty"`
	At       time.Time            `json:"at"`
	Subject  string               `json:"subject,omitempty"` // lesson, opportunity or swap id
	Progress progression.Progress `json:"-"`
	Outcome  progression.Outcome  `json:"outcome"`
}

// HookFn handles an event. Returning ErrInterrupt stops lower-priority
// handlers; any other error is logged and the chain continues.
type HookFn func(ctx context.Context, ev *ProgressEvent) error

type hookEntry struct {
	priority int
	seq      int
	fn       HookFn
	name     string
}

// HookCenter manages event hook registrations.
type HookCenter struct {
	mu     sync.RWMutex
	hooks  map[Event][]*hookEntry
	seq    int
	logger *zap.Logger
}

// NewHookCenter creates an empty HookCenter.
func NewHookCenter(logger *zap.Logger) *HookCenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HookCenter{hooks: make(map[Event][]*hookEntry), logger: logger}
}

// Register adds fn for event with the given priority (lower runs first;
// equal priorities run in registration order). name is used for
// Unregister.
func (hc *HookCenter) Register(event Event, priority int, name string, fn HookFn) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.seq++
	entries := append(hc.hooks[event], &hookEntry{priority: priority, seq: hc.seq, fn: fn, name: name})
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return entries[i].seq < entries[j].seq
	})
	hc.hooks[event] = entries
}

// Unregister removes all hooks with the given name for the given event.
func (hc *HookCenter) Unregister(event Event, name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.hooks[event] = without(hc.hooks[event], name)
}

// UnregisterAll removes hooks registered under name across all events.
func (hc *HookCenter) UnregisterAll(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	for event, entries := range hc.hooks {
		hc.hooks[event] = without(entries, name)
	}
}

func without(entries []*hookEntry, name string) []*hookEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.name != name {
			out = append(out, e)
		}
	}
	return out
}

// Trigger runs the handlers for ev.Name and the All handlers, merged in
// priority order. It returns the joined handler errors, if any.
func (hc *HookCenter) Trigger(ctx context.Context, ev *ProgressEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	hc.mu.RLock()
	entries := make([]*hookEntry, 0, len(hc.hooks[ev.Name])+len(hc.hooks[All]))
	entries = append(entries, hc.hooks[ev.Name]...)
	if ev.Name != All {
		entries = append(entries, hc.hooks[All]...)
	}
	hc.mu.RUnlock()
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return entries[i].seq < entries[j].seq
	})

	var errs []error
	for _, e := range entries {
		err := e.fn(ctx, ev)
		if errors.Is(err, ErrInterrupt) {
			break
		}
		if err != nil {
			hc.logger.Warn("hook failed",
				zap.String("hook", e.name),
				zap.String("event", string(ev.Name)),
				zap.String("user_id", ev.UserID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}
