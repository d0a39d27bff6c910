// Package activity keeps a short per-user feed of recent progression events
// in a capped cache list.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skillbridge/skillbridge/server/cache"
	"github.com/skillbridge/skillbridge/server/hook"
	"github.com/skillbridge/skillbridge/server/progression"
)

const DefaultSize = 50

// Entry is one feed item.
type Entry struct {
	Event               hook.Event        `json:"event"`
	Subject             string            `json:"subject,omitempty"`
	At                  time.Time         `json:"at"`
	XPAwarded           int64             `json:"xpAwarded,omitempty"`
	CreditsAwarded      int64             `json:"creditsAwarded,omitempty"`
	SkillCreditsAwarded int64             `json:"skillCreditsAwarded,omitempty"`
	ReadinessAfter      int               `json:"readinessAfter"`
	Phase               progression.Phase `json:"phase"`
}

// Feed stores entries under activity:<uid>, newest first.
type Feed struct {
	cache cache.Cache
	size  int
}

func NewFeed(c cache.Cache, size int) *Feed {
	if size <= 0 {
		size = DefaultSize
	}
	return &Feed{cache: c, size: size}
}

func key(userID string) string { return "activity:" + userID }

// Record appends ev to the user's feed and trims it to the feed size.
func (f *Feed) Record(ctx context.Context, ev *hook.ProgressEvent) error {
	e := Entry{
		Event:               ev.Name,
		Subject:             ev.Subject,
		At:                  ev.At,
		XPAwarded:           ev.Outcome.XPAwarded,
		CreditsAwarded:      ev.Outcome.CreditsAwarded,
		SkillCreditsAwarded: ev.Outcome.SkillCreditsAwarded,
		ReadinessAfter:      ev.Progress.ReadinessScore,
		Phase:               ev.Progress.CurrentPhase,
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	k := key(ev.UserID)
	if err := f.cache.LPush(ctx, k, string(raw)); err != nil {
		return fmt.Errorf("activity push: %w", err)
	}
	return f.cache.LTrim(ctx, k, 0, int64(f.size-1))
}

// List returns up to limit entries, newest first.
func (f *Feed) List(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > f.size {
		limit = f.size
	}
	raw, err := f.cache.LRange(ctx, key(userID), 0, int64(limit-1))
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
