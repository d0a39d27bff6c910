package roadmap

import (
	"context"

	"github.com/skillbridge/skillbridge/server/progression"
)

const (
	StatusCompleted = "completed"
	StatusCurrent   = "current"
	StatusLocked    = "locked"
)

// PhaseStatus is one step of the roadmap ladder.
type PhaseStatus struct {
	Phase     progression.Phase `json:"phase"`
	Threshold int               `json:"threshold,omitempty"` // readiness needed to leave the phase
	Status    string            `json:"status"`
}

// Summary is the roadmap view of a user's progress.
type Summary struct {
	UserID           string            `json:"userId"`
	CurrentPhase     progression.Phase `json:"currentPhase"`
	ReadinessScore   int               `json:"readinessScore"`
	Credits          int64             `json:"credits"`
	SkillCredits     int64             `json:"skillCredits"`
	TotalXP          int64             `json:"totalXp"`
	CurrentStreak    int               `json:"currentStreak"`
	BestStreak       int               `json:"bestStreak"`
	CompletedLessons []string          `json:"completedLessons"`
	LastActivityDate string            `json:"lastActivityDate,omitempty"` // YYYY-MM-DD
	NextPhase        progression.Phase `json:"nextPhase,omitempty"`
	NextThreshold    int               `json:"nextThreshold,omitempty"`
	PhaseProgress    int               `json:"phaseProgress"` // in-phase activities so far
	PhaseActivityMin int               `json:"phaseActivityMin,omitempty"`
	Phases           []PhaseStatus     `json:"phases"`
	Interests        []string          `json:"interests"`
}

// Summarize builds the roadmap view of p.
func (s *Service) Summarize(p progression.Progress) Summary {
	rules := s.engine.Rules()
	out := Summary{
		UserID:           p.UserID,
		CurrentPhase:     p.CurrentPhase,
		ReadinessScore:   p.ReadinessScore,
		Credits:          p.Credits,
		SkillCredits:     p.SkillCredits,
		TotalXP:          p.TotalXP,
		CurrentStreak:    p.CurrentStreak,
		BestStreak:       p.BestStreak,
		CompletedLessons: p.CompletedLessons,
		PhaseProgress:    p.PhaseLessons + p.PhaseSimulations,
		Interests:        p.Interests,
		Phases:           make([]PhaseStatus, 0, len(progression.Phases)),
	}
	if out.CompletedLessons == nil {
		out.CompletedLessons = []string{}
	}
	if out.Interests == nil {
		out.Interests = []string{}
	}
	if !p.LastActivityDate.IsZero() {
		out.LastActivityDate = p.LastActivityDate.Format("2006-01-02")
	}
	if next, ok := p.CurrentPhase.Next(); ok {
		out.NextPhase = next
		out.NextThreshold, _ = s.engine.Threshold(p.CurrentPhase)
		out.PhaseActivityMin = rules.MinPhaseActivity[p.CurrentPhase]
	}

	rank := p.CurrentPhase.Rank()
	for i, ph := range progression.Phases {
		st := PhaseStatus{Phase: ph, Status: StatusLocked}
		st.Threshold, _ = s.engine.Threshold(ph)
		switch {
		case i < rank:
			st.Status = StatusCompleted
		case i == rank:
			st.Status = StatusCurrent
		}
		out.Phases = append(out.Phases, st)
	}
	return out
}

// GetRoadmap returns the user's roadmap. Users with no stored profile see
// the starting state.
func (s *Service) GetRoadmap(ctx context.Context, userID string) (Summary, error) {
	ctx, span := s.start(ctx, "roadmap.GetRoadmap", userID)
	p, err := s.current(ctx, userID)
	endSpan(span, err)
	if err != nil {
		return Summary{}, err
	}
	return s.Summarize(p), nil
}

// Profile returns the stored progress. Unlike GetRoadmap it reports
// NotFound for users that have never been active.
func (s *Service) Profile(ctx context.Context, userID string) (progression.Progress, error) {
	ctx, span := s.start(ctx, "roadmap.Profile", userID)
	p, err := s.store.Get(ctx, userID)
	endSpan(span, err)
	return p, err
}
