// Package progression implements the progression and unlock rules: XP and
// streak accumulation, readiness scoring, phase advancement and
// eligibility. It performs no I/O; persistence belongs to the caller.
package progression

import (
	"time"

	"github.com/skillbridge/skillbridge/server/apperr"
)

// GradeSource names the grader that produced a simulation score.
type GradeSource string

const (
	SourceRemote GradeSource = "remote"
	SourceLocal  GradeSource = "local"
)

func (s GradeSource) Valid() bool { return s == SourceRemote || s == SourceLocal }

// SimulationResult is a graded simulation attempt as seen by the engine.
type SimulationResult struct {
	Score    int
	Phase    Phase // phase the attempt was taken in; empty means current
	GradedBy GradeSource
}

// Outcome describes what an operation changed.
type Outcome struct {
	XPAwarded           int64       `json:"xpAwarded"`
	CreditsAwarded      int64       `json:"creditsAwarded"`
	SkillCreditsAwarded int64       `json:"skillCreditsAwarded"`
	AlreadyCompleted    bool        `json:"alreadyCompleted,omitempty"`
	StreakBefore        int         `json:"streakBefore"`
	StreakAfter         int         `json:"streakAfter"`
	ReadinessBefore     int         `json:"readinessBefore"`
	ReadinessAfter      int         `json:"readinessAfter"`
	GradedBy            GradeSource `json:"gradedBy,omitempty"`
	Advanced            bool        `json:"advanced"`
	FromPhase           Phase       `json:"fromPhase"`
	ToPhase             Phase       `json:"toPhase"`
}

// Engine applies progression rules. It holds only immutable rules and is
// safe for concurrent use.
type Engine struct {
	rules Rules
}

// NewEngine validates r and returns an Engine.
func NewEngine(r Rules) (*Engine, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.Location == nil {
		r.Location = time.UTC
	}
	return &Engine{rules: r}, nil
}

// Rules returns the engine's rule table.
func (e *Engine) Rules() Rules { return e.rules }

// Threshold returns the readiness needed to leave phase p. ok is false for
// the terminal phase.
func (e *Engine) Threshold(p Phase) (th int, ok bool) {
	th, ok = e.rules.AdvanceThresholds[p]
	return th, ok && !p.Terminal()
}

// ApplyLessonCompletion records a completed lesson. Re-completing a lesson
// awards nothing but still counts as activity for the streak.
func (e *Engine) ApplyLessonCompletion(p Progress, lessonID string, xpAward int64, now time.Time) (Progress, Outcome, error) {
	const op = "progression.ApplyLessonCompletion"
	if lessonID == "" {
		return p, Outcome{}, apperr.InvalidInput(op, "lesson id is required")
	}
	if xpAward < 0 {
		return p, Outcome{}, apperr.InvalidInput(op, "xp award must not be negative: %d", xpAward)
	}
	if err := checkState(op, p); err != nil {
		return p, Outcome{}, err
	}

	next := p.Clone()
	out := e.begin(next)

	if next.HasCompleted(lessonID) {
		out.AlreadyCompleted = true
	} else {
		next.TotalXP += xpAward
		next.addLesson(lessonID)
		next.PhaseLessons++
		out.XPAwarded = xpAward
	}
	e.recordActivity(&next, now)

	next = e.finish(next, &out)
	return next, out, nil
}

// ApplySimulationResult folds a graded simulation score into readiness and
// credits. Only attempts taken in the current phase count as phase activity.
func (e *Engine) ApplySimulationResult(p Progress, r SimulationResult) (Progress, Outcome, error) {
	const op = "progression.ApplySimulationResult"
	if r.Score < 0 || r.Score > 100 {
		return p, Outcome{}, apperr.InvalidInput(op, "score must be within 0-100, got %d", r.Score)
	}
	if !r.GradedBy.Valid() {
		return p, Outcome{}, apperr.InvalidInput(op, "unknown grader %q", r.GradedBy)
	}
	if r.Phase != "" && !r.Phase.Valid() {
		return p, Outcome{}, apperr.InvalidInput(op, "unknown phase %q", r.Phase)
	}
	if err := checkState(op, p); err != nil {
		return p, Outcome{}, err
	}

	next := p.Clone()
	out := e.begin(next)
	out.GradedBy = r.GradedBy

	e.pushReadiness(&next, r.Score)
	credits := int64(r.Score / e.rules.CreditDivisor)
	next.Credits += credits
	if r.Phase == "" || r.Phase == p.CurrentPhase {
		next.PhaseSimulations++
	}
	out.CreditsAwarded = credits

	next = e.finish(next, &out)
	return next, out, nil
}

// ApplyAssessment seeds readiness with a self-assessment score. It counts
// toward readiness only: no credits, no phase activity.
func (e *Engine) ApplyAssessment(p Progress, score int) (Progress, Outcome, error) {
	const op = "progression.ApplyAssessment"
	if score < 0 || score > 100 {
		return p, Outcome{}, apperr.InvalidInput(op, "score must be within 0-100, got %d", score)
	}
	if err := checkState(op, p); err != nil {
		return p, Outcome{}, err
	}

	next := p.Clone()
	out := e.begin(next)
	e.pushReadiness(&next, score)
	next = e.finish(next, &out)
	return next, out, nil
}

// ApplySkillSwap credits a completed skill exchange.
func (e *Engine) ApplySkillSwap(p Progress) (Progress, Outcome, error) {
	const op = "progression.ApplySkillSwap"
	if err := checkState(op, p); err != nil {
		return p, Outcome{}, err
	}

	next := p.Clone()
	out := e.begin(next)
	award := int64(e.rules.SkillSwapCredits)
	next.SkillCredits += award
	out.SkillCreditsAwarded = award
	next = e.finish(next, &out)
	return next, out, nil
}

// CheckPhaseAdvance moves p forward by at most one phase when the current
// phase's readiness threshold and activity minimum are both met.
func (e *Engine) CheckPhaseAdvance(p Progress) (Progress, bool) {
	if !p.CurrentPhase.Valid() {
		return p, false
	}
	threshold, ok := e.Threshold(p.CurrentPhase)
	if !ok {
		return p, false
	}
	if p.ReadinessScore < threshold || p.phaseActivity() < e.rules.MinPhaseActivity[p.CurrentPhase] {
		return p, false
	}
	nextPhase, ok := p.CurrentPhase.Next()
	if !ok {
		return p, false
	}
	next := p.Clone()
	next.CurrentPhase = nextPhase
	next.PhaseLessons = 0
	next.PhaseSimulations = 0
	return next, true
}

func (e *Engine) pushReadiness(p *Progress, score int) {
	p.RecentScores = pushScore(p.RecentScores, score, e.rules.ReadinessWindow)
	p.ReadinessScore = Readiness(p.RecentScores, e.rules.ReadinessHalfLife)
}

func (e *Engine) begin(p Progress) Outcome {
	return Outcome{
		StreakBefore:    p.CurrentStreak,
		ReadinessBefore: p.ReadinessScore,
		FromPhase:       p.CurrentPhase,
	}
}

func (e *Engine) finish(p Progress, out *Outcome) Progress {
	p, out.Advanced = e.CheckPhaseAdvance(p)
	out.StreakAfter = p.CurrentStreak
	out.ReadinessAfter = p.ReadinessScore
	out.ToPhase = p.CurrentPhase
	return p
}

func checkState(op string, p Progress) error {
	if !p.CurrentPhase.Valid() {
		return apperr.InvalidInput(op, "unknown phase %q", p.CurrentPhase)
	}
	if p.TotalXP < 0 || p.Credits < 0 || p.SkillCredits < 0 {
		return apperr.InvalidInput(op, "negative balance for user %s", p.UserID)
	}
	return nil
}
