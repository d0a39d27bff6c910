package progression

import (
	"fmt"
	"time"
)

// Rules holds the tunable constants of the engine.
type Rules struct {
	// AdvanceThresholds maps each non-terminal phase to the readiness needed
	// to leave it.
	AdvanceThresholds map[Phase]int
	// MinPhaseActivity is the number of lessons plus simulations that must
	// be completed inside a phase before it can be left.
	MinPhaseActivity  map[Phase]int
	ReadinessWindow   int
	ReadinessHalfLife float64 // in samples
	CreditDivisor     int
	SkillSwapCredits  int
	Location          *time.Location
}

// DefaultRules returns the stock rule table.
func DefaultRules() Rules {
	return Rules{
		AdvanceThresholds: map[Phase]int{
			PhaseLifeSkills:  40,
			PhaseMoneySkills: 60,
			PhasePractice:    80,
		},
		MinPhaseActivity: map[Phase]int{
			PhaseLifeSkills:  1,
			PhaseMoneySkills: 2,
			PhasePractice:    3,
		},
		ReadinessWindow:   10,
		ReadinessHalfLife: 3,
		CreditDivisor:     10,
		SkillSwapCredits:  5,
		Location:          time.UTC,
	}
}

// Validate checks that thresholds are strictly increasing across phases and
// the numeric constants are usable.
func (r Rules) Validate() error {
	prev := -1
	for _, p := range Phases {
		if p.Terminal() {
			continue
		}
		th, ok := r.AdvanceThresholds[p]
		if !ok {
			return fmt.Errorf("progression: missing advance threshold for %s", p)
		}
		if th < 0 || th > 100 {
			return fmt.Errorf("progression: threshold for %s out of range: %d", p, th)
		}
		if th <= prev {
			return fmt.Errorf("progression: thresholds must increase, %s has %d after %d", p, th, prev)
		}
		prev = th
		if r.MinPhaseActivity[p] < 0 {
			return fmt.Errorf("progression: negative minimum activity for %s", p)
		}
	}
	if r.ReadinessWindow <= 0 {
		return fmt.Errorf("progression: readiness window must be positive")
	}
	if r.ReadinessHalfLife <= 0 {
		return fmt.Errorf("progression: readiness half-life must be positive")
	}
	if r.CreditDivisor <= 0 {
		return fmt.Errorf("progression: credit divisor must be positive")
	}
	if r.SkillSwapCredits < 0 {
		return fmt.Errorf("progression: skill swap credits must not be negative")
	}
	return nil
}
