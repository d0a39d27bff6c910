package progression

import (
	"strings"

	"github.com/skillbridge/skillbridge/server/apperr"
)

// Phase is a stage in the curriculum. Phases are totally ordered.
type Phase string

const (
	PhaseLifeSkills  Phase = "life_skills"
	PhaseMoneySkills Phase = "money_skills"
	PhasePractice    Phase = "practice"
	PhaseEarn        Phase = "earn"
)

// Phases lists every phase in progression order.
var Phases = []Phase{PhaseLifeSkills, PhaseMoneySkills, PhasePractice, PhaseEarn}

// Rank returns the zero-based position of p, or -1 for an unknown phase.
func (p Phase) Rank() int {
	for i, ph := range Phases {
		if ph == p {
			return i
		}
	}
	return -1
}

func (p Phase) Valid() bool { return p.Rank() >= 0 }

// Next returns the following phase. The last phase has no successor.
func (p Phase) Next() (Phase, bool) {
	r := p.Rank()
	if r < 0 || r+1 >= len(Phases) {
		return "", false
	}
	return Phases[r+1], true
}

// Terminal reports whether p is the final phase.
func (p Phase) Terminal() bool { return p.Rank() == len(Phases)-1 }

// ParsePhase validates a phase name. Surrounding whitespace and case are
// ignored.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", apperr.InvalidInput("progression.ParsePhase", "unknown phase %q", s)
	}
	return p, nil
}
