package progression

import (
	"fmt"

	"github.com/skillbridge/skillbridge/server/apperr"
)

// Requirement is the gate on a task or opportunity listing.
type Requirement struct {
	MinReadiness int
	MinPhase     Phase // empty: no phase gate
}

// Eligibility is the result of evaluating a Requirement.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// EvaluateEligibility checks p against req. When both gates fail the
// readiness gap is the one reported.
func (e *Engine) EvaluateEligibility(p Progress, req Requirement) (Eligibility, error) {
	const op = "progression.EvaluateEligibility"
	if !p.CurrentPhase.Valid() {
		return Eligibility{}, apperr.InvalidInput(op, "unknown phase %q", p.CurrentPhase)
	}
	if req.MinPhase != "" && !req.MinPhase.Valid() {
		return Eligibility{}, apperr.InvalidInput(op, "unknown required phase %q", req.MinPhase)
	}
	if req.MinReadiness < 0 || req.MinReadiness > 100 {
		return Eligibility{}, apperr.InvalidInput(op, "required readiness out of range: %d", req.MinReadiness)
	}

	if p.ReadinessScore < req.MinReadiness {
		return Eligibility{
			Reason: fmt.Sprintf("Requires readiness %d%% (current %d%%)", req.MinReadiness, p.ReadinessScore),
		}, nil
	}
	if req.MinPhase != "" && p.CurrentPhase.Rank() < req.MinPhase.Rank() {
		return Eligibility{
			Reason: fmt.Sprintf("Unlocks in the %s phase (current %s)", req.MinPhase, p.CurrentPhase),
		}, nil
	}
	return Eligibility{Eligible: true}, nil
}
