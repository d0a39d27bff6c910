package roadmap

import (
	"context"
	"strings"

	"github.com/skillbridge/skillbridge/server/apperr"
	"github.com/skillbridge/skillbridge/server/db"
	"github.com/skillbridge/skillbridge/server/hook"
	"github.com/skillbridge/skillbridge/server/model"
	"github.com/skillbridge/skillbridge/server/progression"
	"github.com/skillbridge/skillbridge/server/resource"
)

// OpportunityView is a listing annotated for one user.
type OpportunityView struct {
	resource.Opportunity
	Locked       bool   `json:"locked"`
	LockedReason string `json:"lockedReason,omitempty"`
	Applied      bool   `json:"applied"`
}

// ListOpportunities returns every listing with the user's lock state.
// Locked listings are included so clients can show what unlocks next.
func (s *Service) ListOpportunities(ctx context.Context, userID string) ([]OpportunityView, error) {
	const op = "roadmap.ListOpportunities"
	ctx, span := s.start(ctx, op, userID)
	var err error
	defer func() { endSpan(span, err) }()

	p, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	var applied []string
	if err = s.db.WithContext(ctx).Model(&model.OpportunityApplication{}).
		Where("user_id = ?", userID).Pluck("opportunity_id", &applied).Error; err != nil {
		err = apperr.External(op, err)
		return nil, err
	}
	done := make(map[string]struct{}, len(applied))
	for _, id := range applied {
		done[id] = struct{}{}
	}

	opps := s.catalog.Current().Opportunities
	out := make([]OpportunityView, 0, len(opps))
	for _, o := range opps {
		var el progression.Eligibility
		if el, err = s.engine.EvaluateEligibility(p, o.Requirement()); err != nil {
			return nil, err
		}
		_, isApplied := done[o.ID]
		out = append(out, OpportunityView{
			Opportunity:  o,
			Locked:       !el.Eligible,
			LockedReason: el.Reason,
			Applied:      isApplied,
		})
	}
	return out, nil
}

const maxNoteLen = 2000

// ApplyOpportunity records an application to an unlocked listing. A user
// may apply to each listing once.
func (s *Service) ApplyOpportunity(ctx context.Context, userID, oppID, note string) (model.OpportunityApplication, error) {
	const op = "roadmap.ApplyOpportunity"
	ctx, span := s.start(ctx, op, userID)
	var err error
	defer func() { endSpan(span, err) }()

	opp, ok := s.catalog.Current().Opportunity(strings.TrimSpace(oppID))
	if !ok {
		err = apperr.NotFound(op, "opportunity")
		return model.OpportunityApplication{}, err
	}
	note = strings.TrimSpace(note)
	if len(note) > maxNoteLen {
		err = apperr.InvalidInput(op, "note is longer than %d characters", maxNoteLen)
		return model.OpportunityApplication{}, err
	}
	p, err := s.current(ctx, userID)
	if err != nil {
		return model.OpportunityApplication{}, err
	}
	el, err := s.engine.EvaluateEligibility(p, opp.Requirement())
	if err != nil {
		return model.OpportunityApplication{}, err
	}
	if !el.Eligible {
		err = apperr.Locked(op, el.Reason)
		return model.OpportunityApplication{}, err
	}

	app := model.OpportunityApplication{
		UserID:        userID,
		OpportunityID: opp.ID,
		Note:          note,
		Status:        model.ApplicationSubmitted,
	}
	if err = s.db.WithContext(ctx).Create(&app).Error; err != nil {
		if db.IsUniqueViolation(err) {
			err = apperr.New(op, apperr.ErrConflict, "already applied to this opportunity")
		} else {
			err = apperr.External(op, err)
		}
		return model.OpportunityApplication{}, err
	}

	s.emit(ctx, hook.ProgressEvent{
		Name:     hook.OpportunityApplied,
		UserID:   userID,
		Subject:  opp.ID,
		Progress: p,
		Outcome: progression.Outcome{
			StreakBefore:    p.CurrentStreak,
			StreakAfter:     p.CurrentStreak,
			ReadinessBefore: p.ReadinessScore,
			ReadinessAfter:  p.ReadinessScore,
			FromPhase:       p.CurrentPhase,
			ToPhase:         p.CurrentPhase,
		},
	})
	return app, nil
}
