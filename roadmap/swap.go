package roadmap

import (
	"context"
	"errors"
	"strconv"

	"github.com/skillbridge/skillbridge/server/apperr"
	"github.com/skillbridge/skillbridge/server/hook"
	"github.com/skillbridge/skillbridge/server/model"
	"github.com/skillbridge/skillbridge/server/progression"
	"github.com/skillbridge/skillbridge/server/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SwapResult is returned by AcceptSkillSwap.
type SwapResult struct {
	Swap    model.SkillSwap     `json:"swap"`
	Outcome progression.Outcome `json:"outcome"`
	Roadmap Summary             `json:"roadmap"`
}

// AcceptSkillSwap claims an open swap for acceptorID and awards skill
// credits to both sides. The claim commits with the acceptor's award; the
// owner's award is a separate update.
func (s *Service) AcceptSkillSwap(ctx context.Context, acceptorID string, swapID int64) (SwapResult, error) {
	const op = "roadmap.AcceptSkillSwap"
	ctx, span := s.start(ctx, op, acceptorID)
	var err error
	defer func() { endSpan(span, err) }()

	var swap model.SkillSwap
	if err = s.db.WithContext(ctx).First(&swap, swapID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperr.NotFound(op, "skill swap")
		} else {
			err = apperr.External(op, err)
		}
		return SwapResult{}, err
	}
	if swap.OwnerID == acceptorID {
		err = apperr.InvalidInput(op, "cannot accept your own skill swap")
		return SwapResult{}, err
	}
	if swap.Status != model.SwapOpen {
		err = apperr.New(op, apperr.ErrConflict, "skill swap is no longer open")
		return SwapResult{}, err
	}

	now := s.now().UTC()
	var out progression.Outcome
	next, err := s.store.Update(ctx, acceptorID,
		func(cur progression.Progress) (progression.Progress, error) {
			p, o, err := s.engine.ApplySkillSwap(cur)
			out = o
			return p, err
		},
		store.WithTx(func(tx *gorm.DB, _ progression.Progress) error {
			res := tx.Model(&model.SkillSwap{}).
				Where("id = ? AND status = ?", swapID, model.SwapOpen).
				Updates(map[string]interface{}{
					"status":      model.SwapAccepted,
					"partner_id":  acceptorID,
					"accepted_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.New(op, apperr.ErrConflict, "skill swap is no longer open")
			}
			return nil
		}),
	)
	if err != nil {
		return SwapResult{}, err
	}
	swap.Status = model.SwapAccepted
	swap.PartnerID = &acceptorID
	swap.AcceptedAt = &now

	subject := swapSubject(swapID)
	s.emit(ctx, hook.ProgressEvent{
		Name:     hook.SkillSwapAccepted,
		UserID:   acceptorID,
		Subject:  subject,
		Progress: next,
		Outcome:  out,
	})
	if err := s.AwardSkillSwap(ctx, swap.OwnerID, subject); err != nil {
		// The claim is committed; the owner's credits can be re-awarded by
		// an operator.
		s.logger.Error("award skill swap owner",
			zap.String("owner_id", swap.OwnerID), zap.Int64("swap_id", swapID), zap.Error(err))
	}
	return SwapResult{Swap: swap, Outcome: out, Roadmap: s.Summarize(next)}, nil
}

// AwardSkillSwap grants one completed swap's skill credits to userID.
func (s *Service) AwardSkillSwap(ctx context.Context, userID, subject string) error {
	const op = "roadmap.AwardSkillSwap"
	ctx, span := s.start(ctx, op, userID)
	var err error
	defer func() { endSpan(span, err) }()

	var out progression.Outcome
	next, err := s.store.Update(ctx, userID, func(cur progression.Progress) (progression.Progress, error) {
		p, o, err := s.engine.ApplySkillSwap(cur)
		out = o
		return p, err
	})
	if err != nil {
		return err
	}
	s.emit(ctx, hook.ProgressEvent{
		Name:     hook.SkillSwapAccepted,
		UserID:   userID,
		Subject:  subject,
		Progress: next,
		Outcome:  out,
	})
	return nil
}

func swapSubject(id int64) string {
	return "swap-" + strconv.FormatInt(id, 10)
}
