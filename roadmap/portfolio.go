package roadmap

import (
	"context"

	"github.com/skillbridge/skillbridge/server/activity"
	"github.com/skillbridge/skillbridge/server/apperr"
	"github.com/skillbridge/skillbridge/server/model"
	"golang.org/x/sync/errgroup"
)

const portfolioAttempts = 20

// Portfolio gathers what a user has to show: the roadmap summary, recent
// graded simulations and submitted applications.
type Portfolio struct {
	Roadmap      Summary                        `json:"roadmap"`
	Simulations  []model.SimulationAttempt      `json:"simulations"`
	Applications []model.OpportunityApplication `json:"applications"`
}

// Portfolio loads the three parts concurrently.
func (s *Service) Portfolio(ctx context.Context, userID string) (Portfolio, error) {
	const op = "roadmap.Portfolio"
	ctx, span := s.start(ctx, op, userID)
	var err error
	defer func() { endSpan(span, err) }()

	out := Portfolio{
		Simulations:  []model.SimulationAttempt{},
		Applications: []model.OpportunityApplication{},
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.current(gctx, userID)
		if err != nil {
			return err
		}
		out.Roadmap = s.Summarize(p)
		return nil
	})
	g.Go(func() error {
		err := s.db.WithContext(gctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Limit(portfolioAttempts).
			Find(&out.Simulations).Error
		if err != nil {
			return apperr.External(op, err)
		}
		return nil
	})
	g.Go(func() error {
		err := s.db.WithContext(gctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Find(&out.Applications).Error
		if err != nil {
			return apperr.External(op, err)
		}
		return nil
	})
	if err = g.Wait(); err != nil {
		return Portfolio{}, err
	}
	return out, nil
}

// Activity returns the user's most recent progression events, newest first.
func (s *Service) Activity(ctx context.Context, userID string, limit int) ([]activity.Entry, error) {
	if s.feed == nil {
		return []activity.Entry{}, nil
	}
	ctx, span := s.start(ctx, "roadmap.Activity", userID)
	entries, err := s.feed.List(ctx, userID, limit)
	endSpan(span, err)
	if err != nil {
		return nil, apperr.External("roadmap.Activity", err)
	}
	return entries, nil
}
