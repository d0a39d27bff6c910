package roadmap

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/skillbridge/skillbridge/server/apperr"
	"github.com/skillbridge/skillbridge/server/grader"
	"github.com/skillbridge/skillbridge/server/hook"
	"github.com/skillbridge/skillbridge/server/model"
	"github.com/skillbridge/skillbridge/server/progression"
	"github.com/skillbridge/skillbridge/server/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxPromptLen   = 4000
	maxResponseLen = 8000
)

// GeneratedSimulation is a prompt the user answers with SubmitSimulation.
type GeneratedSimulation struct {
	ScenarioID string            `json:"scenarioId,omitempty"`
	Phase      progression.Phase `json:"phase"`
	TopicID    string            `json:"topicId,omitempty"`
	TopicName  string            `json:"topicName,omitempty"`
	Prompt     string            `json:"prompt"`
}

// GenerateSimulation returns a scenario for topic in phase (the user's
// current phase when empty). Phases above the current one are locked.
// Topics without a catalog scenario get a generic prompt.
func (s *Service) GenerateSimulation(ctx context.Context, userID, topic string, phase progression.Phase) (GeneratedSimulation, error) {
	const op = "roadmap.GenerateSimulation"
	ctx, span := s.start(ctx, op, userID)
	var err error
	defer func() { endSpan(span, err) }()

	p, err := s.current(ctx, userID)
	if err != nil {
		return GeneratedSimulation{}, err
	}
	if phase == "" {
		phase = p.CurrentPhase
	}
	if err = s.phaseOpen(op, p, phase); err != nil {
		return GeneratedSimulation{}, err
	}

	topic = strings.TrimSpace(topic)
	if sc, ok := s.catalog.Current().Scenario(topic, phase); ok {
		return GeneratedSimulation{
			ScenarioID: sc.ID,
			Phase:      sc.Phase,
			TopicID:    sc.TopicID,
			TopicName:  sc.TopicName,
			Prompt:     sc.Prompt,
		}, nil
	}
	name := topic
	if name == "" {
		name = "your chosen skill"
	}
	return GeneratedSimulation{
		Phase:     phase,
		TopicName: topic,
		Prompt: fmt.Sprintf("A client asks for help with %s. Describe how you would scope the work, "+
			"what you would deliver first, and how you would price it.", name),
	}, nil
}

// SimulationAttempt is the user's answer to a generated simulation.
type SimulationAttempt struct {
	Phase     progression.Phase `json:"phase"`
	TopicID   string            `json:"topicId"`
	TopicName string            `json:"topicName"`
	Prompt    string            `json:"prompt"`
	Response  string            `json:"response"`
}

// SimulationResult is returned by SubmitSimulation.
type SimulationResult struct {
	AttemptID      string                  `json:"attemptId"`
	Score          int                     `json:"score"`
	Feedback       string                  `json:"feedback"`
	GradedBy       progression.GradeSource `json:"gradedBy"`
	CreditsAwarded int64                   `json:"creditsAwarded"`
	Outcome        progression.Outcome     `json:"outcome"`
	Roadmap        Summary                 `json:"roadmap"`
}

// SubmitSimulation grades an attempt and applies the score. Grading runs
// before the profile update; a grader failure leaves the profile and the
// attempt history untouched. The attempt row commits with the profile.
func (s *Service) SubmitSimulation(ctx context.Context, userID string, a SimulationAttempt) (SimulationResult, error) {
	const op = "roadmap.SubmitSimulation"
	ctx, span := s.start(ctx, op, userID)
	var err error
	defer func() { endSpan(span, err) }()

	a.Prompt = strings.TrimSpace(a.Prompt)
	a.Response = strings.TrimSpace(a.Response)
	switch {
	case a.Prompt == "":
		err = apperr.InvalidInput(op, "prompt is required")
	case a.Response == "":
		err = apperr.InvalidInput(op, "response is required")
	case utf8.RuneCountInString(a.Prompt) > maxPromptLen:
		err = apperr.InvalidInput(op, "prompt is longer than %d characters", maxPromptLen)
	case utf8.RuneCountInString(a.Response) > maxResponseLen:
		err = apperr.InvalidInput(op, "response is longer than %d characters", maxResponseLen)
	case a.Phase != "" && !a.Phase.Valid():
		err = apperr.InvalidInput(op, "unknown phase %q", a.Phase)
	}
	if err != nil {
		return SimulationResult{}, err
	}

	p, err := s.current(ctx, userID)
	if err != nil {
		return SimulationResult{}, err
	}
	phase := a.Phase
	if phase == "" {
		phase = p.CurrentPhase
	}
	// Checked again under the profile lock; this pass only spares the
	// grader a locked attempt.
	if err = s.phaseOpen(op, p, phase); err != nil {
		return SimulationResult{}, err
	}

	graded, err := s.grader.Grade(ctx, grader.Submission{
		UserID:    userID,
		Phase:     phase,
		TopicID:   a.TopicID,
		TopicName: a.TopicName,
		Prompt:    a.Prompt,
		Response:  a.Response,
	})
	if err != nil {
		s.logger.Warn("simulation grading failed",
			zap.String("user_id", userID), zap.Error(err))
		return SimulationResult{}, err
	}

	attemptID := uuid.NewString()
	var out progression.Outcome
	next, err := s.store.Update(ctx, userID,
		func(cur progression.Progress) (progression.Progress, error) {
			if err := s.phaseOpen(op, cur, phase); err != nil {
				return cur, err
			}
			p, o, err := s.engine.ApplySimulationResult(cur, progression.SimulationResult{
				Score:    graded.Score,
				Phase:    phase,
				GradedBy: graded.GradedBy,
			})
			out = o
			return p, err
		},
		store.WithTx(func(tx *gorm.DB, next progression.Progress) error {
			return tx.Create(&model.SimulationAttempt{
				ID:             attemptID,
				UserID:         userID,
				Phase:          string(phase),
				TopicID:        a.TopicID,
				TopicName:      a.TopicName,
				Prompt:         a.Prompt,
				Response:       a.Response,
				Score:          graded.Score,
				Feedback:       graded.Feedback,
				GradedBy:       string(graded.GradedBy),
				CreditsAwarded: out.CreditsAwarded,
			}).Error
		}),
	)
	if err != nil {
		return SimulationResult{}, err
	}

	s.emit(ctx, hook.ProgressEvent{
		Name:     hook.SimulationGraded,
		UserID:   userID,
		Subject:  attemptID,
		Progress: next,
		Outcome:  out,
	})
	return SimulationResult{
		AttemptID:      attemptID,
		Score:          graded.Score,
		Feedback:       graded.Feedback,
		GradedBy:       graded.GradedBy,
		CreditsAwarded: out.CreditsAwarded,
		Outcome:        out,
		Roadmap:        s.Summarize(next),
	}, nil
}

// phaseOpen returns a Locked error when p has not reached phase.
func (s *Service) phaseOpen(op string, p progression.Progress, phase progression.Phase) error {
	el, err := s.engine.EvaluateEligibility(p, progression.Requirement{MinPhase: phase})
	if err != nil {
		return err
	}
	if !el.Eligible {
		return apperr.Locked(op, el.Reason)
	}
	return nil
}
