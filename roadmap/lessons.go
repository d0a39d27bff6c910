package roadmap

import (
	"context"
	"strings"

	"github.com/skillbridge/skillbridge/server/apperr"
	"github.com/skillbridge/skillbridge/server/hook"
	"github.com/skillbridge/skillbridge/server/progression"
	"github.com/skillbridge/skillbridge/server/resource"
)

// TaskView is a catalog task annotated for one user.
type TaskView struct {
	resource.Task
	Locked       bool   `json:"locked"`
	LockedReason string `json:"lockedReason,omitempty"`
	Completed    bool   `json:"completed"`
}

// GetTasks lists every catalog task with the user's lock and completion
// state.
func (s *Service) GetTasks(ctx context.Context, userID string) ([]TaskView, error) {
	ctx, span := s.start(ctx, "roadmap.GetTasks", userID)
	var err error
	defer func() { endSpan(span, err) }()

	p, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks := s.catalog.Current().Tasks
	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		var el progression.Eligibility
		el, err = s.engine.EvaluateEligibility(p, t.Requirement())
		if err != nil {
			return nil, err
		}
		out = append(out, TaskView{
			Task:         t,
			Locked:       !el.Eligible,
			LockedReason: el.Reason,
			Completed:    p.HasCompleted(t.ID),
		})
	}
	return out, nil
}

// LessonResult is returned by SubmitLessonCompletion.
type LessonResult struct {
	Outcome    progression.Outcome `json:"outcome"`
	QuizEarned int64               `json:"quizEarned,omitempty"`
	QuizTotal  int64               `json:"quizTotal,omitempty"`
	Roadmap    Summary             `json:"roadmap"`
}

// SubmitLessonCompletion marks a catalog lesson complete. Quiz lessons award
// the XP earned by answers; plain lessons award their catalog XP. The lock
// is evaluated against the state inside the update, and a lesson already
// completed is accepted again (for the streak) even if it would now be
// locked.
func (s *Service) SubmitLessonCompletion(ctx context.Context, userID, lessonID string, answers []resource.Answer) (LessonResult, error) {
	const op = "roadmap.SubmitLessonCompletion"
	ctx, span := s.start(ctx, op, userID)
	var err error
	defer func() { endSpan(span, err) }()

	task, ok := s.catalog.Current().Task(strings.TrimSpace(lessonID))
	if !ok {
		err = apperr.NotFound(op, "lesson")
		return LessonResult{}, err
	}
	if task.Kind != resource.TaskLesson {
		err = apperr.InvalidInput(op, "task %s is a simulation and is completed by submitting it", task.ID)
		return LessonResult{}, err
	}

	res := LessonResult{}
	xp := task.XP
	if task.Quiz != nil && len(task.Quiz.Questions) > 0 {
		if len(answers) == 0 {
			err = apperr.InvalidInput(op, "lesson %s requires quiz answers", task.ID)
			return LessonResult{}, err
		}
		res.QuizEarned, res.QuizTotal = task.Quiz.Score(answers)
		xp = res.QuizEarned
	} else if xp == 0 {
		xp = s.defaultXP
	}

	now := s.now()
	var out progression.Outcome
	next, err := s.store.Update(ctx, userID, func(cur progression.Progress) (progression.Progress, error) {
		if !cur.HasCompleted(task.ID) {
			el, err := s.engine.EvaluateEligibility(cur, task.Requirement())
			if err != nil {
				return cur, err
			}
			if !el.Eligible {
				return cur, apperr.Locked(op, el.Reason)
			}
		}
		p, o, err := s.engine.ApplyLessonCompletion(cur, task.ID, xp, now)
		out = o
		return p, err
	})
	if err != nil {
		return LessonResult{}, err
	}

	s.emit(ctx, hook.ProgressEvent{
		Name:     hook.LessonCompleted,
		UserID:   userID,
		Subject:  task.ID,
		Progress: next,
		Outcome:  out,
	})
	res.Outcome = out
	res.Roadmap = s.Summarize(next)
	return res, nil
}

// SubmitAssessment records a self-assessment score into the readiness
// window. It awards no credits.
func (s *Service) SubmitAssessment(ctx context.Context, userID string, score int) (Summary, error) {
	const op = "roadmap.SubmitAssessment"
	ctx, span := s.start(ctx, op, userID)
	var err error
	defer func() { endSpan(span, err) }()

	var out progression.Outcome
	next, err := s.store.Update(ctx, userID, func(cur progression.Progress) (progression.Progress, error) {
		p, o, err := s.engine.ApplyAssessment(cur, score)
		out = o
		return p, err
	})
	if err != nil {
		return Summary{}, err
	}
	s.emit(ctx, hook.ProgressEvent{
		Name:     hook.AssessmentRecorded,
		UserID:   userID,
		Progress: next,
		Outcome:  out,
	})
	return s.Summarize(next), nil
}

const (
	maxInterests   = 20
	maxInterestLen = 40
)

// UpdateInterests replaces the user's interest tags. Tags are trimmed,
// lower-cased and de-duplicated.
func (s *Service) UpdateInterests(ctx context.Context, userID string, interests []string) (Summary, error) {
	const op = "roadmap.UpdateInterests"
	ctx, span := s.start(ctx, op, userID)
	var err error
	defer func() { endSpan(span, err) }()

	clean := make([]string, 0, len(interests))
	for _, it := range interests {
		it = strings.ToLower(strings.TrimSpace(it))
		if it == "" {
			continue
		}
		if len(it) > maxInterestLen {
			err = apperr.InvalidInput(op, "interest %q is longer than %d characters", it, maxInterestLen)
			return Summary{}, err
		}
		clean = append(clean, it)
	}
	clean = progression.NormalizeSet(clean)
	if len(clean) > maxInterests {
		err = apperr.InvalidInput(op, "at most %d interests allowed", maxInterests)
		return Summary{}, err
	}

	next, err := s.store.Update(ctx, userID, func(cur progression.Progress) (progression.Progress, error) {
		p := cur.Clone()
		p.Interests = clean
		return p, nil
	})
	if err != nil {
		return Summary{}, err
	}
	return s.Summarize(next), nil
}
