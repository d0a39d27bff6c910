// Package grader scores free-text simulation responses. Two graders exist:
// a remote HTTP service and a deterministic local heuristic. The configured
// mode picks exactly one; there is no fallback between them.
package grader

import (
	"context"
	"fmt"

	"github.com/skillbridge/skillbridge/server/config"
	"github.com/skillbridge/skillbridge/server/progression"
	"go.uber.org/zap"
)

// Submission is one simulation response to grade.
type Submission struct {
	UserID    string            `json:"userId"`
	Phase     progression.Phase `json:"phase"`
	TopicID   string            `json:"topicId,omitempty"`
	TopicName string            `json:"topicName,omitempty"`
	Prompt    string            `json:"prompt"`
	Response  string            `json:"response"`
}

// Result is a finished grade. GradedBy names the grader that produced it.
type Result struct {
	Score    int
	Feedback string
	GradedBy progression.GradeSource
}

// Grader scores a submission.
type Grader interface {
	Grade(ctx context.Context, s Submission) (Result, error)
}

// New returns the grader selected by cfg.Mode.
func New(cfg config.GraderConfig, logger *zap.Logger) (Grader, error) {
	switch cfg.Mode {
	case config.GraderRemote:
		return NewRemote(cfg, logger), nil
	case config.GraderLocal:
		return NewLocal(), nil
	default:
		return nil, fmt.Errorf("grader: unknown mode %q", cfg.Mode)
	}
}
