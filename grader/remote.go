package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skillbridge/skillbridge/server/apperr"
	"github.com/skillbridge/skillbridge/server/config"
	"github.com/skillbridge/skillbridge/server/progression"
	"go.uber.org/zap"
)

const maxResponseBody = 1 << 20

// Remote posts submissions to an external grading service and expects
// {"score": 0-100, "feedback": "..."} back.
type Remote struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRemote creates a remote grader from cfg.
func NewRemote(cfg config.GraderConfig, logger *zap.Logger) *Remote {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remote{
		url:        cfg.RemoteURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type remoteResponse struct {
	Score    *int   `json:"score"`
	Feedback string `json:"feedback"`
}

// Grade calls the remote service. Transport errors, non-2xx answers,
// malformed bodies and out-of-range scores are external failures.
func (r *Remote) Grade(ctx context.Context, s Submission) (Result, error) {
	const op = "grader.Remote.Grade"

	body, err := json.Marshal(s)
	if err != nil {
		return Result{}, fmt.Errorf("marshal submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, apperr.External(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn("remote grader request failed", zap.String("user_id", s.UserID), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return Result{}, apperr.Wrap(op, apperr.ErrTimeout, "grader timed out", err)
		}
		return Result{}, apperr.External(op, fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Result{}, apperr.External(op, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("remote grader rejected submission",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)))
		if resp.StatusCode == http.StatusServiceUnavailable {
			return Result{}, apperr.Wrap(op, apperr.ErrUnavailable, "grader unavailable", fmt.Errorf("status %d", resp.StatusCode))
		}
		return Result{}, apperr.External(op, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(raw, 200)))
	}

	var out remoteResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, apperr.External(op, fmt.Errorf("parse response: %w", err))
	}
	if out.Score == nil {
		return Result{}, apperr.External(op, errors.New("response has no score"))
	}
	if *out.Score < 0 || *out.Score > 100 {
		return Result{}, apperr.External(op, fmt.Errorf("score %d out of range", *out.Score))
	}
	r.logger.Debug("remote grade",
		zap.String("user_id", s.UserID),
		zap.Int("score", *out.Score),
		zap.Duration("elapsed", time.Since(start)))
	return Result{Score: *out.Score, Feedback: out.Feedback, GradedBy: progression.SourceRemote}, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
