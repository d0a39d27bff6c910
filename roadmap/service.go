// Package roadmap orchestrates the user-facing progression operations: it
// loads catalog data, grades submissions, runs the progression engine
// inside a serialized store update and publishes the resulting events.
package roadmap

import (
	"context"
	"time"

	"github.com/skillbridge/skillbridge/server/activity"
	"github.com/skillbridge/skillbridge/server/apperr"
	"github.com/skillbridge/skillbridge/server/grader"
	"github.com/skillbridge/skillbridge/server/hook"
	"github.com/skillbridge/skillbridge/server/observability"
	"github.com/skillbridge/skillbridge/server/progression"
	"github.com/skillbridge/skillbridge/server/resource"
	"github.com/skillbridge/skillbridge/server/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tracerName = "github.com/skillbridge/skillbridge/server/roadmap"

// Deps are the collaborators of Service. Feed and Hooks may be nil.
type Deps struct {
	Store           store.ProfileStore
	Engine          *progression.Engine
	Catalog         *resource.Loader
	Grader          grader.Grader
	DB              *gorm.DB
	Hooks           *hook.HookCenter
	Feed            *activity.Feed
	Logger          *zap.Logger
	Clock           func() time.Time
	DefaultLessonXP int64
}

// Service implements the roadmap operations.
type Service struct {
	store     store.ProfileStore
	engine    *progression.Engine
	catalog   *resource.Loader
	grader    grader.Grader
	db        *gorm.DB
	hooks     *hook.HookCenter
	feed      *activity.Feed
	logger    *zap.Logger
	now       func() time.Time
	defaultXP int64
	tracer    trace.Tracer
}

func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Hooks == nil {
		d.Hooks = hook.NewHookCenter(d.Logger)
	}
	return &Service{
		store:     d.Store,
		engine:    d.Engine,
		catalog:   d.Catalog,
		grader:    d.Grader,
		db:        d.DB,
		hooks:     d.Hooks,
		feed:      d.Feed,
		logger:    d.Logger,
		now:       d.Clock,
		defaultXP: d.DefaultLessonXP,
		tracer:    otel.Tracer(tracerName),
	}
}

// Engine exposes the rule engine for read-only callers such as the admin
// API.
func (s *Service) Engine() *progression.Engine { return s.engine }

func (s *Service) start(ctx context.Context, name, userID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("user.id", userID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// current returns the stored progress, or a fresh unsaved profile when the
// user has none yet.
func (s *Service) current(ctx context.Context, userID string) (progression.Progress, error) {
	p, err := s.store.Get(ctx, userID)
	if apperr.IsNotFound(err) {
		return progression.NewProgress(userID), nil
	}
	return p, err
}

// emit publishes ev, plus a phase_advanced event when the outcome moved the
// user to a new phase. Hook failures are logged, never returned.
func (s *Service) emit(ctx context.Context, ev hook.ProgressEvent) {
	ev.TraceID = observability.TraceID(ctx)
	if ev.At.IsZero() {
		ev.At = s.now().UTC()
	}
	_ = s.hooks.Trigger(ctx, &ev)
	if ev.Outcome.Advanced {
		adv := ev
		adv.Name = hook.PhaseAdvanced
		adv.Subject = string(ev.Outcome.ToPhase)
		_ = s.hooks.Trigger(ctx, &adv)
		s.logger.Info("phase advanced",
			zap.String("user_id", ev.UserID),
			zap.String("from", string(ev.Outcome.FromPhase)),
			zap.String("to", string(ev.Outcome.ToPhase)))
	}
}

