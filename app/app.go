// Package app wires the SkillBridge services, hooks, scheduler tasks and
// HTTP routes on top of already opened infrastructure.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillbridge/skillbridge/server/activity"
	apirest "github.com/skillbridge/skillbridge/server/api/rest"
	"github.com/skillbridge/skillbridge/server/api/sse"
	"github.com/skillbridge/skillbridge/server/audit"
	"github.com/skillbridge/skillbridge/server/cache"
	"github.com/skillbridge/skillbridge/server/config"
	"github.com/skillbridge/skillbridge/server/grader"
	"github.com/skillbridge/skillbridge/server/hook"
	"github.com/skillbridge/skillbridge/server/leaderboard"
	mw "github.com/skillbridge/skillbridge/server/middleware"
	"github.com/skillbridge/skillbridge/server/progression"
	"github.com/skillbridge/skillbridge/server/resource"
	"github.com/skillbridge/skillbridge/server/roadmap"
	"github.com/skillbridge/skillbridge/server/scheduler"
	"github.com/skillbridge/skillbridge/server/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Infra is the infrastructure App builds on. Grader overrides the
// configured grader when set.
type Infra struct {
	DB     *gorm.DB
	Cache  cache.Cache
	PubSub cache.PubSub
	Grader grader.Grader
	Logger *zap.Logger
}

// App holds the wired services and the HTTP router.
type App struct {
	Router    *gin.Engine
	Roadmap   *roadmap.Service
	Board     *leaderboard.Board
	Catalog   *resource.Loader
	Hooks     *hook.HookCenter
	Scheduler *scheduler.Scheduler
	Audit     *audit.Service
	Events    *sse.Handler

	cancel context.CancelFunc
}

// New builds the application from cfg. Close releases its background
// workers; the infrastructure stays owned by the caller.
func New(cfg *config.Config, in Infra) (*App, error) {
	logger := in.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rules, err := cfg.Progression.Rules()
	if err != nil {
		return nil, fmt.Errorf("app: progression rules: %w", err)
	}
	engine, err := progression.NewEngine(rules)
	if err != nil {
		return nil, fmt.Errorf("app: engine: %w", err)
	}
	catalog, err := resource.NewLoader(cfg.Catalog.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("app: catalog: %w", err)
	}
	g := in.Grader
	if g == nil {
		if g, err = grader.New(cfg.Grader, logger); err != nil {
			return nil, fmt.Errorf("app: grader: %w", err)
		}
	}

	board := leaderboard.New(in.DB, in.Cache, cfg.Leaderboard.Size, logger)
	feed := activity.NewFeed(in.Cache, activity.DefaultSize)
	auditSvc := audit.New(in.DB, logger)
	events := sse.NewHandler(in.PubSub, in.Cache, cfg.Security, logger)

	hooks := hook.NewHookCenter(logger)
	hooks.Register(hook.All, 10, "leaderboard", board.Record)
	hooks.Register(hook.All, 20, "activity", feed.Record)
	hooks.Register(hook.All, 30, "sse", events.PublishProgress)
	hooks.Register(hook.All, 40, "audit", auditSvc.RecordEvent)

	svc := roadmap.New(roadmap.Deps{
		Store:           store.New(in.DB, in.Cache, cfg.Store, logger),
		Engine:          engine,
		Catalog:         catalog,
		Grader:          g,
		DB:              in.DB,
		Hooks:           hooks,
		Feed:            feed,
		Logger:          logger,
		DefaultLessonXP: int64(cfg.Progression.DefaultLessonXP),
	})

	sched := scheduler.New(logger)
	if cfg.Leaderboard.RefreshInterval > 0 {
		sched.AddTicker("leaderboard_refresh", cfg.Leaderboard.RefreshInterval, func(ctx context.Context) error {
			_, err := board.Refresh(ctx)
			return err
		})
	}
	if cfg.Catalog.ReloadInterval > 0 {
		sched.AddTicker("catalog_reload", cfg.Catalog.ReloadInterval, func(context.Context) error {
			return catalog.Reload()
		})
	}
	sched.AddDelay("leaderboard_warmup", 2*time.Second, func(ctx context.Context) error {
		n, err := board.Refresh(ctx)
		if err == nil {
			logger.Info("leaderboard warmed up", zap.Int("users", n))
		}
		return err
	})

	ctx, cancel := context.WithCancel(context.Background())

	r := gin.New()
	if cfg.Tracing.Enabled {
		r.Use(mw.Tracing(cfg.Tracing.ServiceName))
	}
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger), mw.CORS(cfg.Security.AllowedOrigins))
	if cfg.Security.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(ctx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))
	}

	apirest.Register(r, apirest.Handlers{
		Auth:          apirest.NewAuthHandler(in.DB, in.Cache, cfg.Security, logger),
		Roadmap:       apirest.NewRoadmapHandler(svc, logger),
		Simulations:   apirest.NewSimulationHandler(svc, logger),
		Opportunities: apirest.NewOpportunityHandler(svc, logger),
		Leaderboard:   apirest.NewLeaderboardHandler(board, logger),
		Profile:       apirest.NewProfileHandler(svc, logger),
		SkillSwap:     apirest.NewSkillSwapHandler(in.DB, svc, logger),
		Pods:          apirest.NewPodHandler(in.DB, logger),
		Admin: apirest.NewAdminHandler(apirest.AdminDeps{
			DB:        in.DB,
			Roadmap:   svc,
			Board:     board,
			Catalog:   catalog,
			Scheduler: sched,
			Announcer: events,
			Audit:     auditSvc,
			Logger:    logger,
		}),
		Events: events.ServeSSE,
	}, mw.Auth(cfg.Security, in.Cache),
		mw.IPWhitelist(cfg.Server.AdminIPs, logger), mw.AdminAuth(cfg.Server.AdminKey))

	return &App{
		Router:    r,
		Roadmap:   svc,
		Board:     board,
		Catalog:   catalog,
		Hooks:     hooks,
		Scheduler: sched,
		Audit:     auditSvc,
		Events:    events,
		cancel:    cancel,
	}, nil
}

// Close stops background work and flushes the audit queue.
func (a *App) Close(ctx context.Context) {
	a.Scheduler.Stop()
	a.cancel()
	a.Audit.Stop(ctx)
}
