package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillbridge/skillbridge/server/activity"
	"github.com/skillbridge/skillbridge/server/api/rest"
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
	"github.com/skillbridge/skillbridge/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAdminKey = "admin-secret"

func init() { gin.SetMode(gin.TestMode) }

type fixture struct {
	r      *gin.Engine
	db     *gorm.DB
	cache  cache.Cache
	pubsub cache.PubSub
	svc    *roadmap.Service
	board  *leaderboard.Board
	sched  *scheduler.Scheduler
	sec    config.SecurityConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)

	sec := config.SecurityConfig{
		JWTSecret:      "test-secret",
		JWTTTLH:        time.Hour,
		JWTIssuer:      "skillbridge",
		RequireSession: true,
	}

	engine, err := progression.NewEngine(progression.DefaultRules())
	require.NoError(t, err)
	loader, err := resource.NewLoader("", logger)
	require.NoError(t, err)

	board := leaderboard.New(db, c, 20, logger)
	feed := activity.NewFeed(c, activity.DefaultSize)
	auditSvc := audit.New(db, logger)
	t.Cleanup(func() { auditSvc.Stop(context.Background()) })
	events := sse.NewHandler(ps, c, sec, logger)

	hooks := hook.NewHookCenter(logger)
	hooks.Register(hook.All, 10, "leaderboard", board.Record)
	hooks.Register(hook.All, 20, "activity", feed.Record)
	hooks.Register(hook.All, 30, "sse", events.PublishProgress)

	svc := roadmap.New(roadmap.Deps{
		Store:           store.New(db, c, config.StoreConfig{MaxRetries: 3}, logger),
		Engine:          engine,
		Catalog:         loader,
		Grader:          grader.NewLocal(),
		DB:              db,
		Hooks:           hooks,
		Feed:            feed,
		Logger:          logger,
		DefaultLessonXP: 10,
	})

	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)
	sched.AddTicker("leaderboard_refresh", time.Hour, func(ctx context.Context) error {
		_, err := board.Refresh(ctx)
		return err
	})

	r := gin.New()
	rest.Register(r, rest.Handlers{
		Auth:          rest.NewAuthHandler(db, c, sec, logger),
		Roadmap:       rest.NewRoadmapHandler(svc, logger),
		Simulations:   rest.NewSimulationHandler(svc, logger),
		Opportunities: rest.NewOpportunityHandler(svc, logger),
		Leaderboard:   rest.NewLeaderboardHandler(board, logger),
		Profile:       rest.NewProfileHandler(svc, logger),
		SkillSwap:     rest.NewSkillSwapHandler(db, svc, logger),
		Pods:          rest.NewPodHandler(db, logger),
		Admin: rest.NewAdminHandler(rest.AdminDeps{
			DB:        db,
			Roadmap:   svc,
			Board:     board,
			Catalog:   loader,
			Scheduler: sched,
			Announcer: events,
			Audit:     auditSvc,
			Logger:    logger,
		}),
		Events: events.ServeSSE,
	}, mw.Auth(sec, c), mw.AdminAuth(testAdminKey), mw.IPWhitelist(nil, logger))

	return &fixture{r: r, db: db, cache: c, pubsub: ps, svc: svc, board: board, sched: sched, sec: sec}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func (f *fixture) admin(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Admin-Key", testAdminKey)
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

// login registers username on first use and returns its token and user id.
func (f *fixture) login(t *testing.T, username string) (string, string) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/auth/login", "",
		`{"username":"`+username+`","password":"pass1234"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token, out.UserID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	return body.Error
}
