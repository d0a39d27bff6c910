package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillbridge/skillbridge/server/audit"
	"github.com/skillbridge/skillbridge/server/leaderboard"
	mw "github.com/skillbridge/skillbridge/server/middleware"
	"github.com/skillbridge/skillbridge/server/model"
	"github.com/skillbridge/skillbridge/server/resource"
	"github.com/skillbridge/skillbridge/server/roadmap"
	"github.com/skillbridge/skillbridge/server/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Announcer publishes a server-wide announcement.
type Announcer interface {
	Announce(ctx context.Context, message string) error
}

// AdminDeps are the collaborators of AdminHandler. Audit may be nil.
type AdminDeps struct {
	DB        *gorm.DB
	Roadmap   *roadmap.Service
	Board     *leaderboard.Board
	Catalog   *resource.Loader
	Scheduler *scheduler.Scheduler
	Announcer Announcer
	Audit     *audit.Service
	Logger    *zap.Logger
}

// AdminHandler serves /api/admin. Routes are protected by
// middleware.AdminAuth and middleware.IPWhitelist.
type AdminHandler struct {
	d       AdminDeps
	started time.Time
}

func NewAdminHandler(d AdminDeps) *AdminHandler {
	return &AdminHandler{d: d, started: time.Now()}
}

func (h *AdminHandler) audit(c *gin.Context, action, userID string, req interface{}) {
	if h.d.Audit == nil {
		return
	}
	h.d.Audit.Log(audit.Entry{
		TraceID: mw.GetTraceID(c),
		UserID:  userID,
		Action:  action,
		Request: req,
		IP:      c.ClientIP(),
	})
}

// Metrics handles GET /api/admin/metrics.
func (h *AdminHandler) Metrics(c *gin.Context) {
	ctx := c.Request.Context()
	var users, attempts, applications, openSwaps int64
	db := h.d.DB.WithContext(ctx)
	for _, q := range []struct {
		table interface{}
		where string
		args  []interface{}
		dst   *int64
	}{
		{&model.UserProgress{}, "", nil, &users},
		{&model.SimulationAttempt{}, "", nil, &attempts},
		{&model.OpportunityApplication{}, "", nil, &applications},
		{&model.SkillSwap{}, "status = ?", []interface{}{model.SwapOpen}, &openSwaps},
	} {
		tx := db.Model(q.table)
		if q.where != "" {
			tx = tx.Where(q.where, q.args...)
		}
		if err := tx.Count(q.dst).Error; err != nil {
			h.d.Logger.Error("admin metrics", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
	}
	cat := h.d.Catalog.Current()
	c.JSON(http.StatusOK, gin.H{
		"uptime_s":        int64(time.Since(h.started).Seconds()),
		"users":           users,
		"simulations":     attempts,
		"applications":    applications,
		"open_swaps":      openSwaps,
		"catalog_tasks":   len(cat.Tasks),
		"catalog_opps":    len(cat.Opportunities),
		"scheduler_tasks": h.d.Scheduler.ListTickers(),
	})
}

// RefreshLeaderboard handles POST /api/admin/leaderboard/refresh.
func (h *AdminHandler) RefreshLeaderboard(c *gin.Context) {
	n, err := h.d.Board.Refresh(c.Request.Context())
	if err != nil {
		h.d.Logger.Error("admin leaderboard refresh", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "refresh failed"})
		return
	}
	h.audit(c, "admin_leaderboard_refresh", "", nil)
	c.JSON(http.StatusOK, gin.H{"ok": true, "users": n})
}

// ReloadCatalog handles POST /api/admin/catalog/reload. A bad file keeps
// the current catalog and answers 400 with the validation errors.
func (h *AdminHandler) ReloadCatalog(c *gin.Context) {
	if err := h.d.Catalog.Reload(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.audit(c, "admin_catalog_reload", "", nil)
	cat := h.d.Catalog.Current()
	c.JSON(http.StatusOK, gin.H{"ok": true, "tasks": len(cat.Tasks), "opportunities": len(cat.Opportunities)})
}

type announceRequest struct {
	Message string `json:"message" binding:"required,max=500"`
}

// Announce handles POST /api/admin/announce.
func (h *AdminHandler) Announce(c *gin.Context) {
	var req announceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.d.Announcer.Announce(c.Request.Context(), strings.TrimSpace(req.Message)); err != nil {
		h.d.Logger.Error("admin announce", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "announce failed"})
		return
	}
	h.audit(c, "admin_announce", "", req)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// BanAccount handles POST /api/admin/accounts/:id/ban with {"ban": bool}.
func (h *AdminHandler) BanAccount(c *gin.Context) {
	accountID := c.Param("id")
	var req struct {
		Ban bool `json:"ban"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	status := model.AccountActive
	if req.Ban {
		status = model.AccountBanned
	}
	result := h.d.DB.WithContext(c.Request.Context()).
		Model(&model.Account{}).Where("id = ?", accountID).Update("status", status)
	if result.Error != nil {
		h.d.Logger.Error("admin ban", zap.Error(result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	h.audit(c, "admin_ban", accountID, req)
	h.d.Logger.Info("admin changed account status", zap.String("user_id", accountID), zap.Bool("banned", req.Ban))
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": status})
}

// InspectProgress handles GET /api/admin/progress/:uid.
func (h *AdminHandler) InspectProgress(c *gin.Context) {
	p, err := h.d.Roadmap.Profile(c.Request.Context(), c.Param("uid"))
	if err != nil {
		respondError(c, h.d.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": p, "roadmap": h.d.Roadmap.Summarize(p)})
}

// ListSchedulerTasks handles GET /api/admin/scheduler.
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.d.Scheduler.ListTickers()})
}

// RunSchedulerTask handles POST /api/admin/scheduler/:name/run.
func (h *AdminHandler) RunSchedulerTask(c *gin.Context) {
	name := c.Param("name")
	if err := h.d.Scheduler.RunNow(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.audit(c, "admin_run_task", "", gin.H{"task": name})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
