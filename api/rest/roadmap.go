package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	mw "github.com/skillbridge/skillbridge/server/middleware"
	"github.com/skillbridge/skillbridge/server/resource"
	"github.com/skillbridge/skillbridge/server/roadmap"
	"go.uber.org/zap"
)

// RoadmapHandler serves the roadmap, task and portfolio endpoints.
type RoadmapHandler struct {
	svc    *roadmap.Service
	logger *zap.Logger
}

func NewRoadmapHandler(svc *roadmap.Service, logger *zap.Logger) *RoadmapHandler {
	return &RoadmapHandler{svc: svc, logger: logger}
}

// Get handles GET /api/roadmap.
func (h *RoadmapHandler) Get(c *gin.Context) {
	sum, err := h.svc.GetRoadmap(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Tasks handles GET /api/roadmap/tasks.
func (h *RoadmapHandler) Tasks(c *gin.Context) {
	tasks, err := h.svc.GetTasks(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

type completeRequest struct {
	Answers []resource.Answer `json:"answers"`
}

// Complete handles POST /api/roadmap/tasks/:id/complete. The body is
// optional for plain lessons.
func (h *RoadmapHandler) Complete(c *gin.Context) {
	var req completeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	res, err := h.svc.SubmitLessonCompletion(c.Request.Context(), mw.GetUserID(c), c.Param("id"), req.Answers)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type scoreRequest struct {
	Score *int `json:"score" binding:"required"`
}

// Score handles POST /api/roadmap/score with a self-assessment.
func (h *RoadmapHandler) Score(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sum, err := h.svc.SubmitAssessment(c.Request.Context(), mw.GetUserID(c), *req.Score)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Portfolio handles GET /api/roadmap/portfolio.
func (h *RoadmapHandler) Portfolio(c *gin.Context) {
	pf, err := h.svc.Portfolio(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pf)
}

// Activity handles GET /api/roadmap/activity?limit=20.
func (h *RoadmapHandler) Activity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.svc.Activity(c.Request.Context(), mw.GetUserID(c), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries})
}
