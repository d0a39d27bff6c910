package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	mw "github.com/skillbridge/skillbridge/server/middleware"
	"github.com/skillbridge/skillbridge/server/progression"
	"github.com/skillbridge/skillbridge/server/roadmap"
	"go.uber.org/zap"
)

type SimulationHandler struct {
	svc    *roadmap.Service
	logger *zap.Logger
}

func NewSimulationHandler(svc *roadmap.Service, logger *zap.Logger) *SimulationHandler {
	return &SimulationHandler{svc: svc, logger: logger}
}

type generateRequest struct {
	Topic string `json:"topic" binding:"max=128"`
	Phase string `json:"phase"`
}

// Generate handles POST /api/simulations/generate.
func (h *SimulationHandler) Generate(c *gin.Context) {
	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	var phase progression.Phase
	if req.Phase != "" {
		p, err := progression.ParsePhase(req.Phase)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		phase = p
	}
	sim, err := h.svc.GenerateSimulation(c.Request.Context(), mw.GetUserID(c), req.Topic, phase)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sim)
}

type submitRequest struct {
	Phase     string `json:"phase"`
	TopicID   string `json:"topicId" binding:"max=64"`
	TopicName string `json:"topicName" binding:"max=128"`
	Prompt    string `json:"prompt" binding:"required"`
	Response  string `json:"response" binding:"required"`
}

// Submit handles POST /api/simulations/submit. Grading happens inline;
// grader failures answer 502, 503 or 504 and change nothing.
func (h *SimulationHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	var phase progression.Phase
	if req.Phase != "" {
		p, err := progression.ParsePhase(req.Phase)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		phase = p
	}
	res, err := h.svc.SubmitSimulation(c.Request.Context(), mw.GetUserID(c), roadmap.SimulationAttempt{
		Phase:     phase,
		TopicID:   req.TopicID,
		TopicName: req.TopicName,
		Prompt:    req.Prompt,
		Response:  req.Response,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
