package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	mw "github.com/skillbridge/skillbridge/server/middleware"
	"github.com/skillbridge/skillbridge/server/roadmap"
	"go.uber.org/zap"
)

type OpportunityHandler struct {
	svc    *roadmap.Service
	logger *zap.Logger
}

func NewOpportunityHandler(svc *roadmap.Service, logger *zap.Logger) *OpportunityHandler {
	return &OpportunityHandler{svc: svc, logger: logger}
}

// List handles GET /api/opportunities. Locked listings are included with
// their lock reason.
func (h *OpportunityHandler) List(c *gin.Context) {
	opps, err := h.svc.ListOpportunities(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"opportunities": opps})
}

type applyRequest struct {
	Note string `json:"note"`
}

// Apply handles POST /api/opportunities/:id/apply.
func (h *OpportunityHandler) Apply(c *gin.Context) {
	var req applyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	app, err := h.svc.ApplyOpportunity(c.Request.Context(), mw.GetUserID(c), c.Param("id"), req.Note)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}
