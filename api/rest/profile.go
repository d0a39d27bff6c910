package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	mw "github.com/skillbridge/skillbridge/server/middleware"
	"github.com/skillbridge/skillbridge/server/roadmap"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	svc    *roadmap.Service
	logger *zap.Logger
}

func NewProfileHandler(svc *roadmap.Service, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, logger: logger}
}

// Get handles GET /api/user-profile. Users who never recorded progress get
// 404.
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.svc.Profile(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type interestsRequest struct {
	Interests []string `json:"interests" binding:"required"`
}

// UpdateInterests handles PUT /api/user-profile/interests.
func (h *ProfileHandler) UpdateInterests(c *gin.Context) {
	var req interestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sum, err := h.svc.UpdateInterests(c.Request.Context(), mw.GetUserID(c), req.Interests)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
