package rest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	mw "github.com/skillbridge/skillbridge/server/middleware"
	"github.com/skillbridge/skillbridge/server/model"
	"github.com/skillbridge/skillbridge/server/roadmap"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SkillSwapHandler serves the skill swap board. Accepting a swap goes
// through the roadmap service because it awards skill credits.
type SkillSwapHandler struct {
	db     *gorm.DB
	svc    *roadmap.Service
	logger *zap.Logger
}

func NewSkillSwapHandler(db *gorm.DB, svc *roadmap.Service, logger *zap.Logger) *SkillSwapHandler {
	return &SkillSwapHandler{db: db, svc: svc, logger: logger}
}

// List handles GET /api/skillswap?status=open. Defaults to open swaps.
func (h *SkillSwapHandler) List(c *gin.Context) {
	status := c.DefaultQuery("status", model.SwapOpen)
	if status != model.SwapOpen && status != model.SwapAccepted {
		badRequest(c, "status must be open or accepted")
		return
	}
	var swaps []model.SkillSwap
	if err := h.db.WithContext(c.Request.Context()).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(100).
		Find(&swaps).Error; err != nil {
		h.logger.Error("list skill swaps", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"swaps": swaps})
}

type createSwapRequest struct {
	OfferSkill string `json:"offerSkill" binding:"required,max=64"`
	WantSkill  string `json:"wantSkill" binding:"required,max=64"`
	Note       string `json:"note" binding:"max=1000"`
}

// Create handles POST /api/skillswap.
func (h *SkillSwapHandler) Create(c *gin.Context) {
	var req createSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	offer, want := strings.TrimSpace(req.OfferSkill), strings.TrimSpace(req.WantSkill)
	if offer == "" || want == "" {
		badRequest(c, "offerSkill and wantSkill must not be blank")
		return
	}
	swap := model.SkillSwap{
		OwnerID:    mw.GetUserID(c),
		OfferSkill: offer,
		WantSkill:  want,
		Note:       strings.TrimSpace(req.Note),
		Status:     model.SwapOpen,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&swap).Error; err != nil {
		h.logger.Error("create skill swap", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, swap)
}

// Accept handles POST /api/skillswap/:id/accept.
func (h *SkillSwapHandler) Accept(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return
	}
	res, err := h.svc.AcceptSkillSwap(c.Request.Context(), mw.GetUserID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
