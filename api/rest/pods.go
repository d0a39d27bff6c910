package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	mw "github.com/skillbridge/skillbridge/server/middleware"
	"github.com/skillbridge/skillbridge/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PodHandler serves problem pods: community questions with replies.
type PodHandler struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPodHandler(db *gorm.DB, logger *zap.Logger) *PodHandler {
	return &PodHandler{db: db, logger: logger}
}

// List handles GET /api/pods?category=...
func (h *PodHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Order("created_at DESC").Limit(50)
	if cat := strings.TrimSpace(c.Query("category")); cat != "" {
		q = q.Where("category = ?", cat)
	}
	var pods []model.ProblemPod
	if err := q.Find(&pods).Error; err != nil {
		h.logger.Error("list pods", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pods": pods})
}

type createPodRequest struct {
	Title       string `json:"title" binding:"required,max=128"`
	Description string `json:"description" binding:"max=4000"`
	Category    string `json:"category" binding:"max=32"`
}

// Create handles POST /api/pods.
func (h *PodHandler) Create(c *gin.Context) {
	var req createPodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	pod := model.ProblemPod{
		OwnerID:     mw.GetUserID(c),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
	}
	if pod.Title == "" {
		badRequest(c, "title must not be blank")
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&pod).Error; err != nil {
		h.logger.Error("create pod", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, pod)
}

type replyRequest struct {
	Message string `json:"message" binding:"required,max=4000"`
}

// Respond handles POST /api/pods/:id/respond. The reply and the counter
// bump commit together.
func (h *PodHandler) Respond(c *gin.Context) {
	podID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return
	}
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		badRequest(c, "message must not be blank")
		return
	}

	reply := model.PodReply{PodID: podID, UserID: mw.GetUserID(c), Message: msg}
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ProblemPod{}).Where("id = ?", podID).
			UpdateColumn("replies", gorm.Expr("replies + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(&reply).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "pod not found"})
		return
	}
	if err != nil {
		h.logger.Error("reply to pod", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, reply)
}

// Replies handles GET /api/pods/:id/replies.
func (h *PodHandler) Replies(c *gin.Context) {
	podID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return
	}
	var replies []model.PodReply
	if err := h.db.WithContext(c.Request.Context()).
		Where("pod_id = ?", podID).Order("created_at ASC").
		Find(&replies).Error; err != nil {
		h.logger.Error("list pod replies", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}
