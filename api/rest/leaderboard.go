package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillbridge/skillbridge/server/leaderboard"
	mw "github.com/skillbridge/skillbridge/server/middleware"
	"go.uber.org/zap"
)

type LeaderboardHandler struct {
	board  *leaderboard.Board
	logger *zap.Logger
}

func NewLeaderboardHandler(b *leaderboard.Board, logger *zap.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{board: b, logger: logger}
}

// Top handles GET /api/leaderboard. It also reports the caller's own rank
// and XP (rank 0 when unranked).
func (h *LeaderboardHandler) Top(c *gin.Context) {
	ctx := c.Request.Context()
	top, err := h.board.Top(ctx)
	if err != nil {
		h.logger.Error("leaderboard top", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "leaderboard unavailable"})
		return
	}
	me, err := h.board.Position(ctx, mw.GetUserID(c))
	if err != nil {
		h.logger.Warn("leaderboard position", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": top, "myRank": me.Rank, "myXp": me.XP})
}
