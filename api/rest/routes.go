package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers groups everything mounted under /api. Events serves the SSE
// stream and authenticates its own query token.
type Handlers struct {
	Auth          *AuthHandler
	Roadmap       *RoadmapHandler
	Simulations   *SimulationHandler
	Opportunities *OpportunityHandler
	Leaderboard   *LeaderboardHandler
	Profile       *ProfileHandler
	SkillSwap     *SkillSwapHandler
	Pods          *PodHandler
	Admin         *AdminHandler
	Events        gin.HandlerFunc
}

// Register mounts /health and the /api routes. auth guards user routes and
// admin guards /api/admin.
func Register(r gin.IRouter, h Handlers, auth gin.HandlerFunc, admin ...gin.HandlerFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	authG := api.Group("/auth")
	authG.POST("/login", h.Auth.Login)
	authG.POST("/logout", auth, h.Auth.Logout)
	authG.POST("/refresh", auth, h.Auth.Refresh)

	if h.Events != nil {
		api.GET("/events", h.Events)
	}

	user := api.Group("")
	user.Use(auth)

	rm := user.Group("/roadmap")
	rm.GET("", h.Roadmap.Get)
	rm.GET("/tasks", h.Roadmap.Tasks)
	rm.POST("/tasks/:id/complete", h.Roadmap.Complete)
	rm.POST("/score", h.Roadmap.Score)
	rm.GET("/portfolio", h.Roadmap.Portfolio)
	rm.GET("/activity", h.Roadmap.Activity)

	user.POST("/simulations/generate", h.Simulations.Generate)
	user.POST("/simulations/submit", h.Simulations.Submit)

	user.GET("/opportunities", h.Opportunities.List)
	user.POST("/opportunities/:id/apply", h.Opportunities.Apply)

	user.GET("/leaderboard", h.Leaderboard.Top)

	user.GET("/user-profile", h.Profile.Get)
	user.PUT("/user-profile/interests", h.Profile.UpdateInterests)

	user.GET("/skillswap", h.SkillSwap.List)
	user.POST("/skillswap", h.SkillSwap.Create)
	user.POST("/skillswap/:id/accept", h.SkillSwap.Accept)

	user.GET("/pods", h.Pods.List)
	user.POST("/pods", h.Pods.Create)
	user.POST("/pods/:id/respond", h.Pods.Respond)
	user.GET("/pods/:id/replies", h.Pods.Replies)

	if h.Admin == nil {
		return
	}
	adminG := api.Group("/admin")
	adminG.Use(admin...)
	adminG.GET("/metrics", h.Admin.Metrics)
	adminG.POST("/leaderboard/refresh", h.Admin.RefreshLeaderboard)
	adminG.POST("/catalog/reload", h.Admin.ReloadCatalog)
	adminG.POST("/announce", h.Admin.Announce)
	adminG.POST("/accounts/:id/ban", h.Admin.BanAccount)
	adminG.GET("/progress/:uid", h.Admin.InspectProgress)
	adminG.GET("/scheduler", h.Admin.ListSchedulerTasks)
	adminG.POST("/scheduler/:name/run", h.Admin.RunSchedulerTask)
}
