// Package sse streams a user's progression events and server announcements
// as server-sent events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillbridge/skillbridge/server/cache"
	"github.com/skillbridge/skillbridge/server/config"
	"github.com/skillbridge/skillbridge/server/hook"
	mw "github.com/skillbridge/skillbridge/server/middleware"
	"go.uber.org/zap"
)

const AnnounceChannel = "announce"

// ProgressChannel is the pubsub channel carrying userID's events.
func ProgressChannel(userID string) string { return "progress:" + userID }

type Handler struct {
	pubsub    cache.PubSub
	sec       config.SecurityConfig
	c         cache.Cache
	logger    *zap.Logger
	keepalive time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

func NewHandler(pubsub cache.PubSub, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	return &Handler{
		pubsub:    pubsub,
		c:         c,
		sec:       sec,
		logger:    logger,
		keepalive: 30 * time.Second,
		done:      make(chan struct{}),
	}
}

// Close ends open streams. Streams opened afterwards end right away.
func (h *Handler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ServeSSE handles GET /api/events?token=<jwt>. EventSource cannot set
// headers, so the token travels in the query string.
func (h *Handler) ServeSSE(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	userID, status, msg := mw.Authenticate(c.Request.Context(), h.sec, h.c, tokenStr)
	if status != 0 {
		c.JSON(status, gin.H{"error": msg})
		return
	}

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()
	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, AnnounceChannel, ProgressChannel(userID))
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream unavailable"})
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"userId\":%q}\n\n", userID)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			event := "progress"
			if msg.Channel == AnnounceChannel {
				event = "announce"
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		case <-h.done:
			return
		}
	}
}

// Announce publishes an announcement to every connected client.
func (h *Handler) Announce(ctx context.Context, message string) error {
	raw, err := json.Marshal(gin.H{"message": message, "at": time.Now().UTC()})
	if err != nil {
		return err
	}
	return h.pubsub.Publish(ctx, AnnounceChannel, string(raw))
}

// PublishProgress forwards a committed event to the user's stream. It is
// registered as a hook.
func (h *Handler) PublishProgress(ctx context.Context, ev *hook.ProgressEvent) error {
	raw, err := json.Marshal(struct {
		*hook.ProgressEvent
		Phase          string `json:"phase"`
		ReadinessScore int    `json:"readinessScore"`
		TotalXP        int64  `json:"totalXp"`
	}{ev, string(ev.Progress.CurrentPhase), ev.Progress.ReadinessScore, ev.Progress.TotalXP})
	if err != nil {
		return err
	}
	return h.pubsub.Publish(ctx, ProgressChannel(ev.UserID), string(raw))
}
