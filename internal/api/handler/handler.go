// Package handler contains the gin request handlers.
package handler

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"github.com/gameportal/gameportal/internal/api/models"
	"github.com/gameportal/gameportal/internal/engine"
	"github.com/gameportal/gameportal/internal/stats"
)

const (
	// sessionUserKey mirrors api.SessionUserKey; the handler package reads
	// the session directly for the public endpoints.
	sessionUserKey = "username"
	// rememberTokenCookie is the name of the remember-me cookie.
	rememberTokenCookie = "remember_token"

	// statsCacheKey is the go-cache key for the admin stats snapshot.
	statsCacheKey = "admin_stats"
)

// Handler bundles the dependencies of the request handlers.
type Handler struct {
	engine        *engine.Engine
	collector     *stats.Collector
	statsCache    *gocache.Cache
	secureCookies bool
	rememberDays  int
}

// New creates a handler.
func New(eng *engine.Engine, collector *stats.Collector, secureCookies bool, rememberDays int) *Handler {
	return &Handler{
		engine:        eng,
		collector:     collector,
		statsCache:    gocache.New(5*time.Second, time.Minute),
		secureCookies: secureCookies,
		rememberDays:  rememberDays,
	}
}

// Home is the landing page. A logged-in visit counts as presence activity.
func (h *Handler) Home(c *gin.Context) {
	session := sessions.Default(c)
	username, _ := session.Get(sessionUserKey).(string)

	resp := gin.H{
		"server_name":  h.engine.Settings().Get().ServerName,
		"active_users": h.engine.ActiveCount(),
	}
	if username != "" {
		active := h.engine.RecordHeartbeat(username)
		h.collector.Observe(active)
		resp["active_users"] = active
		resp["username"] = username
	}

	c.JSON(http.StatusOK, resp)
}

// Heartbeat refreshes the caller's presence entry and returns the active user
// count. Clients poll this every heartbeat_interval seconds.
func (h *Handler) Heartbeat(c *gin.Context) {
	session := sessions.Default(c)
	username, _ := session.Get(sessionUserKey).(string)

	var active int
	if username != "" {
		active = h.engine.RecordHeartbeat(username)
		h.collector.Observe(active)
	} else {
		active = h.engine.ActiveCount()
	}

	c.JSON(http.StatusOK, models.HeartbeatResponse{
		ActiveUsers: active,
		Timestamp:   time.Now().Unix(),
	})
}

// flash stores a flash message in the session.
func flash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	if err := session.Save(); err != nil {
		log.Error("failed to save flash message", "error", err)
	}
}

// takeFlashes pops all pending flash messages from the session.
func takeFlashes(c *gin.Context) []string {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := session.Save(); err != nil {
		log.Error("failed to consume flash messages", "error", err)
	}

	messages := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			messages = append(messages, s)
		}
	}
	return messages
}
