package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/gameportal/gameportal/internal/api/models"
	"github.com/gameportal/gameportal/internal/auth"
	"github.com/gameportal/gameportal/internal/settings"
	"github.com/gameportal/gameportal/internal/stats"
)

// ListUsers returns all registered users for the admin user list.
func (h *Handler) ListUsers(c *gin.Context) {
	users := lo.Map(h.engine.Users().List(), func(u auth.User, _ int) *models.User {
		return models.FromAuthUser(u)
	})
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetSettings returns the current server settings.
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings": h.engine.Settings().Get(),
		"messages": takeFlashes(c),
	})
}

// UpdateSettings applies a settings update from the admin form. Non-numeric
// or out-of-range values are reported and leave the settings unchanged. The
// new timeout is picked up by the presence janitor on its next cycle.
func (h *Handler) UpdateSettings(c *gin.Context) {
	next, err := parseSettingsForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings input"})
		return
	}

	if err := h.engine.Settings().Update(next); err != nil {
		if errors.Is(err, settings.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Info("server settings updated", "by", c.MustGet("user").(*models.User).Username)
	flash(c, "server settings updated")
	c.Redirect(http.StatusFound, "/admin/settings")
}

// Stats returns the statistics snapshot for the admin dashboard. The
// snapshot is cached for a few seconds to keep repeated polling cheap.
func (h *Handler) Stats(c *gin.Context) {
	if cached, found := h.statsCache.Get(statsCacheKey); found {
		if snapshot, ok := cached.(stats.Snapshot); ok {
			c.JSON(http.StatusOK, snapshot)
			return
		}
	}

	snapshot := h.collector.Snapshot(
		h.engine.ActiveCount(),
		h.engine.Users().Len(),
		h.engine.TokenCount(),
	)
	h.statsCache.Set(statsCacheKey, snapshot, 0)
	c.JSON(http.StatusOK, snapshot)
}

// ResetStats clears the presence map and the peak counter.
func (h *Handler) ResetStats(c *gin.Context) {
	h.engine.ResetPresence()
	h.collector.Reset()
	h.statsCache.Delete(statsCacheKey)

	log.Info("statistics reset", "by", c.MustGet("user").(*models.User).Username)
	flash(c, "statistics reset")
	c.Redirect(http.StatusFound, "/admin/stats")
}

// Jobs returns the state of the background janitor jobs.
func (h *Handler) Jobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.engine.Scheduler().Jobs()})
}

// parseSettingsForm reads the settings form fields. Checkboxes follow the
// HTML convention of submitting "on" when checked.
func parseSettingsForm(c *gin.Context) (settings.Settings, error) {
	var next settings.Settings
	var err error

	if next.UserTimeout, err = strconv.Atoi(c.PostForm("user_timeout")); err != nil {
		return next, err
	}
	if next.HeartbeatInterval, err = strconv.Atoi(c.PostForm("heartbeat_interval")); err != nil {
		return next, err
	}
	if next.MaxUsers, err = strconv.Atoi(c.PostForm("max_users")); err != nil {
		return next, err
	}
	next.MaintenanceMode = c.PostForm("maintenance_mode") == "on"
	next.RegistrationEnabled = c.PostForm("registration_enabled") == "on"
	next.DebugMode = c.PostForm("debug_mode") == "on"
	next.ServerName = c.PostForm("server_name")

	return next, nil
}
