package api

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/gameportal/gameportal/internal/auth"
	"github.com/gameportal/gameportal/internal/api/models"
)

const (
	// SessionUserKey is the session key holding the logged-in username.
	SessionUserKey = "username"
	// RememberTokenCookie is the name of the remember-me cookie.
	RememberTokenCookie = "remember_token"
)

// autoLogin re-establishes a session from a valid remember-me token. It runs
// before any route logic and has no side effect beyond the session bind: an
// unknown or expired token silently falls through to the normal login flow.
func (s *Server) autoLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if session.Get(SessionUserKey) != nil {
			c.Next()
			return
		}

		token, err := c.Cookie(RememberTokenCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}

		username, err := s.engine.CheckRememberToken(token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				log.Error("failed to check remember token", "error", err)
			}
			c.Next()
			return
		}

		session.Set(SessionUserKey, username)
		if err := session.Save(); err != nil {
			log.Error("failed to save auto-login session", "error", err)
		} else {
			log.Debug("auto-login via remember token", "username", username)
		}
		c.Next()
	}
}

// requireAuth redirects to the login page when no session is bound. On
// success the user record is attached to the request context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		username, _ := session.Get(SessionUserKey).(string)
		if username == "" {
			flashAndRedirect(c, "please log in first", "/login")
			return
		}

		user, err := s.engine.Users().Get(username)
		if err != nil {
			// Stale session for a user that no longer resolves.
			session.Clear()
			if err := session.Save(); err != nil {
				log.Error("failed to clear stale session", "error", err)
			}
			flashAndRedirect(c, "please log in first", "/login")
			return
		}

		c.Set("user", models.FromAuthUser(user))
		c.Next()
	}
}

// requireAdmin redirects non-admin users to the home page.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := c.MustGet("user").(*models.User)
		if !ok || !user.IsAdmin {
			flashAndRedirect(c, "admin privileges required", "/")
			return
		}
		c.Next()
	}
}

// maintenanceGate rejects non-admin requests while maintenance mode is on.
func (s *Server) maintenanceGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.engine.Settings().Get().MaintenanceMode {
			c.Next()
			return
		}
		if user, ok := c.Get("user"); ok {
			if u, ok := user.(*models.User); ok && u.IsAdmin {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error": "server is in maintenance mode",
		})
	}
}

// flashAndRedirect stores a flash message in the session and aborts the
// request with a redirect.
func flashAndRedirect(c *gin.Context, message, location string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	if err := session.Save(); err != nil {
		log.Error("failed to save flash message", "error", err)
	}
	c.Redirect(http.StatusFound, location)
	c.Abort()
}
