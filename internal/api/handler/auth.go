package handler

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/gameportal/gameportal/internal/api/models"
	"github.com/gameportal/gameportal/internal/auth"
)

// LoginPage returns the login page data, including any pending flash messages.
func (h *Handler) LoginPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get(sessionUserKey) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"server_name": h.engine.Settings().Get().ServerName,
		"messages":    takeFlashes(c),
	})
}

// Login verifies the submitted credentials and binds the session. With
// remember_me checked it also issues a remember-me token cookie. Failed
// logins get a single generic message.
func (h *Handler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	if !h.engine.Authenticate(username, password) {
		flash(c, "invalid username or password")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, username)
	if err := session.Save(); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		log.Error("failed to save session", "error", err)
		return
	}

	if c.PostForm("remember_me") == "on" {
		token, err := h.engine.IssueRememberToken(username)
		if err != nil {
			log.Error("failed to issue remember token", "username", username, "error", err)
		} else {
			maxAge := h.rememberDays * 24 * 60 * 60
			c.SetCookie(rememberTokenCookie, token, maxAge, "/", "", h.secureCookies, true)
		}
	}

	log.Info("user logged in", "username", username)
	flash(c, "login successful")
	c.Redirect(http.StatusFound, "/")
}

// RegisterPage returns the registration page data.
func (h *Handler) RegisterPage(c *gin.Context) {
	if !h.engine.Settings().Get().RegistrationEnabled {
		flash(c, "registration is currently disabled")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"server_name": h.engine.Settings().Get().ServerName,
		"messages":    takeFlashes(c),
	})
}

// Register creates a new account. Duplicate username, user ID or email is
// reported as one combined message and the submitted form values are echoed
// back so the client can redisplay them.
func (h *Handler) Register(c *gin.Context) {
	username := c.PostForm("username")
	userID := c.PostForm("user_id")
	email := c.PostForm("email")
	password := c.PostForm("password")

	_, err := h.engine.RegisterUser(username, userID, email, password)
	switch {
	case errors.Is(err, auth.ErrRegistrationDisabled):
		flash(c, "registration is currently disabled")
		c.Redirect(http.StatusFound, "/login")
		return
	case errors.Is(err, auth.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{
			"error": "username, user ID or email already exists",
			"form": gin.H{
				"username": username,
				"user_id":  userID,
				"email":    email,
			},
		})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Info("new user registered", "username", username)
	flash(c, "registration complete, please log in")
	c.Redirect(http.StatusFound, "/login")
}

// Logout ends the session and revokes the remember-me token, so the token
// can never be replayed after logout.
func (h *Handler) Logout(c *gin.Context) {
	if token, err := c.Cookie(rememberTokenCookie); err == nil && token != "" {
		h.engine.RevokeRememberToken(token)
	}
	// Expire the cookie client-side as well.
	c.SetCookie(rememberTokenCookie, "", -1, "/", "", h.secureCookies, true)

	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		log.Error("failed to clear session", "error", err)
		return
	}

	c.Redirect(http.StatusFound, "/login")
}

// Profile returns the logged-in user's record.
func (h *Handler) Profile(c *gin.Context) {
	user := c.MustGet("user").(*models.User)
	c.JSON(http.StatusOK, gin.H{
		"user":     user,
		"messages": takeFlashes(c),
	})
}

// RenameUser changes the logged-in user's username. The move is atomic in
// the credential store; the session is rebound to the new name.
func (h *Handler) RenameUser(c *gin.Context) {
	user := c.MustGet("user").(*models.User)
	newUsername := c.PostForm("username")

	if newUsername == "" || newUsername == user.Username {
		flash(c, "no changes made")
		c.Redirect(http.StatusFound, "/profile")
		return
	}

	if err := h.engine.Users().Rename(user.Username, newUsername); err != nil {
		if errors.Is(err, auth.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "that username is already taken"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, newUsername)
	if err := session.Save(); err != nil {
		log.Error("failed to rebind session after rename", "error", err)
	}

	log.Info("user renamed", "from", user.Username, "to", newUsername)
	flash(c, "username updated")
	c.Redirect(http.StatusFound, "/profile")
}
