// Package models holds the view models exposed by the API layer.
package models

import (
	"github.com/gameportal/gameportal/internal/auth"
)

// User is the request-scoped view of a logged-in user.
type User struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	IsAdmin  bool   `json:"is_admin"`
}

// FromAuthUser converts a credential store record to the API view model.
func FromAuthUser(u auth.User) *User {
	return &User{
		Username: u.Username,
		UserID:   u.UserID,
		Email:    u.Email,
		Role:     string(u.Role),
		IsAdmin:  u.IsAdmin(),
	}
}

// HeartbeatResponse is the payload returned by the heartbeat endpoint.
type HeartbeatResponse struct {
	ActiveUsers int   `json:"active_users"`
	Timestamp   int64 `json:"timestamp"`
}
