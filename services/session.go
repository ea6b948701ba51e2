package services

import (
	"github.com/anjiri1684/tutoring_portal/models"
	"github.com/google/uuid"
)

// Session is the caller identity for one request. The zero value is an
// anonymous visitor.
type Session struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

func Anonymous() Session { return Session{} }

func (s Session) IsAuthenticated() bool { return s.UserID != uuid.Nil }

func (s Session) IsAdmin() bool { return s.IsAuthenticated() && s.Role == models.RoleAdmin }

func (s Session) requireAdmin() error {
	if !s.IsAdmin() {
		return authorizationErr("admin access required")
	}
	return nil
}
