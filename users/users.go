package users

import (
	"slices"
	"time"
)

// RoleType represents a role granted by the API
type RoleType string

const (
	RoleStudent    RoleType = "student"
	RoleInstructor RoleType = "instructor"
	RoleAdmin      RoleType = "admin"
)

// User is the profile record served by the API. It is read-only here and is
// refreshed by re-querying /auth/me.
type User struct {
	ID                int        `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	AvatarURL         string     `json:"avatar_url"`
	IsActive          bool       `json:"is_active"`
	Bio               *string    `json:"bio"`
	Roles             []RoleType `json:"roles"`
	Permissions       []string   `json:"permissions"`
	CoursesCount      *int       `json:"courses_count,omitempty"` // instructors only
	EnrollmentsCount  int        `json:"enrollments_count"`
	CertificatesCount int        `json:"certificates_count"`
	EmailVerifiedAt   *time.Time `json:"email_verified_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role RoleType) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role)
}

// HasPermission reports whether the user holds the named permission.
func (u *User) HasPermission(permission string) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Permissions, permission)
}

func (u *User) IsInstructor() bool {
	return u.HasRole(RoleInstructor)
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// IsVerified returns true once the user has confirmed their email address
func (u *User) IsVerified() bool {
	return u != nil && u.EmailVerifiedAt != nil
}

// DisplayRole returns the most privileged role, used for labels in the UI.
func (u *User) DisplayRole() RoleType {
	switch {
	case u.IsAdmin():
		return RoleAdmin
	case u.IsInstructor():
		return RoleInstructor
	default:
		return RoleStudent
	}
}
