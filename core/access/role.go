package access

import (
	"errors"
	"strings"
)

// Role is the single role held by an authenticated user.
// The string form is the persisted one (users.role column, session payloads).
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// Redirect targets.
const (
	LoginPath   = "/login"
	AdminHome   = "/admin"
	TeacherHome = "/teacher"
	StudentHome = "/student"
)

var (
	// Roles lists every known role, highest privileges first.
	Roles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

	ErrUnknownRole = errors.New("unknown role")
)

func (r Role) String() string { return string(r) }

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// ParseRole maps an external role representation onto a Role.
// Matching is case-insensitive; anything else is ErrUnknownRole.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

// RoleHome returns the landing route of the given role.
// Every role must be listed here: an unlisted role is ErrUnknownRole, never a fallback route.
func RoleHome(r Role) (string, error) {
	switch r {
	case RoleAdmin:
		return AdminHome, nil
	case RoleTeacher:
		return TeacherHome, nil
	case RoleStudent:
		return StudentHome, nil
	default:
		return "", ErrUnknownRole
	}
}
