// Package access decides, for every request to a protected route group, whether the
// content is rendered or the caller is redirected.
//
// The decision is a pure function of the request's session and the group's policy:
// nothing is cached between calls and no state is shared, so Decide is safe to call
// from any number of concurrent requests.
package access

import (
	"context"
	"strings"
	"time"
)

// Session is the authenticated identity attached to a request.
type Session struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionProvider issues, resolves and revokes sessions.
// Resolve returns a nil session (and possibly an error) when the token does not map to a live session.
type SessionProvider interface {
	Issue(ctx context.Context, sess Session) (string, error)
	Resolve(ctx context.Context, token string) (*Session, error)
	Revoke(ctx context.Context, token string) error
}

// Policy is the access policy of a route group:
// either any authenticated user, or only the listed roles.
type Policy struct {
	roles []Role
}

// AnyAuthenticated allows every authenticated user.
func AnyAuthenticated() Policy { return Policy{} }

// AllowRoles allows the listed roles only. Without roles, it is AnyAuthenticated.
func AllowRoles(roles ...Role) Policy {
	if len(roles) == 0 {
		return AnyAuthenticated()
	}
	rs := make([]Role, len(roles))
	copy(rs, roles)
	return Policy{roles: rs}
}

// IsAnyAuthenticated reports whether the policy lets in every authenticated user.
func (p Policy) IsAnyAuthenticated() bool { return len(p.roles) == 0 }

// Roles returns a copy of the allowed roles (nil for AnyAuthenticated).
func (p Policy) Roles() []Role {
	if p.IsAnyAuthenticated() {
		return nil
	}
	rs := make([]Role, len(p.roles))
	copy(rs, p.roles)
	return rs
}

// Allows reports whether r is permitted by the policy.
func (p Policy) Allows(r Role) bool {
	if p.IsAnyAuthenticated() {
		return true
	}
	for _, allowed := range p.roles {
		if allowed == r {
			return true
		}
	}
	return false
}

func (p Policy) String() string {
	if p.IsAnyAuthenticated() {
		return "any authenticated"
	}
	names := make([]string, 0, len(p.roles))
	for _, r := range p.roles {
		names = append(names, r.String())
	}
	return strings.Join(names, ",")
}

// RouteGroup is a section of the application sharing one access policy.
type RouteGroup struct {
	Name   string
	Prefix string
	Policy Policy
}

var (
	AdminArea   = RouteGroup{Name: "admin", Prefix: AdminHome, Policy: AllowRoles(RoleAdmin)}
	TeacherArea = RouteGroup{Name: "teacher", Prefix: TeacherHome, Policy: AllowRoles(RoleTeacher, RoleAdmin)}
	StudentArea = RouteGroup{Name: "student", Prefix: StudentHome, Policy: AllowRoles(RoleStudent)}
	CoursesArea = RouteGroup{Name: "courses", Prefix: "/courses", Policy: AnyAuthenticated()}
	Dashboard   = RouteGroup{Name: "dashboard", Prefix: "/dashboard", Policy: AnyAuthenticated()}
	ProfileArea = RouteGroup{Name: "profile", Prefix: "/profile", Policy: AnyAuthenticated()}
)

// Action is the outcome of a guard decision.
type Action int

const (
	Render Action = iota + 1
	RedirectToLogin
	RedirectToRoleHome
)

func (a Action) String() string {
	switch a {
	case Render:
		return "render"
	case RedirectToLogin:
		return "redirect-to-login"
	case RedirectToRoleHome:
		return "redirect-to-role-home"
	default:
		return "unknown"
	}
}

// Decision is what the guard wants done with a request.
// Location is set for redirects only.
type Decision struct {
	Action   Action
	Location string
}

// IsRedirect reports whether the decision is a redirect.
func (d Decision) IsRedirect() bool { return d.Action == RedirectToLogin || d.Action == RedirectToRoleHome }

// Decide computes the guard decision for the session of a request (nil when there is none)
// and the policy of the route group it targets.
// A session holding an unknown role is ErrUnknownRole; callers must fail closed on it.
func Decide(sess *Session, policy Policy) (Decision, error) {
	if sess == nil {
		return Decision{Action: RedirectToLogin, Location: LoginPath}, nil
	}
	if !sess.Role.IsValid() {
		return Decision{}, ErrUnknownRole
	}
	if policy.Allows(sess.Role) {
		return Decision{Action: Render}, nil
	}
	home, err := RoleHome(sess.Role)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Action: RedirectToRoleHome, Location: home}, nil
}
