package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
)

type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	AvatarURL    string      `json:"avatar_url,omitempty"`
	Role         access.Role `json:"role"`
	IsActive     bool        `json:"is_active"`
	PasswordHash []byte      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`           // UTC
	UpdatedAt    time.Time   `json:"updated_at"`           // UTC
	LastLogin    time.Time   `json:"last_login,omitempty"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == access.RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == access.RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == access.RoleStudent }

// Session returns the session describing u, valid until expiresAt.
func (u *User) Session(expiresAt time.Time) access.Session {
	return access.Session{
		UserID:    u.ID,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
		ExpiresAt: expiresAt.UTC(),
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string      `json:"name" validate:"required,notblank,max=100"`
	Email           string      `json:"email" validate:"required,email"`
	Role            access.Role `json:"role" validate:"omitempty,role"`
	Password        string      `json:"password" validate:"required"`
	PasswordConfirm string      `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if nu.Role == "" {
		nu.Role = access.RoleStudent
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Email)
}

// UpdateProfile defines what information a User may change on their own profile.
type UpdateProfile struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	return validate.Struct(up)
}

// ChangePassword contains information needed to change a User's password.
// NewPassword is checked against the password policy of the owning User.
type ChangePassword struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`

	usr User
}

func (cp *ChangePassword) Validate(validate *validator.Validate, usr User) error {
	cp.usr = usr
	return validate.Struct(cp)
}

type QueryFilter struct {
	Search      string        `query:"search"`
	Roles       []access.Role `query:"role"`
	IsActive    *bool         `query:"is_active"`
	CreatedFrom time.Time     `query:"created_from"`
	CreatedTo   time.Time     `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	roles := make([]access.Role, 0, len(qf.Roles))
	for _, r := range qf.Roles {
		if role, err := access.ParseRole(string(r)); err == nil {
			roles = append(roles, role)
		}
	}
	if len(qf.Roles) > 0 {
		qf.Roles = roles
	}
}

// GetFilter selects a single User, by ID or by Email.
type GetFilter struct {
	ID    string
	Email string
}

// Orderable maps the orderable fields to their column.
var Orderable = map[string]string{
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"is_active":  "is_active",
	"created_at": "created_at",
	"last_login": "last_login",
}
