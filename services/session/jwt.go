package sessionsvc

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
)

var nowFunc = time.Now // mockable

// Claims represents the session claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Role      string `json:"role"`
}

// JWTProvider issues stateless HS256 signed sessions.
type JWTProvider struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

var _ access.SessionProvider = (*JWTProvider)(nil)

func NewJWTProvider(conf *core.Config) *JWTProvider {
	return &JWTProvider{
		key:    []byte(conf.SecretKey),
		issuer: conf.AppName,
		ttl:    conf.Session.TTL,
	}
}

func (p *JWTProvider) Issue(_ context.Context, sess access.Session) (string, error) {
	now := nowFunc()
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = now.Add(p.ttl)
	}
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    p.issuer,
			Subject:   sess.UserID,
			ExpiresAt: sess.ExpiresAt.Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:      sess.Name,
		Email:     sess.Email,
		AvatarURL: sess.AvatarURL,
		Role:      string(sess.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(p.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (p *JWTProvider) Resolve(_ context.Context, token string) (*access.Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.key, nil
	})
	if err != nil {
		if verr, ok := err.(*jwt.ValidationError); ok && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrExpiredSession
		}
		return nil, ErrInvalidSession
	}
	if claims.Subject == "" || claims.ExpiresAt == 0 {
		return nil, ErrInvalidSession
	}

	role := access.Role(claims.Role)
	if !role.IsValid() {
		return nil, access.ErrUnknownRole
	}
	return &access.Session{
		UserID:    claims.Subject,
		Name:      claims.Name,
		Email:     claims.Email,
		AvatarURL: claims.AvatarURL,
		Role:      role,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0).UTC(),
	}, nil
}

// Revoke is a no-op: JWT sessions expire on their own.
func (p *JWTProvider) Revoke(context.Context, string) error { return nil }
