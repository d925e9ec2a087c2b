// Package sessionsvc provides the access.SessionProvider implementations.
package sessionsvc

import (
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
)

var (
	// errors
	ErrInvalidSession = errors.New("invalid session")
	ErrExpiredSession = errors.New("session expired")
)

// NewProvider returns the provider selected by the `session.backend` setting.
func NewProvider(conf *core.Config) (access.SessionProvider, error) {
	switch conf.Session.Backend {
	case "", "jwt":
		return NewJWTProvider(conf), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Address,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		return NewRedisProvider(client), nil
	}
	return nil, errors.Errorf("unknown session backend %q", conf.Session.Backend)
}
