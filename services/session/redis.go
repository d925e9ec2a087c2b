package sessionsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/goosen-x/lms/core/access"
)

// RedisProvider keeps sessions server side; tokens are opaque ids.
// Keys expire along with the sessions they hold.
type RedisProvider struct {
	client redis.UniversalClient
	prefix string
}

var _ access.SessionProvider = (*RedisProvider)(nil)

func NewRedisProvider(client redis.UniversalClient) *RedisProvider {
	return &RedisProvider{client: client, prefix: "session:"}
}

func (p *RedisProvider) Issue(ctx context.Context, sess access.Session) (string, error) {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return "", ErrExpiredSession
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return "", errors.Wrap(err, "marshalling session")
	}

	id := uuid.New().String()
	if err = p.client.Set(ctx, p.prefix+id, data, ttl).Err(); err != nil {
		return "", errors.Wrap(err, "saving session")
	}
	return id, nil
}

func (p *RedisProvider) Resolve(ctx context.Context, token string) (*access.Session, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrInvalidSession
	}

	data, err := p.client.Get(ctx, p.prefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidSession
		}
		return nil, errors.Wrap(err, "getting session")
	}

	var sess access.Session
	if err = json.Unmarshal(data, &sess); err != nil {
		return nil, errors.Wrap(err, "unmarshalling session")
	}
	if nowFunc().After(sess.ExpiresAt) {
		if err = p.Revoke(ctx, token); err != nil {
			return nil, errors.Wrap(err, "deleting expired session")
		}
		return nil, ErrExpiredSession
	}
	if !sess.Role.IsValid() {
		return nil, access.ErrUnknownRole
	}
	return &sess, nil
}

func (p *RedisProvider) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return errors.Wrap(p.client.Del(ctx, p.prefix+token).Err(), "deleting session")
}
