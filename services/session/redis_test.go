package sessionsvc

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goosen-x/lms/core/access"
)

// setupTestRedis connects to REDIS_ADDR (default localhost:6379).
// Tests are skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available for testing at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisProvider_IssueResolveRevoke(t *testing.T) {
	client := setupTestRedis(t)
	p := NewRedisProvider(client)
	ctx := context.Background()

	sess := access.Session{
		UserID:    "user-123",
		Name:      "Иван Петров",
		Email:     "teacher@lms.ru",
		Role:      access.RoleTeacher,
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}
	token, err := p.Issue(ctx, sess)
	require.NoError(t, err)

	ttl, err := client.TTL(ctx, "session:"+token).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 29*time.Minute)

	got, err := p.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, sess.Email, got.Email)
	assert.Equal(t, sess.Role, got.Role)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Second)

	require.NoError(t, p.Revoke(ctx, token))
	_, err = p.Resolve(ctx, token)
	assert.Equal(t, ErrInvalidSession, err)
}

func TestRedisProvider_Issue_Expired(t *testing.T) {
	p := NewRedisProvider(setupTestRedis(t))
	_, err := p.Issue(context.Background(), access.Session{UserID: "1", Role: access.RoleAdmin, ExpiresAt: time.Now().Add(-time.Second)})
	assert.Equal(t, ErrExpiredSession, err)
}

func TestRedisProvider_Resolve_Unknown(t *testing.T) {
	p := NewRedisProvider(setupTestRedis(t))
	ctx := context.Background()

	_, err := p.Resolve(ctx, "not-a-uuid")
	assert.Equal(t, ErrInvalidSession, err)

	_, err = p.Resolve(ctx, "3b241101-e2bb-4255-8caf-4136c566a962")
	assert.Equal(t, ErrInvalidSession, err)
}

func TestRedisProvider_Resolve_StaleSession(t *testing.T) {
	client := setupTestRedis(t)
	p := NewRedisProvider(client)
	ctx := context.Background()

	token, err := p.Issue(ctx, access.Session{UserID: "1", Role: access.RoleStudent, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	nowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }
	defer func() { nowFunc = time.Now }()

	_, err = p.Resolve(ctx, token)
	assert.Equal(t, ErrExpiredSession, err)

	exists, err := client.Exists(ctx, "session:"+token).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
