package dig_container

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/goosen-x/lms/apps/api/echo"
	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
)

func TestNew_MemoryEngine(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv("TEST_DATABASE_ENGINE", "memory")
	t.Setenv("TEST_SESSION_BACKEND", "jwt")

	c := New()
	err := c.Invoke(func(conf *core.Config, sessions access.SessionProvider, db io.Closer, server *echoapi.Server) {
		assert.Equal(t, "TEST", conf.Env)
		assert.True(t, conf.TestMode)
		assert.Equal(t, "memory", conf.Database.Engine)
		assert.NotNil(t, sessions)
		assert.NoError(t, db.Close())

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, access.LoginPath, rec.Header().Get("Location"))
	})
	require.NoError(t, err)
}
