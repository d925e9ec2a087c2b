package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goosen-x/lms/apps/api/echo"
	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/course"
	"github.com/goosen-x/lms/core/dashboard"
	"github.com/goosen-x/lms/core/user"
	appfs "github.com/goosen-x/lms/fs"
	"github.com/goosen-x/lms/services/email"
	"github.com/goosen-x/lms/services/logger"
	"github.com/goosen-x/lms/services/session"
	"github.com/goosen-x/lms/storage/database/inmem"
	"github.com/goosen-x/lms/tests"
)

const cookieName = "lms_session"

type testApp struct {
	server   *echoapi.Server
	conf     *core.Config
	sessions access.SessionProvider
	usrRepo  user.Repository
	crsRepo  course.Repository
}

type setupOption func(deps *echoapi.ServerDeps)

func withSessions(p access.SessionProvider) setupOption {
	return func(deps *echoapi.ServerDeps) { deps.Sessions = p }
}

func setup(t *testing.T, opts ...setupOption) testApp {
	conf := &core.Config{
		AppName:             "LMS",
		TestMode:            true,
		SecretKey:           "test-secret",
		FrontendBaseURL:     "http://lms.test",
		PasswordChangeEmail: true,
	}
	conf.Session.TTL = time.Hour
	conf.Session.CookieName = cookieName

	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	core.ParseEmailTemplates(conf, appfs.FS, logger)
	emailsvc.ClearSentMessages()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)

	usrSvc := user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(conf), conf)
	crsSvc := course.NewService(crsRepo)

	deps := echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		Sessions:     sessionsvc.NewJWTProvider(conf),
		UserSvc:      usrSvc,
		CourseSvc:    crsSvc,
		DashboardSvc: dashboard.NewService(inmemdb.NewDashboardRepository(db), usrSvc, crsSvc),
		Validate:     validate,
		Translator:   translator,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return testApp{
		server:   echoapi.NewServer(deps),
		conf:     conf,
		sessions: deps.Sessions,
		usrRepo:  usrRepo,
		crsRepo:  crsRepo,
	}
}

// stubSessions resolves every token to the same session.
type stubSessions struct {
	sess *access.Session
	err  error
}

func (s stubSessions) Issue(context.Context, access.Session) (string, error) { return "stub", nil }
func (s stubSessions) Resolve(context.Context, string) (*access.Session, error) {
	return s.sess, s.err
}
func (s stubSessions) Revoke(context.Context, string) error { return nil }

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (app testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app testApp) createUser(t *testing.T, name, email string, role access.Role) (user.User, string) {
	usr := testutil.CreateUser(t, app.usrRepo, name, email, "", role, true)
	return usr, app.getToken(t, usr)
}

func (app testApp) getToken(t *testing.T, usr user.User) string {
	token, err := app.sessions.Issue(context.Background(), testutil.Session(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), obj), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func checkRedirect(t *testing.T, rec *httptest.ResponseRecorder, wantLocation string) {
	t.Helper()
	assert.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, wantLocation, rec.Header().Get("Location"))
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
