package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendswall/friendswall-go/internal/conf"
	"github.com/friendswall/friendswall-go/internal/datastore"
	"github.com/friendswall/friendswall-go/internal/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()

	s := &conf.Settings{}
	s.Database.SQLite.Enabled = true
	s.Database.SQLite.Path = filepath.Join(t.TempDir(), "wall.db")
	s.Security.SessionSecret = testSecret
	s.Security.SessionMaxAge = time.Hour
	s.WebServer.UserCacheTTL = time.Minute
	s.WebServer.SSE = conf.SSESettings{
		PollInterval:  20 * time.Millisecond,
		MaxDuration:   300 * time.Millisecond,
		RetryInterval: 3 * time.Second,
		MaxStreams:    10,
	}
	s.Feedback.PageSize = datastore.DefaultPageSize
	return s
}

type testEnv struct {
	e  *echo.Echo
	c  *Controller
	ds datastore.Interface
}

// newTestEnv builds a controller over a temporary SQLite database.
func newTestEnv(t *testing.T, settings *conf.Settings, opts ...Option) *testEnv {
	t.Helper()
	if settings == nil {
		settings = testSettings(t)
	}

	ds := datastore.New(settings, testLogger())
	require.NotNil(t, ds)
	require.NoError(t, ds.Open())

	e := echo.New()
	c, err := New(e, ds, settings, testLogger(), opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		c.Shutdown()
		assert.NoError(t, ds.Close())
	})
	return &testEnv{e: e, c: c, ds: ds}
}

// do sends a JSON request through the echo router.
func (env *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// register creates a user through the API and returns it with its session cookie.
func (env *testEnv) register(t *testing.T, email, firstName string) (*datastore.User, *http.Cookie) {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/v2/users", RegisterRequest{
		Email:     email,
		FirstName: firstName,
		LastName:  "Nathwani",
		Gender:    "male",
		DOB:       "1990-05-17",
		Password:  "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user datastore.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "registration must start a session")
	return &user, cookies[0]
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type publishedRequest struct {
	toID uint
	req  datastore.FriendRequest
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []publishedRequest
}

func (p *fakePublisher) PublishFriendRequest(_ context.Context, toID uint, req datastore.FriendRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, publishedRequest{toID: toID, req: req})
	return nil
}

func (p *fakePublisher) published() []publishedRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedRequest(nil), p.sent...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	feedback []*datastore.Feedback
}

func (n *fakeNotifier) NotifyFeedback(fb *datastore.Feedback) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.feedback = append(n.feedback, fb)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.feedback)
}
