package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"yatube/internal/config"
	"yatube/internal/models"
	"yatube/internal/pagination"
	"yatube/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	s   *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                     "0",
		Env:                      "test",
		SecretKey:                "test-secret-that-is-long-enough-123456",
		DBDriver:                 "sqlite",
		SQLitePath:               "unused.sqlite3",
		DBConnMaxLifetimeMinutes: 5,
		MediaRoot:                t.TempDir(),
		ImageMaxUploadSizeMB:     5,
		SessionTTLHours:          24,
		FeatureFlags:             "signup=on,index_cache=on",
	}
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig(t)
	for _, m := range mutate {
		m(cfg)
	}

	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	return &testEnv{s: s, app: s.NewApp(), db: db, mr: mr}
}

// sessionFor returns a session cookie for user, as set by a successful login.
func (e *testEnv) sessionFor(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	token, _, err := e.s.sessions.Issue(user.ID, user.Username)
	require.NoError(t, err)
	return &http.Cookie{Name: "sessionid", Value: token}
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookie *http.Cookie) (*http.Response, string) {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) get(t *testing.T, target string, cookie *http.Cookie) (*http.Response, string) {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, target, nil), cookie)
}

func (e *testEnv) postForm(t *testing.T, target string, form url.Values, cookie *http.Cookie) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req, cookie)
}

func newPost(target string) *http.Request {
	return httptest.NewRequest(http.MethodPost, target, nil)
}

func countPosts(body string) int {
	return strings.Count(body, `class="post" data-post-id=`)
}

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.get(t, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, "healthy", payload.Status)
	assert.Equal(t, "healthy", payload.Checks["database"])
	assert.Equal(t, "healthy", payload.Checks["redis"])

	env.mr.Close()
	resp, body = env.get(t, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"redis":"unhealthy"`)
}

func TestNotFoundPages(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "leo")

	for _, target := range []string{
		"/posts/999/",
		"/posts/abc/",
		"/profile/nobody/",
		"/group/missing/",
		"/unexisting_page/",
	} {
		resp, body := env.get(t, target, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, target)
		assert.Contains(t, body, `data-error="404"`, target)
	}
}

func TestNotFoundPages_Authenticated(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	cookie := env.sessionFor(t, leo)

	for _, target := range []string{"/posts/999/edit/", "/profile/nobody/follow/", "/profile/nobody/unfollow/"} {
		resp, body := env.get(t, target, cookie)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, target)
		assert.Contains(t, body, `data-error="404"`, target)
	}

	resp, _ := env.postForm(t, "/posts/999/comment/", url.Values{"text": {"hi"}}, cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// MockPostRepository is a mock of the PostRepository interface
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) result(args mock.Arguments) (*pagination.Result[*models.Post], error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.Result[*models.Post]), args.Error(1)
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	return m.Called(ctx, post).Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) Update(ctx context.Context, post *models.Post) error {
	return m.Called(ctx, post).Error(0)
}

func (m *MockPostRepository) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPostRepository) List(ctx context.Context, page string) (*pagination.Result[*models.Post], error) {
	return m.result(m.Called(ctx, page))
}

func (m *MockPostRepository) ListByGroup(ctx context.Context, groupID uint, page string) (*pagination.Result[*models.Post], error) {
	return m.result(m.Called(ctx, groupID, page))
}

func (m *MockPostRepository) ListByAuthor(ctx context.Context, authorID uint, page string) (*pagination.Result[*models.Post], error) {
	return m.result(m.Called(ctx, authorID, page))
}

func (m *MockPostRepository) ListFollowedAuthorsPosts(ctx context.Context, userID uint, page string) (*pagination.Result[*models.Post], error) {
	return m.result(m.Called(ctx, userID, page))
}

func (m *MockPostRepository) Search(ctx context.Context, text string, page string) (*pagination.Result[*models.Post], error) {
	return m.result(m.Called(ctx, text, page))
}

func (m *MockPostRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	args := m.Called(ctx, authorID)
	return args.Get(0).(int64), args.Error(1)
}

func TestInternalErrorRendersErrorPage(t *testing.T) {
	env := newTestEnv(t)
	mockRepo := new(MockPostRepository)
	mockRepo.On("List", mock.Anything, "").
		Return(nil, models.NewInternalError(errors.New("connection reset"))).Once()
	mockRepo.On("List", mock.Anything, "").
		Return(&pagination.Result[*models.Post]{Page: pagination.New(0, "")}, nil).Once()
	env.s.postRepo = mockRepo

	resp, body := env.get(t, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, `data-error="500"`)

	// Failed renders are not cached.
	resp, body = env.get(t, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.Contains(t, body, titleIndex)
	mockRepo.AssertExpectations(t)
}

func TestRenderHelpers(t *testing.T) {
	assert.Equal(t, "a&lt;b&gt;<br>c<br>d", string(linebreaksbr("a<b>\r\nc\nd")))
	assert.Equal(t, "", fieldError(nil, "text"))
	assert.Equal(t, "5 марта 2024", formatDate(time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", formatDate(time.Time{}))
}
