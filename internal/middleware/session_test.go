package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-123456"

func TestSessions_IssueAndParse(t *testing.T) {
	_, rdb := newTestRedis(t)
	m := NewSessions(testSecret, time.Hour, rdb)
	ctx := context.Background()

	token, issued, err := m.Issue(42, "leo")
	require.NoError(t, err)

	claims, err := m.Parse(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "leo", claims.Username)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt, time.Second)
}

func TestSessions_Revoke(t *testing.T) {
	mr, rdb := newTestRedis(t)
	m := NewSessions(testSecret, time.Hour, rdb)
	ctx := context.Background()

	token, claims, err := m.Issue(1, "leo")
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, claims))

	assert.True(t, mr.Exists("blacklist:"+claims.JTI))
	_, err = m.Parse(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessions_RejectsBadTokens(t *testing.T) {
	m := NewSessions(testSecret, time.Hour, nil)
	other := NewSessions("another-secret-that-is-long-enough-999", time.Hour, nil)
	ctx := context.Background()

	foreign, _, err := other.Issue(1, "leo")
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "iss": sessionIssuer, "aud": sessionAudience, "jti": "x",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	noneAlg := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1", "iss": sessionIssuer, "aud": sessionAudience, "jti": "x",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noneToken, err := noneAlg.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":        "not-a-token",
		"foreign secret": foreign,
		"expired":        expiredToken,
		"none algorithm": noneToken,
	} {
		_, err := m.Parse(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidSession, name)
	}
}

func TestLoginRequired(t *testing.T) {
	app := fiber.New()
	app.Get("/create/", LoginRequired("/auth/login/"), func(c *fiber.Ctx) error {
		return c.SendString("form")
	})
	authed := fiber.New()
	authed.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(5))
		return c.Next()
	})
	authed.Get("/create/", LoginRequired("/auth/login/"), func(c *fiber.Ctx) error {
		return c.SendString("form")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/create/?draft=1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/login/", loc.Path)
	assert.Equal(t, "/create/?draft=1", loc.Query().Get("next"))

	resp, err = authed.Test(httptest.NewRequest(http.MethodGet, "/create/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                         "/",
		"/profile/leo/":            "/profile/leo/",
		"/create/?x=1":             "/create/?x=1",
		"//evil.example.com/":      "/",
		"https://evil.example.com": "/",
		"relative/path":            "/",
		"/\\evil.example.com":      "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeNext(in, "/"), in)
	}
}

func TestSessions_Loader(t *testing.T) {
	_, rdb := newTestRedis(t)
	m := NewSessions(testSecret, time.Hour, rdb)

	app := fiber.New()
	deleted := map[uint]bool{}
	app.Use(m.Loader(func(_ context.Context, userID uint) (bool, error) {
		return !deleted[userID], nil
	}))
	app.Get("/", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("userID").(uint)
		name, _ := c.Locals("username").(string)
		if CurrentSession(c) == nil {
			return c.SendString("anonymous")
		}
		return c.SendString(fmt.Sprintf("%d:%s", uid, name))
	})

	get := func(cookie string) (*http.Response, string) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie})
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(body)
	}

	_, body := get("")
	assert.Equal(t, "anonymous", body)

	token, claims, err := m.Issue(7, "leo")
	require.NoError(t, err)
	_, body = get(token)
	assert.Equal(t, "7:leo", body)

	require.NoError(t, m.Revoke(context.Background(), claims))
	resp, body := get(token)
	assert.Equal(t, "anonymous", body)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), SessionCookieName+"=;")

	token, _, err = m.Issue(8, "bob")
	require.NoError(t, err)
	deleted[8] = true
	resp, body = get(token)
	assert.Equal(t, "anonymous", body)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), SessionCookieName+"=;")
}
