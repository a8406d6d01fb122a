package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "sessionid"

const (
	sessionIssuer   = "yatube"
	sessionAudience = "yatube-web"
)

// ErrInvalidSession is returned for malformed, expired or revoked session tokens.
var ErrInvalidSession = errors.New("invalid session")

// SessionClaims is the decoded content of a session token.
type SessionClaims struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// Sessions issues, verifies and revokes HS256-signed session tokens.
// Revoked token ids are kept in Redis until the token would have expired.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	redis  *redis.Client
}

// NewSessions returns a session manager. rdb may be nil, in which case
// revocation is a no-op and logout only clears the cookie.
func NewSessions(secret string, ttl time.Duration, rdb *redis.Client) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, redis: rdb}
}

// Issue signs a new session token for the user.
func (m *Sessions) Issue(userID uint, username string) (string, *SessionClaims, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID:    userID,
		Username:  username,
		JTI:       uuid.NewString(),
		ExpiresAt: now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"usr": username,
		"iss": sessionIssuer,
		"aud": sessionAudience,
		"exp": claims.ExpiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": claims.JTI,
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies a session token and checks that it has not been revoked.
func (m *Sessions) Parse(ctx context.Context, tokenString string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithAudience(sessionAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidSession
	}
	sub, err := mc.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, fmt.Errorf("%w: bad subject %q", ErrInvalidSession, sub)
	}
	jti, _ := mc["jti"].(string)
	if jti == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalidSession)
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrInvalidSession)
	}
	username, _ := mc["usr"].(string)

	if m.redis != nil {
		n, err := m.redis.Exists(ctx, revokedKey(jti)).Result()
		if err != nil {
			// Redis outage must not log every user out.
			Logger.WarnContext(ctx, "session revocation check failed", slog.String("error", err.Error()))
		} else if n > 0 {
			return nil, fmt.Errorf("%w: revoked", ErrInvalidSession)
		}
	}

	return &SessionClaims{
		UserID:    uint(userID),
		Username:  username,
		JTI:       jti,
		ExpiresAt: exp.Time,
	}, nil
}

// Revoke blacklists the token id until the token's own expiry.
func (m *Sessions) Revoke(ctx context.Context, claims *SessionClaims) error {
	if m.redis == nil || claims == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return m.redis.Set(ctx, revokedKey(claims.JTI), "1", ttl).Err()
}

// Cookie builds the session cookie for a freshly issued token.
func (m *Sessions) Cookie(token string, claims *SessionClaims, secure bool) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// ExpiredSessionCookie returns a cookie that removes the session from the browser.
func ExpiredSessionCookie() *fiber.Cookie {
	return &fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// UserLookup reports whether the account behind a session still exists.
type UserLookup func(ctx context.Context, userID uint) (bool, error)

// Loader resolves the session cookie into the "userID", "username" and "session"
// locals. Invalid or revoked cookies, and cookies of deleted accounts, are cleared
// and the request continues anonymously. A nil lookup skips the account check.
func (m *Sessions) Loader(lookup UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookieName)
		if token == "" {
			return c.Next()
		}

		claims, err := m.Parse(c.UserContext(), token)
		if err != nil {
			c.Cookie(ExpiredSessionCookie())
			return c.Next()
		}

		if lookup != nil {
			exists, err := lookup(c.UserContext(), claims.UserID)
			if err != nil {
				return err
			}
			if !exists {
				c.Cookie(ExpiredSessionCookie())
				return c.Next()
			}
		}

		c.Locals("userID", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("session", claims)
		c.SetUserContext(WithUserID(c.UserContext(), claims.UserID))
		return c.Next()
	}
}

// CurrentSession returns the claims stored by Loader, or nil for anonymous requests.
func CurrentSession(c *fiber.Ctx) *SessionClaims {
	claims, _ := c.Locals("session").(*SessionClaims)
	return claims
}

func revokedKey(jti string) string {
	return "blacklist:" + jti
}

// LoginRequired redirects anonymous requests to loginPath, carrying the
// original path and query in the "next" parameter.
// The session loader must run first and set the "userID" local.
func LoginRequired(loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			return c.Next()
		}
		return c.Redirect(LoginRedirectURL(loginPath, c.OriginalURL()))
	}
}

// LoginRedirectURL returns loginPath with next as an escaped query parameter.
func LoginRedirectURL(loginPath, next string) string {
	return loginPath + "?next=" + url.QueryEscape(next)
}

// SafeNext returns next when it is a local absolute path and fallback otherwise.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	if u, err := url.Parse(next); err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
