package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/semillero-service/internal/domain"
	apperrors "github.com/spec-kit/semillero-service/pkg/util/errorutil"
)

const sessionKey = "auth_session_id"

// SessionLookup confirms a session still exists.
type SessionLookup interface {
	Get(ctx context.Context, id string) (domain.Session, error)
}

// SessionMiddleware validates bearer tokens and resolves the caller's session.
type SessionMiddleware struct {
	tokens   *TokenManager
	sessions SessionLookup
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(tokens *TokenManager, sessions SessionLookup) *SessionMiddleware {
	return &SessionMiddleware{tokens: tokens, sessions: sessions}
}

// Handle enforces a valid session token. Websocket upgrades may pass it as ?token=.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	raw, err := bearerToken(c)
	if err != nil {
		return err
	}

	claims, err := m.tokens.ParseToken(raw)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	if _, err := m.sessions.Get(c.UserContext(), claims.SessionID); err != nil {
		if apperrors.CodeOf(err) == "NOT_FOUND" {
			return apperrors.NewUnauthorized("session expired")
		}
		return apperrors.MapError(err)
	}

	c.Locals(sessionKey, claims.SessionID)
	return c.Next()
}

// SessionIDFromContext retrieves the authenticated session id.
func SessionIDFromContext(c *fiber.Ctx) (string, bool) {
	id, ok := c.Locals(sessionKey).(string)
	return id, ok && id != ""
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return parts[1], nil
}
