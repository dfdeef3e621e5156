package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"qamod/internal/config"
	"qamod/internal/models"
)

// DevUserHeader names the header carrying a user id when OIDC is not
// configured in development.
const DevUserHeader = "X-User-ID"

// UserStore loads and registers users.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserBySub(ctx context.Context, sub string) (*models.User, error)
	UpsertUser(ctx context.Context, user *models.User) error
}

// Identity is the caller identity extracted from a verified token.
type Identity struct {
	Sub  string
	Name string
}

// TokenVerifier verifies a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// OIDCVerifier accepts either a signed ID token issued for the client or an
// opaque access token the provider's userinfo endpoint accepts.
type OIDCVerifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer's configuration.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}
	return &OIDCVerifier{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify implements TokenVerifier.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	var claims struct {
		Sub               string `json:"sub"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
	}

	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err == nil {
		if err := idToken.Claims(&claims); err != nil {
			return nil, err
		}
	} else {
		// Not a JWT for this client; let the provider vouch for it as an
		// access token.
		userInfo, uiErr := v.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: rawToken,
			TokenType:   "Bearer",
		}))
		if uiErr != nil {
			return nil, fmt.Errorf("token rejected: %w", errors.Join(err, uiErr))
		}
		if err := userInfo.Claims(&claims); err != nil {
			return nil, err
		}
		claims.Sub = userInfo.Subject
	}

	if claims.Sub == "" {
		return nil, errors.New("token has no subject")
	}
	name := claims.Name
	if name == "" {
		name = claims.PreferredUsername
	}
	return &Identity{Sub: claims.Sub, Name: name}, nil
}

// AuthMiddleware authenticates API callers by bearer token.
type AuthMiddleware struct {
	users    UserStore
	verifier TokenVerifier
	cfg      *config.Config
}

// NewAuthMiddleware creates a new auth middleware instance. With a nil
// verifier, development builds trust the X-User-ID header instead.
func NewAuthMiddleware(users UserStore, verifier TokenVerifier, cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{users: users, verifier: verifier, cfg: cfg}
}

// RequireAuth ensures the caller is authenticated and stores the user in
// c.Locals("user").
func (m *AuthMiddleware) RequireAuth(c fiber.Ctx) error {
	user, err := m.authenticate(c)
	if err != nil {
		slog.Debug("authentication failed", "path", c.Path(), "error", err)
		return unauthorized(c)
	}
	c.Locals("user", user)
	return c.Next()
}

// RequireAdmin ensures the authenticated user may change moderation settings.
// Must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin(c fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return unauthorized(c)
	}
	if !m.cfg.IsAdmin(user.Sub) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"status": "error",
			"error":  "admin access required",
		})
	}
	return c.Next()
}

func (m *AuthMiddleware) authenticate(c fiber.Ctx) (*models.User, error) {
	if m.verifier == nil {
		if !m.cfg.IsDev() {
			return nil, errors.New("no token verifier configured")
		}
		id, err := uuid.Parse(c.Get(DevUserHeader))
		if err != nil {
			return nil, fmt.Errorf("invalid %s header: %w", DevUserHeader, err)
		}
		return m.users.GetUser(c.Context(), id)
	}

	raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return nil, errors.New("missing bearer token")
	}
	identity, err := m.verifier.Verify(c.Context(), raw)
	if err != nil {
		return nil, err
	}

	user, err := m.users.GetUserBySub(c.Context(), identity.Sub)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	// First request from this subject
	user = &models.User{Sub: identity.Sub, Name: identity.Name}
	if err := m.users.UpsertUser(c.Context(), user); err != nil {
		return nil, err
	}
	return user, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status": "error",
		"error":  "unauthorized",
	})
}
