package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"staybook/internal/app/auth"
)

var errSecretMissing = errors.New("ginserver: jwt secret not configured")

// Claims is the bearer token payload. Tokens are minted by the account
// service; this server only verifies them.
type Claims struct {
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	Secret []byte
	Issuer string
	Logger *slog.Logger
}

// Handle attaches the verified principal to the request context. Requests
// without a valid token continue anonymously and fail later where an
// identity is required.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || len(m.Secret) == 0 {
		c.Next()
		return
	}
	p, err := m.verify(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
	c.Next()
}

func (m AuthMiddleware) verify(raw string) (auth.Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.Issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.Secret, nil
	}, opts...)
	if err != nil {
		return auth.Principal{}, err
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return auth.Principal{}, err
	}
	if strings.TrimSpace(subject) == "" {
		return auth.Principal{}, jwt.ErrTokenInvalidSubject
	}
	roles := make([]auth.Role, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		roles = append(roles, auth.Role(strings.ToLower(strings.TrimSpace(r))))
	}
	return auth.Principal{ID: subject, Name: claims.Name, Email: claims.Email, Roles: roles}, nil
}

// IssueToken signs an HS256 token for p. Used by local tooling and tests.
func IssueToken(secret []byte, issuer string, p auth.Principal, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errSecretMissing
	}
	now := time.Now().UTC()
	roles := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, string(r))
	}
	claims := Claims{
		Name:  p.Name,
		Email: p.Email,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func currentPrincipal(c *gin.Context) (auth.Principal, bool) {
	return auth.FromContext(c.Request.Context())
}

func requireRole(c *gin.Context, role auth.Role) (auth.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return auth.Principal{}, false
	}
	if role != "" && !p.Has(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return auth.Principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
