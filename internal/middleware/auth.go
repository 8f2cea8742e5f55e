package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	roleKey   contextKey = "role"
	tierKey   contextKey = "tier"
)

// RoleAdmin is the role allowed through AdminOnly.
const RoleAdmin = "admin"

// Claims are the token fields the service reads. Older tokens carry the
// subject in user_id instead of sub.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
	Tier   string `json:"tier,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) subject() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

// Authenticator validates bearer tokens. With Redis it also rejects tokens
// whose id was revoked on logout.
type Authenticator struct {
	secret []byte
	redis  *redis.Client
	logger *logging.Logger
}

func NewAuthenticator(secret string, client *redis.Client, logger *logging.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		redis:  client,
		logger: logging.OrGlobal(logger).Named("auth"),
	}
}

func revokedKey(tokenID string) string {
	return "revoked_token:" + tokenID
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := a.validateToken(r.Context(), parts[1])
		if err != nil {
			a.logger.Debug("token rejected", zap.Error(err))
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := WithIdentity(r.Context(), claims.subject(), claims.Role, claims.Tier)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) validateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.subject() == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	if a.redis != nil && claims.ID != "" {
		n, err := a.redis.Exists(ctx, revokedKey(claims.ID)).Result()
		if err != nil {
			a.logger.Warn("revocation check failed, accepting token", zap.Error(err))
		} else if n > 0 {
			return nil, jwt.ErrTokenInvalidId
		}
	}
	return claims, nil
}

// AdminOnly lets through requests authenticated with the admin role.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Role(r.Context()) != RoleAdmin {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity stores the caller's identity in ctx.
func WithIdentity(ctx context.Context, userID, role, tier string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, roleKey, role)
	return context.WithValue(ctx, tierKey, tier)
}

func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

func Role(ctx context.Context) string {
	v, _ := ctx.Value(roleKey).(string)
	return v
}

// Tier is the caller's subscription plan, empty when the token has none.
func Tier(ctx context.Context) string {
	v, _ := ctx.Value(tierKey).(string)
	return v
}
