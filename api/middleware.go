package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/config"
	"github.com/pulsepoint/eris-api/models"
)

// DefaultTokenTTL is how long an issued token stays valid
const DefaultTokenTTL = 12 * time.Hour

var errRevoked = errors.New("token revoked")

// UserLookup finds a user by username
type UserLookup func(username string) (models.User, bool)

// MiddlewareAuth authenticates callers. Users sign in with basic auth,
// username only, and get a signed token to use as a bearer token from then on.
type MiddlewareAuth struct {
	Users  UserLookup
	Secret []byte
	TTL    time.Duration

	authenticator auth.Authenticator
	revoked       sync.Map
}

// SetupGoGuardian sets up the go-guardian strategies
func (m *MiddlewareAuth) SetupGoGuardian() {
	if m.TTL <= 0 {
		m.TTL = DefaultTokenTTL
	}
	m.authenticator = auth.New()
	cache := store.NewFIFO(context.Background(), m.TTL)
	basicStrategy := basic.New(m.ValidateUser, cache)
	tokenStrategy := bearer.New(m.ValidateToken, cache)

	m.authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	m.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

// Middleware rejects unauthenticated requests and puts the caller in the
// request context
func (m *MiddlewareAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		info, err := m.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Warnw("unauthorized", "url", r.URL.String(), "error", err)
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
			return
		}
		user, ok := m.Users(info.UserName())
		if !ok {
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, fmt.Errorf("user %s no longer exists", info.UserName()))
			return
		}
		zap.S().Debugw("user authenticated", "user", user.Username, "role", user.Role)
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), user)))
	})
}

// RequireRole lets only callers holding one of roles through. It must run
// inside Middleware.
func RequireRole(roles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := ActorFromContext(r.Context())
			if !ok {
				config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("no authenticated user"))
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			config.ErrorStatus("forbidden", http.StatusForbidden, w, fmt.Errorf("role %s may not %s %s", user.Role, r.Method, r.URL.Path))
		})
	}
}

// ValidateUser validates a user. Accounts carry no password; the username
// has to exist.
func (m *MiddlewareAuth) ValidateUser(ctx context.Context, r *http.Request, userName, password string) (auth.Info, error) {
	user, ok := m.Users(userName)
	if !ok {
		return nil, fmt.Errorf("no matching user found")
	}
	return userInfo(user), nil
}

// ValidateToken checks a bearer token the cache does not know yet
func (m *MiddlewareAuth) ValidateToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, err
	}
	if jti, _ := claims["jti"].(string); m.isRevoked(jti) {
		return nil, errRevoked
	}
	username, _ := claims["sub"].(string)
	user, ok := m.Users(username)
	if !ok {
		return nil, fmt.Errorf("no matching user found")
	}
	return userInfo(user), nil
}

// IssueToken signs a token for user and registers it with the bearer strategy
func (m *MiddlewareAuth) IssueToken(user models.User, r *http.Request) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(m.TTL)
	claims := jwt.MapClaims{
		"sub":  user.Username,
		"uid":  user.ID,
		"role": string(user.Role),
		"jti":  uuid.New().String(),
		"iat":  now.Unix(),
		"exp":  expires.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	tokenStrategy := m.authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Append(tokenStrategy, signed, userInfo(user), r); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to register token: %w", err)
	}
	return signed, expires, nil
}

// RevokeToken revokes the bearer token of the request and returns it
func (m *MiddlewareAuth) RevokeToken(r *http.Request) (string, error) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if token == "" {
		return "", errors.New("no bearer token")
	}
	if claims, err := m.parse(token); err == nil {
		if jti, _ := claims["jti"].(string); jti != "" {
			m.revoked.Store(jti, struct{}{})
		}
	}

	tokenStrategy := m.authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Revoke(tokenStrategy, token, r); err != nil {
		return "", fmt.Errorf("failed to revoke token: %w", err)
	}
	return token, nil
}

func (m *MiddlewareAuth) parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

func (m *MiddlewareAuth) isRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	_, ok := m.revoked.Load(jti)
	return ok
}

func userInfo(user models.User) auth.Info {
	return auth.NewDefaultUser(user.Username, strconv.Itoa(user.ID), []string{string(user.Role)}, nil)
}
