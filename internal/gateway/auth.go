package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey int

const subjectContextKey contextKey = 0

// Auth issues and validates HS256 bearer tokens.
type Auth struct {
	secret []byte
	expiry time.Duration
}

// NewAuth returns an Auth signing with secret. A zero expiry defaults to 24h.
func NewAuth(secret []byte, expiry time.Duration) (*Auth, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Auth{secret: secret, expiry: expiry}, nil
}

// GenerateToken creates a signed token for subject.
func (a *Auth) GenerateToken(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "orcbot",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateToken parses tokenStr and returns its subject.
func (a *Auth) ValidateToken(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return "", errors.New("missing sub claim")
	}
	return claims.Subject, nil
}

// AuthMiddleware rejects requests without a valid bearer token. A nil auth
// disables checking.
func AuthMiddleware(auth *Auth, next http.Handler) http.Handler {
	if auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicRoute(r) {
			next.ServeHTTP(w, r)
			return
		}

		tokenStr := extractBearerToken(r)
		if tokenStr == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="orcbot"`)
			writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}
		subject, err := auth.ValidateToken(tokenStr)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="orcbot", error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectContextKey, subject)))
	})
}

// SubjectFromContext returns the authenticated token subject, if any.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectContextKey).(string)
	return s
}

func isPublicRoute(r *http.Request) bool {
	return r.URL.Path == "/healthz" && r.Method == http.MethodGet
}

func extractBearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
