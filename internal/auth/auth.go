package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const principalKey contextKey = "principal"

// Claims is the token payload issued by the identity service. Subject
// carries the user id; doctors additionally carry their profile id.
type Claims struct {
	jwt.RegisteredClaims
	IsDoctor  bool   `json:"is_doctor"`
	IsPatient bool   `json:"is_patient"`
	DoctorID  string `json:"doctor_id,omitempty"`
}

// Principal is the authenticated caller as seen by the handlers.
type Principal struct {
	UserID    uuid.UUID
	DoctorID  uuid.UUID // uuid.Nil unless the caller is a doctor
	IsDoctor  bool
	IsPatient bool
}

// Middleware validates the Bearer token and stores the Principal in the
// request context. Requests without a valid token get a 401.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "missing bearer token")
				return
			}
			tokenStr := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				unauthorized(w, "invalid token subject")
				return
			}

			p := Principal{
				UserID:    userID,
				IsDoctor:  claims.IsDoctor,
				IsPatient: claims.IsPatient,
			}
			if claims.DoctorID != "" {
				if did, err := uuid.Parse(claims.DoctorID); err == nil {
					p.DoctorID = did
				}
			}

			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the authenticated Principal, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// WithPrincipal puts a Principal in ctx directly. Used by tests and by
// non-HTTP entrypoints such as the worker commands.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GenerateToken signs a token for the given principal. Used by the seed
// command and tests; production tokens come from the identity service.
func GenerateToken(secret string, p Principal, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		IsDoctor:  p.IsDoctor,
		IsPatient: p.IsPatient,
	}
	if p.DoctorID != uuid.Nil {
		claims.DoctorID = p.DoctorID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "details": msg})
}
