package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"essaygenius/internal/infra/logging"
	"essaygenius/internal/usecase"
)

type ctxKey string

const (
	ctxKeyUserID ctxKey = "user_id"
	ctxKeyEmail  ctxKey = "email"
)

// Auth validates HS256 bearer tokens issued by the identity provider and
// provisions the credit profile on first sight of a user.
type Auth struct {
	secret  []byte
	credits usecase.CreditUseCase
	log     *zerolog.Logger
}

func NewAuth(secret string, credits usecase.CreditUseCase, log *zerolog.Logger) *Auth {
	return &Auth{secret: []byte(secret), credits: credits, log: log}
}

func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearerToken(r)
		if raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			writeDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		userID, _ := claims["sub"].(string)
		if userID == "" {
			writeDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		email, _ := claims["email"].(string)

		if err := a.credits.EnsureProfile(r.Context(), userID, email); err != nil {
			a.log.Error().Err(err).Str("user_id", userID).Msg("profile provisioning failed")
			writeDetail(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		ctx = context.WithValue(ctx, ctxKeyEmail, email)
		ctx = logging.WithUserID(ctx, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeyUserID).(string)
	return id
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
