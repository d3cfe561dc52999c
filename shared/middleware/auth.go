package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/voiceweave/voiceweave/shared/domain"
	internal_errors "github.com/voiceweave/voiceweave/shared/errors"
	jwt_internal "github.com/voiceweave/voiceweave/shared/jwt"
	"github.com/voiceweave/voiceweave/shared/logger"
	"github.com/voiceweave/voiceweave/shared/utils"
)

// Key to store the user in the request context
type key int

const UserClaimsKey key = 0

const AccessTokenCookie = "accessToken"

// Auth resolves the current user from the identity token issued by the external identity provider.
type Auth struct {
	jwtService jwt_internal.JwtService
}

func NewAuth(jwtService jwt_internal.JwtService) *Auth {
	return &Auth{jwtService: jwtService}
}

var (
	errNoToken       = errors.New("no token")
	errInvalidClaims = errors.New("invalid claims")
)

// extractUser reads the token from the cookie (browser clients) or the Authorization header.
func (a *Auth) extractUser(r *http.Request) (*domain.User, error) {
	var tokenString string
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		tokenString = cookie.Value
	} else if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		tokenString = token
	} else if r.Header.Get("Upgrade") == "websocket" {
		// browsers cannot set headers on websocket handshakes
		tokenString = r.URL.Query().Get("access_token")
	}

	if tokenString == "" {
		return nil, errNoToken
	}

	token, err := a.jwtService.DecodeToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := jwt_internal.UserFromToken(token)
	if err != nil {
		logger.Log.Warn("token has invalid claims", "error", err)
		return nil, errInvalidClaims
	}
	return &user, nil
}

// NeedAuth rejects requests without a valid identity token.
func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.extractUser(r)
			if err != nil {
				switch {
				case errors.Is(err, errNoToken):
					utils.WriteErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{Message: "Please sign-in", StatusCode: http.StatusUnauthorized})
				case errors.Is(err, errInvalidClaims):
					utils.WriteErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{Message: "Invalid token", StatusCode: http.StatusUnauthorized})
				default:
					utils.WriteErrorAndStatusCode(w, err)
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext returns the user stored by NeedAuth, or nil.
func GetUserFromContext(r *http.Request) *domain.User {
	user, ok := r.Context().Value(UserClaimsKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}
