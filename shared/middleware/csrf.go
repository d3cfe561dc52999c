package middleware

import (
	"net/http"

	"github.com/voiceweave/voiceweave/shared/csrf"
	internal_errors "github.com/voiceweave/voiceweave/shared/errors"
	"github.com/voiceweave/voiceweave/shared/logger"
	"github.com/voiceweave/voiceweave/shared/utils"
)

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// CSRF protects cookie-authenticated requests with a double-submit token. Safe requests get a
// csrf_token cookie if they lack one; unsafe requests that authenticate by cookie must echo it
// in the X-CSRF-Token header. Bearer-token clients are not affected.
func CSRF(secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(csrf.CookieName)
			hasToken := err == nil && cookie.Value != ""

			if isSafeMethod(r.Method) {
				if !hasToken {
					token, err := csrf.GenerateToken()
					if err != nil {
						utils.WriteErrorAndStatusCode(w, err)
						return
					}
					// readable by scripts so the client can echo it back
					http.SetCookie(w, &http.Cookie{
						Name:     csrf.CookieName,
						Value:    token,
						Path:     "/",
						Secure:   secureCookies,
						SameSite: http.SameSiteStrictMode,
						MaxAge:   86400,
					})
				}
				next.ServeHTTP(w, r)
				return
			}

			if _, err := r.Cookie(AccessTokenCookie); err != nil || r.Header.Get("Authorization") != "" {
				next.ServeHTTP(w, r)
				return
			}

			if !hasToken || !csrf.ValidateToken(cookie.Value, r.Header.Get(csrf.HeaderName)) {
				logger.Log.Warn("CSRF token validation failed", "path", r.URL.Path)
				utils.WriteErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{Message: "CSRF token invalid", StatusCode: http.StatusForbidden})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
