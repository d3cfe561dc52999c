package middleware

import (
	"net/http"

	internal_errors "github.com/voiceweave/voiceweave/shared/errors"
	"github.com/voiceweave/voiceweave/shared/logger"
	"github.com/voiceweave/voiceweave/shared/middleware/ratelimiter"
	"github.com/voiceweave/voiceweave/shared/utils"
)

const CodeRateLimited = "rate_limited"

// RateLimit throttles requests per identity. Identity lookup failures are written as errors.
func RateLimit(rl *ratelimiter.UserRateLimiter, getIdentity func(r *http.Request) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := getIdentity(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if !rl.Allow(identity) {
				logger.Log.Debug("rate limit exceeded", "identity", identity, "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				utils.WriteErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{
					Message:    "Rate limit exceeded, try again later",
					StatusCode: http.StatusTooManyRequests,
					Code:       CodeRateLimited,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserIDFromContext is a RateLimit identity for routes behind NeedAuth.
func GetUserIDFromContext(r *http.Request) (string, error) {
	user := GetUserFromContext(r)
	if user == nil {
		return "", &internal_errors.ErrorWithStatusCode{Message: "Please sign-in", StatusCode: http.StatusUnauthorized}
	}
	return "user_" + string(user.Id), nil
}
