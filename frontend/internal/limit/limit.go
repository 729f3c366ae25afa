// Package limit rate limits visitors.
package limit

import (
	"net/http"
	"time"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
)

// RateLimit allows n requests per second per visitor address.
func RateLimit(n float64) func(http.Handler) http.Handler {
	l := tollbooth.NewLimiter(n, &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Hour,
	})
	l.SetIPLookups([]string{"X-Forwarded-For", "X-Real-IP", "RemoteAddr"})
	l.SetMessageContentType("text/plain; charset=utf-8")
	l.SetMessage("Slow down, too many requests.")

	return func(next http.Handler) http.Handler {
		return tollbooth.LimitHandler(l, next)
	}
}
