package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ruang/config"
	"ruang/shared"
	"ruang/shared/cache"
	"ruang/shared/constant"
	"ruang/transport/http/response"

	goCache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	cacheKeyRateLimit = "limiter"
)

// RateLimit counts requests per client. The redis driver shares a fixed window across instances,
// the local driver keeps a token bucket per client in process.
func (a *appMiddleware) RateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := a.config.App.RateLimiter
			if !limiter.Enable {
				next.ServeHTTP(w, r)

				return
			}

			key := shared.BuildCacheKey(cacheKeyRateLimit, clientIP(r), userAgent(r))

			var (
				remaining int
				allowed   bool
			)

			if limiter.Driver == config.LimiterDriverLocal {
				remaining, allowed = a.local.allow(key)
			} else {
				var ok bool

				remaining, allowed, ok = a.windowAllow(r, key)
				if !ok {
					// Fail open when the shared store is unreachable.
					next.ServeHTTP(w, r)

					return
				}
			}

			w.Header().Set(constant.RequestHeaderRateLimit, strconv.Itoa(limiter.MaxRequests))
			w.Header().Set(constant.RequestHeaderRateLimitRemaining, strconv.Itoa(remaining))
			w.Header().Set(constant.RequestHeaderRateLimitWindow, strconv.Itoa(limiter.WindowSeconds))

			if !allowed {
				response.WithRequestLimitExceeded(w)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (a *appMiddleware) windowAllow(r *http.Request, key string) (remaining int, allowed, ok bool) {
	maxReqs := a.config.App.RateLimiter.MaxRequests

	var count int

	err := a.cache.Get(r.Context(), key, &count)

	switch {
	case err == nil:
		count++
	case errors.Is(err, cache.Nil):
		count = 1
	default:
		return 0, false, false
	}

	if count > maxReqs {
		return 0, false, true
	}

	if err := a.cache.Save(r.Context(), key, count, a.config.App.RateLimiter.WindowSeconds); err != nil {
		return 0, false, false
	}

	return maxReqs - count, true, true
}

type localLimiter struct {
	buckets *goCache.Cache
	limit   rate.Limit
	burst   int
}

func newLocalLimiter(maxReqs, windowSecs int) *localLimiter {
	window := time.Duration(max(windowSecs, 1)) * time.Second
	burst := max(maxReqs, 1)

	return &localLimiter{
		buckets: goCache.New(2*window, 4*window),
		limit:   rate.Every(window / time.Duration(burst)),
		burst:   burst,
	}
}

func (l *localLimiter) allow(key string) (remaining int, allowed bool) {
	bucket := rate.NewLimiter(l.limit, l.burst)

	if err := l.buckets.Add(key, bucket, goCache.DefaultExpiration); err != nil {
		if existing, found := l.buckets.Get(key); found {
			bucket, _ = existing.(*rate.Limiter)
		}
	}

	allowed = bucket.Allow()

	return max(0, int(bucket.Tokens())), allowed
}

func userAgent(r *http.Request) string {
	ua := r.Header.Get(constant.RequestHeaderUserAgent)
	if ua == "" {
		ua = "unknown"
	}

	return ua
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For may carry a chain; the first entry is the client.
	if xff := r.Header.Get(constant.RequestHeaderForwardedFor); xff != "" {
		if commaIdx := strings.Index(xff, ","); commaIdx > 0 {
			return strings.TrimSpace(xff[:commaIdx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get(constant.RequestHeaderRealIP); xri != "" {
		return strings.TrimSpace(xri)
	}

	return r.RemoteAddr
}
