package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// Tiers: strict covers auth and payment routes, general everything else.
const (
	LimitStrict  = rate.Limit(2)
	BurstStrict  = 5
	LimitGeneral = rate.Limit(10)
	BurstGeneral = 20
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Limiter struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	visitors map[string]*visitor
}

func New(limit rate.Limit, burst int) *Limiter {
	l := &Limiter{
		limit:    limit,
		burst:    burst,
		visitors: make(map[string]*visitor),
	}
	go l.cleanup()
	return l
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (l *Limiter) cleanup() {
	for {
		time.Sleep(time.Minute)

		l.mu.Lock()
		for key, v := range l.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(l.visitors, key)
			}
		}
		l.mu.Unlock()
	}
}

// Middleware buckets requests by client IP.
func (l *Limiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !l.get(c.RealIP()).Allow() {
			return echo.NewHTTPError(http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
		}
		return next(c)
	}
}
