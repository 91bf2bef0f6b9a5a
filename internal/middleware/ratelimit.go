package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/AdarBahar/MyTrip-sub003/pkg/response"
	"github.com/gin-gonic/gin"
)

// windowCounter tracks request counts per key in fixed windows. The ingestion
// path is keyed by device id so one noisy tracker cannot starve the rest;
// everything else falls back to client IP.
type windowCounter struct {
	mu     sync.Mutex
	counts map[string]int
	start  time.Time
	limit  int
	window time.Duration
}

func newWindowCounter(limit int, window time.Duration) *windowCounter {
	return &windowCounter{
		counts: make(map[string]int),
		start:  time.Now(),
		limit:  limit,
		window: window,
	}
}

// allow counts one request for key, resetting the window when it elapses
func (w *windowCounter) allow(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if now.Sub(w.start) >= w.window {
		w.counts = make(map[string]int)
		w.start = now
	}

	if w.counts[key] >= w.limit {
		return false
	}
	w.counts[key]++
	return true
}

// RateLimit limits requests per client key within a fixed window
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	counter := newWindowCounter(limit, window)

	return func(c *gin.Context) {
		key := c.Query("deviceId")
		if key == "" {
			key = c.ClientIP()
		}

		if !counter.allow(key) {
			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
