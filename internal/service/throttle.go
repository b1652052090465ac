package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kjstillabower/homepage-weather/internal/observability"
)

// DefaultWarnInterval is the minimum spacing of warnings sharing a key.
const DefaultWarnInterval = 60 * time.Second

// WarnThrottle admits at most one warning per interval for each failure key.
// Each key gets its own single-token limiter, evaluated against an injectable
// clock so repeated polling does not flood the log.
type WarnThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	limiters map[string]*rate.Limiter
}

// NewWarnThrottle returns a throttle. A zero interval means DefaultWarnInterval;
// a nil clock means time.Now.
func NewWarnThrottle(interval time.Duration, now func() time.Time) *WarnThrottle {
	if interval <= 0 {
		interval = DefaultWarnInterval
	}
	if now == nil {
		now = time.Now
	}
	return &WarnThrottle{
		interval: interval,
		now:      now,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a warning for key may be logged now. Suppressed
// warnings are counted.
func (w *WarnThrottle) Allow(key string) bool {
	w.mu.Lock()
	lim, ok := w.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(w.interval), 1)
		w.limiters[key] = lim
	}
	allowed := lim.AllowN(w.now(), 1)
	w.mu.Unlock()

	if !allowed {
		observability.WarningsSuppressedTotal.WithLabelValues(key).Inc()
	}
	return allowed
}
