package delivery

import (
	"sync"

	"golang.org/x/time/rate"
)

// deliveryRateLimit and deliveryRateBurst bound outbound delivery traffic
// to any single destination origin.
const (
	deliveryRateLimit = 2 // requests per second
	deliveryRateBurst = 5
)

// limiterRegistry hands out one token-bucket limiter per destination origin
// so a single slow or rate-limiting remote instance cannot starve delivery
// to every other destination.
type limiterRegistry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newLimiterRegistry() *limiterRegistry {
	return &limiterRegistry{limiters: map[string]*rate.Limiter{}}
}

func (r *limiterRegistry) get(origin string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[origin]
	if !ok {
		l = rate.NewLimiter(rate.Limit(deliveryRateLimit), deliveryRateBurst)
		r.limiters[origin] = l
	}
	return l
}
