package delivery

import (
	"sync"
	"time"
)

// cbCooldown is how long an open circuit stays open; once it elapses the
// breaker closes again with its failure count reset. Scoped per
// destination origin (scheme+host of a
// destination inbox) rather than per individual job.
const cbCooldown = 5 * time.Minute

// originCircuit is a per-destination-origin circuit breaker: once a
// destination origin has failed threshold consecutive deliveries, further
// jobs for that origin are short-circuited (left pending, not retried)
// until the cooldown elapses.
type originCircuit struct {
	mu        sync.Mutex
	failCount int
	openedAt  time.Time
	open      bool
	threshold int
}

func newOriginCircuit(threshold int) *originCircuit {
	return &originCircuit{threshold: threshold}
}

func (cb *originCircuit) isOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !cb.open {
		return false
	}
	if time.Since(cb.openedAt) >= cbCooldown {
		cb.open = false
		cb.failCount = 0
		return false
	}
	return true
}

func (cb *originCircuit) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failCount++
	if !cb.open && cb.failCount >= cb.threshold {
		cb.open = true
		cb.openedAt = time.Now()
	}
}

func (cb *originCircuit) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.open = false
	cb.failCount = 0
}

// circuitRegistry hands out one originCircuit per destination origin.
type circuitRegistry struct {
	mu        sync.Mutex
	breakers  map[string]*originCircuit
	threshold int
}

func newCircuitRegistry(threshold int) *circuitRegistry {
	return &circuitRegistry{breakers: map[string]*originCircuit{}, threshold: threshold}
}

func (r *circuitRegistry) get(origin string) *originCircuit {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[origin]
	if !ok {
		cb = newOriginCircuit(r.threshold)
		r.breakers[origin] = cb
	}
	return cb
}
