// Package delivery implements the Federated Delivery Queue (C7): a
// bounded-concurrency worker pool consuming the durable job table in
// internal/store, signing and POSTing each job to its destination inbox,
// and retrying transient failures with exponential backoff.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/klppl/onepagepub/internal/actor"
	"github.com/klppl/onepagepub/internal/config"
	"github.com/klppl/onepagepub/internal/httpsig"
	"github.com/klppl/onepagepub/internal/store"
	"github.com/klppl/onepagepub/internal/vocab"
)

// Pool is a bounded pool of delivery workers draining the durable queue.
type Pool struct {
	store    *store.Store
	actors   *actor.Registry
	cfg      *config.Config
	client   *http.Client
	circuits *circuitRegistry
	limiters *limiterRegistry
}

func NewPool(s *store.Store, actors *actor.Registry, cfg *config.Config) *Pool {
	return &Pool{
		store:    s,
		actors:   actors,
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.FederationTimeout},
		circuits: newCircuitRegistry(cfg.DeliveryCBThreshold),
		limiters: newLimiterRegistry(),
	}
}

// Run starts cfg.DeliveryWorkers goroutines that poll for ready jobs until
// ctx is canceled. Each worker leases its own batch so workers never
// contend over the same rows (LeaseReady already claims atomically).
func (p *Pool) Run(ctx context.Context) {
	for i := 0; i < p.cfg.DeliveryWorkers; i++ {
		go p.workerLoop(ctx, i)
	}
}

func (p *Pool) workerLoop(ctx context.Context, id int) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drainOnce(ctx)
		}
	}
}

func (p *Pool) drainOnce(ctx context.Context) {
	jobs, err := p.store.LeaseReady(4)
	if err != nil {
		slog.Error("lease delivery jobs", "error", err)
		return
	}
	for _, job := range jobs {
		p.deliver(ctx, job)
	}
}

func (p *Pool) deliver(ctx context.Context, job store.DeliveryJob) {
	origin, err := destinationOrigin(job.TargetInbox)
	if err != nil {
		p.retireOrRetry(job, fmt.Errorf("invalid target inbox: %w", err))
		return
	}

	cb := p.circuits.get(origin)
	if cb.isOpen() {
		// Leave the job pending; it will be picked up again once the
		// circuit's cooldown elapses.
		if err := p.store.MarkRetry(job.ID, job.Attempts, time.Now().Add(cbCooldown).UTC().Format(time.RFC3339Nano), "circuit open for "+origin); err != nil {
			slog.Error("requeue behind open circuit", "error", err)
		}
		return
	}

	if err := p.limiters.get(origin).Wait(ctx); err != nil {
		// Context canceled: hand the job back to the queue unchanged.
		if err := p.store.MarkRetry(job.ID, job.Attempts, job.NextAttemptAt, job.LastError); err != nil {
			slog.Error("requeue canceled delivery", "error", err)
		}
		return
	}

	if err := p.attempt(ctx, job); err != nil {
		cb.recordFailure()
		p.retireOrRetry(job, err)
		return
	}
	cb.recordSuccess()
	if err := p.store.MarkDone(job.ID); err != nil {
		slog.Error("mark delivery done", "error", err)
	}
}

// attempt signs and POSTs the job payload, resolving the sending actor's
// private key from the activity's own `actor` field.
func (p *Pool) attempt(ctx context.Context, job store.DeliveryJob) error {
	doc, err := vocab.Parse([]byte(job.Payload))
	if err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}
	senderIRI := doc.Actor()
	if senderIRI == "" {
		return fmt.Errorf("payload has no actor")
	}
	account, err := p.actors.AccountForActor(senderIRI)
	if err != nil {
		return fmt.Errorf("resolve sending account: %w", err)
	}
	priv, err := actor.ParsePrivateKey(account.PrivateKeyPEM)
	if err != nil {
		return fmt.Errorf("parse sender private key: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.FederationTimeout)
	defer cancel()
	req, err := httpsig.NewSignedRequest(reqCtx, job.TargetInbox, []byte(job.Payload), account.KeyID, priv)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("transient status %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("transient status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return &permanentError{status: resp.StatusCode}
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

// permanentError marks a 4xx response (other than 408/429) as non-retryable,
// per §4.7 ("4xx other than 408/429 as permanent failure (drop)").
type permanentError struct{ status int }

func (e *permanentError) Error() string { return fmt.Sprintf("permanent status %d", e.status) }

func (p *Pool) retireOrRetry(job store.DeliveryJob, cause error) {
	if _, permanent := cause.(*permanentError); permanent {
		if err := p.store.MarkDone(job.ID); err != nil {
			slog.Error("mark permanently-failed delivery done", "error", err)
		}
		slog.Warn("delivery permanently failed", "job", job.ID, "target", job.TargetInbox, "error", cause)
		return
	}

	attempts := job.Attempts + 1
	if attempts >= p.cfg.DeliveryMaxAttempts {
		if err := p.store.MarkDead(job.ID, cause.Error()); err != nil {
			slog.Error("mark delivery dead", "error", err)
		}
		slog.Warn("delivery exhausted retries", "job", job.ID, "target", job.TargetInbox, "attempts", attempts)
		return
	}

	backoff := backoffWithJitter(attempts)
	next := time.Now().Add(backoff).UTC().Format(time.RFC3339Nano)
	if err := p.store.MarkRetry(job.ID, attempts, next, cause.Error()); err != nil {
		slog.Error("schedule delivery retry", "error", err)
	}
}

// backoffWithJitter implements §4.7's "exponential with jitter, cap at ~1
// day" schedule.
func backoffWithJitter(attempts int) time.Duration {
	const base = 30 * time.Second
	const ceiling = 24 * time.Hour
	d := time.Duration(math.Min(float64(ceiling), float64(base)*math.Pow(2, float64(attempts-1))))
	jitter := time.Duration(rand.Int63n(int64(d) / 4 + 1))
	return d + jitter
}

func destinationOrigin(inbox string) (string, error) {
	u, err := url.Parse(inbox)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %s", inbox)
	}
	return u.Scheme + "://" + u.Host, nil
}
