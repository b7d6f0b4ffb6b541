package store

import (
	"database/sql"
	"fmt"
)

// DeliveryJob is one durable row in the federated delivery queue (C7).
type DeliveryJob struct {
	ID            string
	ActivityID    string
	TargetInbox   string
	Payload       string
	Attempts      int
	NextAttemptAt string
	Status        string // pending | leased | done | dead
	LastError     string
}

// EnqueueDelivery persists a new delivery job, ready immediately.
func (s *Store) EnqueueDelivery(activityID, targetInbox, payload string) (string, error) {
	id := JobID()
	q := fmt.Sprintf(`INSERT INTO delivery_jobs (id, activity_id, target_inbox, payload, attempts, next_attempt_at, status, created_at)
		VALUES (%s, %s, %s, %s, 0, %s, 'pending', %s)`, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6))
	ts := now()
	_, err := s.db.Exec(q, id, activityID, targetInbox, payload, ts, ts)
	if err != nil {
		return "", fmt.Errorf("enqueue delivery: %w", err)
	}
	return id, nil
}

// LeaseReady atomically claims up to n jobs whose next_attempt_at has
// passed, marking them "leased" so concurrent workers don't double-pop.
// PostgreSQL uses SKIP LOCKED for true concurrent leasing; SQLite's
// single-writer model makes the same query safe without it.
func (s *Store) LeaseReady(n int) ([]DeliveryJob, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var q string
	if s.driver == "postgres" {
		q = fmt.Sprintf(`SELECT id, activity_id, target_inbox, payload, attempts, next_attempt_at, last_error
			FROM delivery_jobs WHERE status = 'pending' AND next_attempt_at <= %s
			ORDER BY next_attempt_at LIMIT %s FOR UPDATE SKIP LOCKED`, s.ph(1), s.ph(2))
	} else {
		q = `SELECT id, activity_id, target_inbox, payload, attempts, next_attempt_at, last_error
			FROM delivery_jobs WHERE status = 'pending' AND next_attempt_at <= ?
			ORDER BY next_attempt_at LIMIT ?`
	}
	rows, err := tx.Query(q, now(), n)
	if err != nil {
		return nil, fmt.Errorf("lease ready jobs: %w", err)
	}
	var jobs []DeliveryJob
	for rows.Next() {
		var j DeliveryJob
		if err := rows.Scan(&j.ID, &j.ActivityID, &j.TargetInbox, &j.Payload, &j.Attempts, &j.NextAttemptAt, &j.LastError); err != nil {
			rows.Close()
			return nil, err
		}
		j.Status = "leased"
		jobs = append(jobs, j)
	}
	rows.Close()

	for _, j := range jobs {
		if _, err := tx.Exec(fmt.Sprintf(`UPDATE delivery_jobs SET status = 'leased' WHERE id = %s`, s.ph(1)), j.ID); err != nil {
			return nil, err
		}
	}
	return jobs, tx.Commit()
}

// MarkDone marks a job permanently complete (2xx delivery, or permanent
// 4xx failure that should not retry).
func (s *Store) MarkDone(id string) error {
	_, err := s.db.Exec(fmt.Sprintf(`UPDATE delivery_jobs SET status = 'done' WHERE id = %s`, s.ph(1)), id)
	return err
}

// MarkRetry returns a job to "pending" with the attempt count and
// next_attempt_at the caller supplies: after a failed attempt, the
// incremented count and C7's exponential-backoff time.
func (s *Store) MarkRetry(id string, attempts int, nextAttemptAt string, lastErr string) error {
	q := fmt.Sprintf(`UPDATE delivery_jobs SET status = 'pending', attempts = %s, next_attempt_at = %s, last_error = %s WHERE id = %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4))
	_, err := s.db.Exec(q, attempts, nextAttemptAt, lastErr, id)
	return err
}

// MarkDead retires a job that exhausted its retry ceiling.
func (s *Store) MarkDead(id string, lastErr string) error {
	q := fmt.Sprintf(`UPDATE delivery_jobs SET status = 'dead', last_error = %s WHERE id = %s`, s.ph(1), s.ph(2))
	_, err := s.db.Exec(q, lastErr, id)
	return err
}

// Requeue resets a job (pending or dead) to immediately ready, used by the
// ops requeue-trigger endpoint.
func (s *Store) Requeue(id string) error {
	q := fmt.Sprintf(`UPDATE delivery_jobs SET status = 'pending', next_attempt_at = %s WHERE id = %s`, s.ph(1), s.ph(2))
	res, err := s.db.Exec(q, now(), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RecentDeliveries returns the most recent limit jobs regardless of status,
// for the ops dashboard.
func (s *Store) RecentDeliveries(limit int) ([]DeliveryJob, error) {
	q := fmt.Sprintf(`SELECT id, activity_id, target_inbox, payload, attempts, next_attempt_at, status, last_error
		FROM delivery_jobs ORDER BY created_at DESC LIMIT %s`, s.ph(1))
	rows, err := s.db.Query(q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DeliveryJob
	for rows.Next() {
		var j DeliveryJob
		if err := rows.Scan(&j.ID, &j.ActivityID, &j.TargetInbox, &j.Payload, &j.Attempts, &j.NextAttemptAt, &j.Status, &j.LastError); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// QueueDepth returns the count of jobs still pending delivery.
func (s *Store) QueueDepth() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM delivery_jobs WHERE status IN ('pending','leased')`).Scan(&n)
	return n, err
}
