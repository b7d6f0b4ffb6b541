package store

import "fmt"

// AuditEntry is one record in the append-only audit log: a timestamp, an
// action name, and free-form detail. Neither the side-effect engine nor the
// delivery worker calls WriteAudit, so dispatches and delivery attempts are
// not recorded.
type AuditEntry struct {
	Timestamp string `json:"ts"`
	Action    string `json:"action"`
	Detail    string `json:"detail"`
}

// WriteAudit appends a new entry. Best-effort: callers should log but not
// fail the request on error.
func (s *Store) WriteAudit(action, detail string) error {
	q := fmt.Sprintf(`INSERT INTO audit_log (ts, action, detail) VALUES (%s, %s, %s)`, s.ph(1), s.ph(2), s.ph(3))
	_, err := s.db.Exec(q, now(), action, detail)
	return err
}

// RecentAudit returns up to limit entries, newest first.
func (s *Store) RecentAudit(limit int) ([]AuditEntry, error) {
	q := fmt.Sprintf(`SELECT ts, action, detail FROM audit_log ORDER BY ts DESC LIMIT %s`, s.ph(1))
	rows, err := s.db.Query(q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.Timestamp, &e.Action, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetKV upserts a key-value pair used for miscellaneous persisted state.
func (s *Store) SetKV(key, value string) error {
	var q string
	if s.driver == "sqlite" {
		q = `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`
	} else {
		q = `INSERT INTO kv (key, value) VALUES ($1, $2) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value`
	}
	_, err := s.db.Exec(q, key, value)
	return err
}

// GetKV retrieves a value by key.
func (s *Store) GetKV(key string) (string, bool) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = `+s.ph(1), key).Scan(&v)
	if err != nil {
		return "", false
	}
	return v, true
}

// Stats holds aggregate counts for the /ops/status endpoint.
type Stats struct {
	TotalObjects int
	TotalActors  int
	QueueDepth   int
	DeadLetters  int
}

// Stats returns aggregate counts across the whole instance.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM objects`).Scan(&st.TotalObjects); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&st.TotalActors); err != nil {
		return st, err
	}
	qd, err := s.QueueDepth()
	if err != nil {
		return st, err
	}
	st.QueueDepth = qd
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM delivery_jobs WHERE status = 'dead'`).Scan(&st.DeadLetters); err != nil {
		return st, err
	}
	return st, nil
}
