package store

import (
	"fmt"
	"sync"

	"github.com/klppl/onepagepub/internal/apierr"
)

// collWriteLocks serializes append/remove per collection id, per §5's
// ordering guarantee ("Collection append is serialized per collection — a
// per-collection mutex or single-writer queue"). A process-wide map of
// mutexes is adequate at the scale this server targets; a single shared
// mutex would needlessly serialize unrelated collections.
var (
	collWriteLocksMu sync.Mutex
	collWriteLocks   = map[string]*sync.Mutex{}
)

func lockFor(id string) *sync.Mutex {
	collWriteLocksMu.Lock()
	defer collWriteLocksMu.Unlock()
	l, ok := collWriteLocks[id]
	if !ok {
		l = &sync.Mutex{}
		collWriteLocks[id] = l
	}
	return l
}

// Collection mirrors an OrderedCollection row.
type Collection struct {
	ID         string
	Owner      string
	Private    bool
	TotalItems int
	Name       string
}

// CreateCollection persists a new (empty) OrderedCollection at the given,
// already-minted IRI.
func (s *Store) CreateCollection(id, owner, name string, private bool) error {
	q := fmt.Sprintf(`INSERT INTO collections (id, owner, private, total_items, name, created_at)
		VALUES (%s, %s, %s, 0, %s, %s)`, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))
	p := 0
	if private {
		p = 1
	}
	_, err := s.db.Exec(q, id, owner, p, name, now())
	if err != nil {
		if isUniqueViolation(err) {
			return apierr.New(apierr.Conflict, "collection already exists: "+id)
		}
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// GetCollection returns collection metadata, or NotFound.
func (s *Store) GetCollection(id string) (*Collection, error) {
	var c Collection
	var priv int
	err := s.db.QueryRow(
		`SELECT id, owner, private, total_items, name FROM collections WHERE id = `+s.ph(1), id,
	).Scan(&c.ID, &c.Owner, &priv, &c.TotalItems, &c.Name)
	if err != nil {
		return nil, apierr.New(apierr.NotFound, "collection not found: "+id)
	}
	c.Private = priv != 0
	return &c, nil
}

// ord is a process-wide monotonic tiebreaker for items appended within the
// same RFC3339Nano timestamp tick, avoiding reliance on AUTOINCREMENT/SERIAL
// semantics that diverge between SQLite and PostgreSQL.
var (
	ordMu  sync.Mutex
	ordSeq int64
)

func nextOrd() int64 {
	ordMu.Lock()
	defer ordMu.Unlock()
	ordSeq++
	return ordSeq
}

// Append adds item to the collection, idempotent by item IRI, and bumps
// totalItems only when the item was not already present. New items are
// always the newest (LIFO order).
func (s *Store) Append(collID, item string) error {
	lockFor(collID).Lock()
	defer lockFor(collID).Unlock()

	var ins string
	if s.driver == "sqlite" {
		ins = `INSERT OR IGNORE INTO collection_items (collection_id, item_iri, added_at, ord) VALUES (?, ?, ?, ?)`
	} else {
		ins = `INSERT INTO collection_items (collection_id, item_iri, added_at, ord) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`
	}
	res, err := s.db.Exec(ins, collID, item, now(), nextOrd())
	if err != nil {
		return fmt.Errorf("append to collection: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil // already a member; idempotent no-op
	}
	_, err = s.db.Exec(
		fmt.Sprintf(`UPDATE collections SET total_items = total_items + 1 WHERE id = %s`, s.ph(1)), collID,
	)
	return err
}

// Remove removes item from the collection if present, decrementing
// totalItems.
func (s *Store) Remove(collID, item string) error {
	lockFor(collID).Lock()
	defer lockFor(collID).Unlock()

	q := fmt.Sprintf(`DELETE FROM collection_items WHERE collection_id = %s AND item_iri = %s`, s.ph(1), s.ph(2))
	res, err := s.db.Exec(q, collID, item)
	if err != nil {
		return fmt.Errorf("remove from collection: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil
	}
	_, err = s.db.Exec(
		fmt.Sprintf(`UPDATE collections SET total_items = total_items - 1 WHERE id = %s`, s.ph(1)), collID,
	)
	return err
}

// Contains reports whether item is a member of collID.
func (s *Store) Contains(collID, item string) (bool, error) {
	var x int
	q := fmt.Sprintf(`SELECT 1 FROM collection_items WHERE collection_id = %s AND item_iri = %s`, s.ph(1), s.ph(2))
	err := s.db.QueryRow(q, collID, item).Scan(&x)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// PageItems returns up to pageSize item IRIs starting at offset, newest
// first, plus whether a further (older) page exists.
func (s *Store) PageItems(collID string, offset, pageSize int) (items []string, hasMore bool, err error) {
	q := fmt.Sprintf(
		`SELECT item_iri FROM collection_items WHERE collection_id = %s
		 ORDER BY added_at DESC, ord DESC LIMIT %s OFFSET %s`,
		s.ph(1), s.ph(2), s.ph(3))
	rows, err := s.db.Query(q, collID, pageSize+1, offset)
	if err != nil {
		return nil, false, fmt.Errorf("page collection: %w", err)
	}
	all, err := scanStringRows(rows)
	if err != nil {
		return nil, false, err
	}
	if len(all) > pageSize {
		return all[:pageSize], true, nil
	}
	return all, false, nil
}
