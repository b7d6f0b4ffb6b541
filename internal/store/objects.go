package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/klppl/onepagepub/internal/apierr"
	"github.com/klppl/onepagepub/internal/vocab"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// Put inserts a new object keyed by its `id`. Fails with a Conflict error
// if the id already exists.
func (s *Store) Put(d vocab.Doc) error {
	id := d.ID()
	if id == "" {
		return apierr.New(apierr.BadRequest, "object has no id")
	}
	b, err := d.Bytes()
	if err != nil {
		return apierr.Wrap(apierr.BadRequest, "encode object", err)
	}
	ts := now()
	q := fmt.Sprintf(`INSERT INTO objects (id, doc, type, attributed_to, created_at, updated_at)
		VALUES (%s, %s, %s, %s, %s, %s)`, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6))
	_, err = s.db.Exec(q, id, string(b), d.Type(), d.AttributedTo(), ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return apierr.New(apierr.Conflict, "object id already exists: "+id)
		}
		return fmt.Errorf("put object: %w", err)
	}
	s.objectCache.Store(id, b)
	return nil
}

// Get returns the full object for id, or NotFound. Tombstones are returned
// as-is (type=Tombstone); callers layer the HTTP 410.
func (s *Store) Get(id string) (vocab.Doc, error) {
	if b, ok := s.objectCache.Load(id); ok {
		return vocab.Parse(b)
	}
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM objects WHERE id = `+s.ph(1), id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.NotFound, "object not found: "+id)
	}
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	s.objectCache.Store(id, []byte(doc))
	return vocab.Parse([]byte(doc))
}

// IsTombstone reports whether id resolves to a Tombstone, without the
// caller needing to fully parse the document first.
func (s *Store) IsTombstone(id string) (bool, error) {
	d, err := s.Get(id)
	if err != nil {
		return false, err
	}
	return d.HasType(vocab.TypeTombstone), nil
}

// Patch shallow-merges fields into the stored object: a field set to JSON
// null removes that property; any other value replaces it. Uses
// gjson/sjson directly against the stored JSON text rather than decoding
// into a Go map, since patches are applied to an already-opaque bag.
func (s *Store) Patch(id string, fields map[string]interface{}) error {
	raw, err := s.rawDoc(id)
	if err != nil {
		return err
	}
	if gjson.GetBytes(raw, "type").String() == vocab.TypeTombstone {
		return apierr.New(apierr.Gone, "object is a tombstone: "+id)
	}

	doc := raw
	for k, v := range fields {
		if v == nil {
			doc, err = sjson.DeleteBytes(doc, k)
		} else {
			doc, err = sjson.SetBytes(doc, k, v)
		}
		if err != nil {
			return apierr.Wrap(apierr.BadRequest, "apply patch field "+k, err)
		}
	}
	ts := now()
	doc, err = sjson.SetBytes(doc, "updated", ts)
	if err != nil {
		return err
	}

	q := fmt.Sprintf(`UPDATE objects SET doc = %s, updated_at = %s WHERE id = %s`, s.ph(1), s.ph(2), s.ph(3))
	if _, err := s.db.Exec(q, string(doc), ts, id); err != nil {
		return fmt.Errorf("patch object: %w", err)
	}
	s.objectCache.Store(id, doc)
	return nil
}

// Tombstone transitions an object to a Tombstone per §4.1: formerType
// records the original type, type becomes "Tombstone", deleted/updated are
// stamped, summaryMap.en is set, and everything else is cleared except id,
// published, formerType, deleted, updated, summaryMap.
func (s *Store) Tombstone(id string) error {
	d, err := s.Get(id)
	if err != nil {
		return err
	}
	if d.HasType(vocab.TypeTombstone) {
		return apierr.New(apierr.Gone, "already a tombstone: "+id)
	}
	ts := now()
	tomb := vocab.Doc{
		"id":         id,
		"type":       vocab.TypeTombstone,
		"formerType": d.Type(),
		"published":  d["published"],
		"deleted":    ts,
		"updated":    ts,
		"summaryMap": map[string]interface{}{"en": vocab.TombstoneSummary},
	}
	b, err := tomb.Bytes()
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`UPDATE objects SET doc = %s, type = %s, updated_at = %s WHERE id = %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4))
	if _, err := s.db.Exec(q, string(b), vocab.TypeTombstone, ts, id); err != nil {
		return fmt.Errorf("tombstone object: %w", err)
	}
	s.objectCache.Store(id, b)
	return nil
}

func (s *Store) rawDoc(id string) ([]byte, error) {
	if b, ok := s.objectCache.Load(id); ok {
		return b, nil
	}
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM objects WHERE id = `+s.ph(1), id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.NotFound, "object not found: "+id)
	}
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return []byte(doc), nil
}

// FieldIRI returns a string-valued property of the object at docID — used
// to resolve an actor's stable collection IRIs (inbox/outbox/followers/
// following/liked/blocked) or an object's back-reference collections
// (replies/likes/shares) without callers needing to know or reconstruct
// the IRI scheme.
func (s *Store) FieldIRI(docID, field string) (string, error) {
	d, err := s.Get(docID)
	if err != nil {
		return "", err
	}
	iri, _ := d[field].(string)
	if iri == "" {
		return "", apierr.New(apierr.NotFound, docID+" has no "+field)
	}
	return iri, nil
}

// ObjectExists reports whether id is present in the store.
func (s *Store) ObjectExists(id string) (bool, error) {
	if _, ok := s.objectCache.Load(id); ok {
		return true, nil
	}
	var x int
	err := s.db.QueryRow(`SELECT 1 FROM objects WHERE id = `+s.ph(1), id).Scan(&x)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
