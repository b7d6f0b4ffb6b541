package store

import (
	"database/sql"
	"fmt"

	"github.com/klppl/onepagepub/internal/apierr"
)

// Account is the local-only sidecar to an Actor: credentials and the
// private key, never serialized onto the wire.
type Account struct {
	Username      string
	ActorID       string
	KeyID         string // IRI of this actor's Key resource, used as the httpsig keyId
	PasswordHash  string
	Token         string
	PrivateKeyPEM string
}

// CreateAccount persists a new Account. Fails with Conflict if the
// username is already taken.
func (s *Store) CreateAccount(a Account) error {
	q := fmt.Sprintf(`INSERT INTO accounts (username, actor_id, key_id, password_hash, token, private_key_pem, created_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s)`, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7))
	_, err := s.db.Exec(q, a.Username, a.ActorID, a.KeyID, a.PasswordHash, a.Token, a.PrivateKeyPEM, now())
	if err != nil {
		if isUniqueViolation(err) {
			return apierr.New(apierr.Conflict, "username already taken: "+a.Username)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// AccountByUsername looks up an account by username.
func (s *Store) AccountByUsername(username string) (*Account, error) {
	var a Account
	err := s.db.QueryRow(
		`SELECT username, actor_id, key_id, password_hash, token, private_key_pem FROM accounts WHERE username = `+s.ph(1),
		username,
	).Scan(&a.Username, &a.ActorID, &a.KeyID, &a.PasswordHash, &a.Token, &a.PrivateKeyPEM)
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.NotFound, "no such account: "+username)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountByToken looks up an account by bearer token.
func (s *Store) AccountByToken(token string) (*Account, error) {
	var a Account
	err := s.db.QueryRow(
		`SELECT username, actor_id, key_id, password_hash, token, private_key_pem FROM accounts WHERE token = `+s.ph(1),
		token,
	).Scan(&a.Username, &a.ActorID, &a.KeyID, &a.PasswordHash, &a.Token, &a.PrivateKeyPEM)
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.Unauthorized, "invalid token")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountByActorID looks up an account by its actor IRI, used when signing
// outbound deliveries on an actor's behalf.
func (s *Store) AccountByActorID(actorID string) (*Account, error) {
	var a Account
	err := s.db.QueryRow(
		`SELECT username, actor_id, key_id, password_hash, token, private_key_pem FROM accounts WHERE actor_id = `+s.ph(1),
		actorID,
	).Scan(&a.Username, &a.ActorID, &a.KeyID, &a.PasswordHash, &a.Token, &a.PrivateKeyPEM)
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.NotFound, "no account for actor: "+actorID)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UsernameTaken reports whether a username is already registered.
func (s *Store) UsernameTaken(username string) (bool, error) {
	var x int
	err := s.db.QueryRow(`SELECT 1 FROM accounts WHERE username = `+s.ph(1), username).Scan(&x)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
