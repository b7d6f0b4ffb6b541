// Package actor implements the Actor Registry (C3): account registration,
// actor-document construction, WebFinger resolution, and credential lookup.
package actor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/klppl/onepagepub/internal/apierr"
	"github.com/klppl/onepagepub/internal/config"
	"github.com/klppl/onepagepub/internal/store"
	"github.com/klppl/onepagepub/internal/vocab"
	"golang.org/x/crypto/bcrypt"
)

// usernamePattern matches §4.3's registration rule: 1-32 chars of letters,
// digits, underscore.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,32}$`)

// Registry wires actor registration and lookup to the store and config.
type Registry struct {
	store *store.Store
	cfg   *config.Config
}

func New(s *store.Store, cfg *config.Config) *Registry {
	return &Registry{store: s, cfg: cfg}
}

// ownedCollections is the fixed set of sub-collections every actor gets on
// registration, per §3's Data Model.
var ownedCollections = []string{"inbox", "outbox", "followers", "following", "liked", "blocked"}

// Registration is the outcome of a successful Register call: the minted
// actor IRI and bearer token, handed back to the caller for display.
type Registration struct {
	ActorID string
	Token   string
}

// Register creates a new local actor. confirmation must equal password
// (double-entry, per the registration form contract); username must be
// untaken and match usernamePattern.
func (r *Registry) Register(username, password, confirmation string) (*Registration, error) {
	if !usernamePattern.MatchString(username) {
		return nil, apierr.New(apierr.BadRequest, "username must be 1-32 characters of letters, digits, or underscore")
	}
	if password == "" {
		return nil, apierr.New(apierr.BadRequest, "password must not be empty")
	}
	if password != confirmation {
		return nil, apierr.New(apierr.BadRequest, "password confirmation does not match")
	}
	taken, err := r.store.UsernameTaken(username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apierr.New(apierr.Conflict, "username already taken: "+username)
	}

	keys, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	actorID := r.cfg.MintID(vocab.TypePerson, store.RandomToken())
	keyID := r.cfg.MintID(vocab.TypeKey, store.RandomToken())

	// The Key is both embedded in the Person document and independently
	// resolvable at its own IRI (GET /key/{id}), per §6's endpoint table.
	// It carries no attributedTo: §4.4 rule 7 makes ambient, author-less
	// objects world-readable, which is what lets any remote verifier fetch
	// it unauthenticated.
	keyDoc := vocab.Doc{
		"id":           keyID,
		"type":         vocab.TypeKey,
		"owner":        actorID,
		"publicKeyPem": keys.PublicPEM,
	}
	if err := r.store.Put(keyDoc); err != nil {
		return nil, err
	}

	colls := make(map[string]string, len(ownedCollections))
	for _, name := range ownedCollections {
		colls[name] = r.cfg.MintID(vocab.TypeOrderedCollection, store.RandomToken())
	}

	doc := vocab.Doc{
		"@context":          vocab.DefaultContext,
		"id":                actorID,
		"type":              vocab.TypePerson,
		"preferredUsername": username,
		"inbox":             colls["inbox"],
		"outbox":            colls["outbox"],
		"followers":         colls["followers"],
		"following":         colls["following"],
		"liked":             colls["liked"],
		"blocked":           colls["blocked"],
		"publicKey":         map[string]interface{}(keyDoc),
	}

	if err := r.store.Put(doc); err != nil {
		return nil, err
	}
	for name, id := range colls {
		private := name == "blocked"
		if err := r.store.CreateCollection(id, actorID, name, private); err != nil {
			return nil, err
		}
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	token := store.RandomToken()
	account := store.Account{
		Username:      username,
		ActorID:       actorID,
		KeyID:         keyID,
		PasswordHash:  string(passHash),
		Token:         token,
		PrivateKeyPEM: keys.PrivatePEM,
	}
	if err := r.store.CreateAccount(account); err != nil {
		return nil, err
	}

	return &Registration{ActorID: actorID, Token: token}, nil
}

// AuthByToken resolves a bearer token to the owning Account.
func (r *Registry) AuthByToken(token string) (*store.Account, error) {
	if token == "" {
		return nil, apierr.New(apierr.Unauthorized, "no token supplied")
	}
	return r.store.AccountByToken(token)
}

// AuthByPassword verifies a username/password pair against the stored
// bcrypt hash.
func (r *Registry) AuthByPassword(username, password string) (*store.Account, error) {
	a, err := r.store.AccountByUsername(username)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, apierr.New(apierr.Unauthorized, "wrong password")
	}
	return a, nil
}

// AccountForActor returns the local Account behind an actor IRI, used by
// the delivery worker (C7) to load the key it signs outbound deliveries
// with.
func (r *Registry) AccountForActor(actorID string) (*store.Account, error) {
	return r.store.AccountByActorID(actorID)
}

// IsLocal reports whether an actor IRI belongs to this instance.
func (r *Registry) IsLocal(actorID string) bool {
	return strings.HasPrefix(actorID, strings.TrimRight(r.cfg.Host, "/")+"/person/")
}
