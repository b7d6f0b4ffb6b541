// Package authz implements the Authorization Filter (C4): the visibility
// predicate governing reads, the outbox/inbox write rule, and inbox
// acceptance checks.
package authz

import (
	"github.com/klppl/onepagepub/internal/addressing"
	"github.com/klppl/onepagepub/internal/apierr"
	"github.com/klppl/onepagepub/internal/store"
	"github.com/klppl/onepagepub/internal/vocab"
)

// Filter evaluates visibility and write permission against the store and
// the addressing resolver.
type Filter struct {
	store *store.Store
	addr  *addressing.Resolver
}

func New(s *store.Store, addr *addressing.Resolver) *Filter {
	return &Filter{store: s, addr: addr}
}

// CanRead implements §4.4's read rule for object o as viewed by viewer
// (empty string for an anonymous/unauthenticated request). A viewer blocked
// by the author is denied with a Forbidden error rather than a bare false,
// so callers can return 403 instead of folding it into an ordinary
// not-addressed 404 (invariant 8).
func (f *Filter) CanRead(o vocab.Doc, viewer string) (bool, error) {
	attributedTo := o.AttributedTo()

	if attributedTo != "" && attributedTo == viewer {
		return true, nil
	}

	if attributedTo == "" {
		// Ambient top-level object (root Service, instance-owned collections).
		return true, nil
	}

	blocked, err := f.IsBlockedBy(attributedTo, viewer)
	if err != nil {
		return false, err
	}
	if blocked {
		return false, apierr.New(apierr.Forbidden, "blocked by "+attributedTo)
	}

	expanded, err := f.addr.Expand(o.Audience())
	if err != nil {
		return false, err
	}
	if expanded.Public {
		return true, nil
	}
	if viewer != "" && expanded.Contains(viewer) {
		return true, nil
	}

	return false, nil
}

// IsBlockedBy reports whether viewer appears in owner's blocked collection.
// An anonymous viewer is never "blocked" in this sense (§4.4 rule 2 already
// denies anonymous reads of blocked itself with 401, handled separately).
func (f *Filter) IsBlockedBy(owner, viewer string) (bool, error) {
	if viewer == "" {
		return false, nil
	}
	blockedColl, err := f.store.FieldIRI(owner, "blocked")
	if err != nil {
		return false, nil // owner has no blocked collection (shouldn't happen for a local actor)
	}
	return f.store.Contains(blockedColl, viewer)
}

// CanReadBlockedCollection implements §4.4 rule 2: an actor's `blocked`
// collection is visible only to that actor.
func (f *Filter) CanReadBlockedCollection(owner, viewer string) bool {
	return viewer != "" && viewer == owner
}

// CanPostToOutbox implements the write rule: only the outbox owner (via
// bearer-token-authenticated viewer) may post to their own outbox.
func (f *Filter) CanPostToOutbox(owner, viewer string) bool {
	return viewer != "" && viewer == owner
}

// CanDeliverToInbox implements §4.4's inbox acceptance rule: a signed
// remote delivery from sender into owner's inbox is rejected if the sender
// is blocked by the owner. An empty sender (local fanout) is always accepted.
func (f *Filter) CanDeliverToInbox(owner, sender string) (bool, error) {
	if sender == "" {
		return true, nil // local fanout, not a signed remote delivery
	}
	blockedColl, err := f.store.FieldIRI(owner, "blocked")
	if err != nil {
		return true, nil // owner has no blocked collection (shouldn't happen for a local actor)
	}
	blocked, err := f.store.Contains(blockedColl, sender)
	if err != nil {
		return false, err
	}
	return !blocked, nil
}

// RequireLocalAuthor returns an error unless actorIRI authored obj, used by
// Update/Delete dispatch in C6.
func RequireLocalAuthor(obj vocab.Doc, actorIRI string) error {
	if obj.AttributedTo() != actorIRI {
		return apierr.New(apierr.Forbidden, "not the author of "+obj.ID())
	}
	return nil
}
