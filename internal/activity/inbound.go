package activity

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/klppl/onepagepub/internal/apierr"
	"github.com/klppl/onepagepub/internal/authz"
	"github.com/klppl/onepagepub/internal/store"
	"github.com/klppl/onepagepub/internal/vocab"
)

// Receive implements S2S inbox delivery into owner's inbox: origin
// validation, deduplication, the Follow auto-accept, and the
// Like/Announce delivery-time side effects (object.likes/object.shares),
// then appends the activity to owner's inbox.
//
// sender is the verified signing actor (empty only for local fanout,
// which bypasses origin validation since it never crosses a wire).
func (e *Engine) Receive(owner string, act vocab.Doc, sender string, filter *authz.Filter) error {
	if sender != "" {
		if err := validateOrigin(act, sender); err != nil {
			return apierr.Wrap(apierr.BadRequest, "activity origin validation failed", err)
		}
		ok, err := filter.CanDeliverToInbox(owner, sender)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.New(apierr.Forbidden, "sender is blocked by "+owner)
		}
	}

	exists, err := e.store.ObjectExists(act.ID())
	if !exists || err != nil {
		if err := e.store.Put(act); err != nil {
			// Conflict here means a racing delivery already stored it —
			// treat as the dedup case below instead of failing.
			if k, ok := apierr.As(err); !ok || k != apierr.Conflict {
				return err
			}
		}
	}
	// else: already known — at-most-once delivery, per §4.7's dedup rule;
	// still fall through so retried Follow/Like/Announce side effects are
	// themselves idempotent (Append/Contains are id-keyed).

	if err := e.deliveryTimeEffects(owner, act); err != nil {
		return err
	}

	inbox, err := e.store.FieldIRI(owner, "inbox")
	if err != nil {
		return err
	}
	return e.store.Append(inbox, act.ID())
}

// deliveryTimeEffects applies the side effects §4.6 specifies as happening
// "upon inbox acceptance" rather than at outbox-submission time: the Follow
// auto-accept edge plus reciprocal Accept emission, and the Like/Announce
// target-collection appends.
func (e *Engine) deliveryTimeEffects(owner string, act vocab.Doc) error {
	switch act.Type() {
	case vocab.TypeFollow:
		return e.acceptFollow(owner, act)
	case vocab.TypeLike:
		objIRI := act.ObjectIRI()
		if objIRI == "" {
			return nil
		}
		if likes, err := e.store.FieldIRI(objIRI, "likes"); err == nil {
			return e.store.Append(likes, act.ID())
		}
	case vocab.TypeAnnounce:
		objIRI := act.ObjectIRI()
		if objIRI == "" {
			return nil
		}
		if shares, err := e.store.FieldIRI(objIRI, "shares"); err == nil {
			return e.store.Append(shares, act.ID())
		}
	}
	return nil
}

// acceptFollow implements the resolved open question: the followee
// (owner, who just received the Follow into their inbox) auto-accepts.
// Both edges are added and an Accept is additively emitted back to the
// follower.
func (e *Engine) acceptFollow(owner string, act vocab.Doc) error {
	follower := act.Actor()
	if follower == "" || follower == owner {
		return apierr.New(apierr.BadRequest, "Follow requires a distinct actor")
	}
	followers, err := e.store.FieldIRI(owner, "followers")
	if err != nil {
		return err
	}
	if err := e.store.Append(followers, follower); err != nil {
		return err
	}
	// Mirror the edge into the follower's own following collection when
	// they're also local; a remote follower's following collection isn't
	// ours to write.
	if followerFollowing, err := e.store.FieldIRI(follower, "following"); err == nil {
		if err := e.store.Append(followerFollowing, owner); err != nil {
			return err
		}
	}

	accept := vocab.Doc{
		"id":        e.cfg.MintID(vocab.TypeAccept, store.RandomToken()),
		"type":      vocab.TypeAccept,
		"actor":     owner,
		"object":    act.ID(),
		"to":        []interface{}{follower},
		"published": now(),
		"updated":   now(),
	}
	stored := accept.Clone()
	if err := e.store.Put(stored); err != nil {
		return err
	}
	outbox, err := e.store.FieldIRI(owner, "outbox")
	if err != nil {
		return err
	}
	if err := e.store.Append(outbox, accept.ID()); err != nil {
		return err
	}
	if local, followerInbox := e.localInbox(follower); local {
		return e.store.Append(followerInbox, accept.ID())
	}
	payload, err := accept.Bytes()
	if err != nil {
		return err
	}
	return e.enqueueRemote(follower, accept.ID(), string(payload))
}

// validateOrigin enforces that an inbound activity's id and actor both
// belong to the verified signer's origin — a spoofed remote cannot submit
// an activity claiming to be authored by some third host. Grounded on the
// same invariant other federated inbox listeners enforce before ever
// looking at activity.Type.
func validateOrigin(act vocab.Doc, sender string) error {
	if act.ID() == "" {
		return fmt.Errorf("activity has no id")
	}
	if act.Actor() == "" {
		return fmt.Errorf("activity has no actor")
	}
	if act.Actor() != sender {
		return fmt.Errorf("actor %s does not match verified signer %s", act.Actor(), sender)
	}
	idOrigin, err := origin(act.ID())
	if err != nil {
		return err
	}
	senderOrigin, err := origin(sender)
	if err != nil {
		return err
	}
	if idOrigin != senderOrigin {
		return fmt.Errorf("activity id host %s does not match signer host %s", idOrigin, senderOrigin)
	}
	if act.Type() == vocab.TypeDelete {
		// A Delete may only target an object belonging to the same origin.
		if target := act.ObjectIRI(); target != "" {
			targetOrigin, err := origin(target)
			if err == nil && targetOrigin != senderOrigin {
				return fmt.Errorf("Delete target host %s does not match signer host %s", targetOrigin, senderOrigin)
			}
		}
	}
	return nil
}

func origin(iri string) (string, error) {
	u, err := url.Parse(iri)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("not an absolute IRI: %s", iri)
	}
	return strings.ToLower(u.Host), nil
}
