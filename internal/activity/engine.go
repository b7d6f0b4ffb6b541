// Package activity implements the Activity Side-Effect Engine (C6): the
// outbox-POST pipeline, per-type dispatch, inbox receipt and deduplication,
// and delivery fanout.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/klppl/onepagepub/internal/addressing"
	"github.com/klppl/onepagepub/internal/apierr"
	"github.com/klppl/onepagepub/internal/config"
	"github.com/klppl/onepagepub/internal/store"
	"github.com/klppl/onepagepub/internal/vocab"
)

// Engine wires the side-effect pipeline to its collaborators.
type Engine struct {
	store *store.Store
	addr  *addressing.Resolver
	cfg   *config.Config
}

func New(s *store.Store, addr *addressing.Resolver, cfg *config.Config) *Engine {
	return &Engine{store: s, addr: addr, cfg: cfg}
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// Submit runs §4.6's full outbox pipeline for a raw client payload POSTed
// to actorIRI's outbox. Returns the stored, stamped activity.
func (e *Engine) Submit(actorIRI string, raw vocab.Doc) (vocab.Doc, error) {
	act := raw.Clone()

	// Step 1: wrap bare objects in a Create, per standard C2S behavior.
	// Intransitive activities pass through unwrapped.
	if act.Type() == "" || (!vocab.IsActivityType(act.Type()) && !vocab.IsIntransitive(act.Type())) {
		act = vocab.Doc{
			"type":   vocab.TypeCreate,
			"object": map[string]interface{}(act),
		}
		if to, ok := raw["to"]; ok {
			act["to"] = to
		}
		if cc, ok := raw["cc"]; ok {
			act["cc"] = cc
		}
	}

	// Step 2: stamp actor/id/published/updated; reject client-supplied id
	// collisions.
	if clientID := act.ID(); clientID != "" {
		exists, err := e.store.ObjectExists(clientID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apierr.New(apierr.Conflict, "activity id already exists: "+clientID)
		}
	}
	ts := now()
	act["actor"] = actorIRI
	act["id"] = e.cfg.MintID(act.Type(), store.RandomToken())
	act["published"] = ts
	act["updated"] = ts

	// Step 3: materialize an embedded Create object.
	if act.Type() == vocab.TypeCreate {
		if err := e.materializeEmbeddedObject(act, actorIRI, ts); err != nil {
			return nil, err
		}
	}

	// Step 4: dispatch by type. Each handler applies the side effects named
	// in §4.6's table; all run against the same actorIRI/act pair. An error
	// aborts Submit before the activity itself is stored (step 5); the
	// embedded object stored in step 3 and any store writes the handler
	// already made are not rolled back.
	if err := e.dispatch(act, actorIRI); err != nil {
		return nil, err
	}

	// Step 5: persist the activity itself.
	act["attributedTo"] = actorIRI
	stored := act.Clone()
	stored.StripPrivateAddressing()
	if err := e.store.Put(stored); err != nil {
		return nil, err
	}

	// Step 6 & 7: fan out to outbox, local inbox recipients, remote delivery
	// queue, and always the actor's own inbox.
	if err := e.fanout(act, actorIRI); err != nil {
		return nil, err
	}

	return stored, nil
}

// materializeEmbeddedObject mints an id for a Create's embedded object,
// stamps attributedTo/published/updated, gives it empty replies/likes/shares
// collections, and persists it via C1.
func (e *Engine) materializeEmbeddedObject(act vocab.Doc, actorIRI, ts string) error {
	obj, ok := act.EmbeddedObject()
	if !ok {
		return apierr.New(apierr.BadRequest, "Create requires an embedded object")
	}
	obj = obj.Clone()
	objType := obj.Type()
	if objType == "" {
		objType = vocab.TypeObject
	}
	objID := e.cfg.MintID(objType, store.RandomToken())
	obj["id"] = objID
	obj["attributedTo"] = actorIRI
	obj["published"] = ts
	obj["updated"] = ts
	if content, ok := obj["content"].(string); ok {
		obj["content"] = sanitizeHTML(content)
	}

	for _, name := range []string{"replies", "likes", "shares"} {
		collID := e.cfg.MintID(vocab.TypeOrderedCollection, store.RandomToken())
		if err := e.store.CreateCollection(collID, actorIRI, name, false); err != nil {
			return err
		}
		obj[name] = collID
	}

	stored := obj.Clone()
	stored.StripPrivateAddressing()
	if err := e.store.Put(stored); err != nil {
		return fmt.Errorf("persist embedded object: %w", err)
	}
	act["object"] = map[string]interface{}(obj)
	return nil
}

// fanout implements steps 6-7: append to the actor's outbox, deliver to
// every expanded local recipient's inbox, enqueue remote recipients into
// C7, and always append to the actor's own inbox (the self-inbox behavior).
func (e *Engine) fanout(act vocab.Doc, actorIRI string) error {
	outbox, err := e.store.FieldIRI(actorIRI, "outbox")
	if err != nil {
		return err
	}
	if err := e.store.Append(outbox, act.ID()); err != nil {
		return fmt.Errorf("append outbox: %w", err)
	}

	payload, err := act.Bytes()
	if err != nil {
		return err
	}

	recipients, err := e.addr.DeliveryRecipients(act)
	if err != nil {
		return err
	}

	for _, recipient := range recipients.Actors() {
		if recipient == actorIRI {
			continue // self-inbox appended unconditionally below
		}
		if local, _ := e.localInbox(recipient); local {
			// Route through Receive so a local recipient gets the same
			// delivery-time side effects (Follow auto-accept, Like/Announce
			// collection appends) a remote one gets via the inbox POST
			// handler. sender="" skips origin validation and the blocked-
			// sender check, both meaningless for same-instance fanout, so
			// no authz.Filter is needed here.
			if err := e.Receive(recipient, act, "", nil); err != nil {
				return fmt.Errorf("local fanout to %s: %w", recipient, err)
			}
			continue
		}
		if err := e.enqueueRemote(recipient, act.ID(), string(payload)); err != nil {
			return err
		}
	}

	inbox, err := e.store.FieldIRI(actorIRI, "inbox")
	if err != nil {
		return err
	}
	if err := e.store.Append(inbox, act.ID()); err != nil {
		return fmt.Errorf("append self-inbox: %w", err)
	}
	return nil
}

// localInbox reports whether recipient is a local actor and, if so, its
// inbox collection IRI.
func (e *Engine) localInbox(recipient string) (bool, string) {
	doc, err := e.store.Get(recipient)
	if err != nil {
		return false, ""
	}
	if inbox, ok := doc["inbox"].(string); ok && inbox != "" {
		return true, inbox
	}
	return false, ""
}

// enqueueRemote dereferences the remote actor to find their inbox URL and
// enqueues a durable delivery job targeting it. A resolution failure here
// surfaces to the outbox POST as an upstream error rather than silently
// dropping the recipient.
func (e *Engine) enqueueRemote(actorIRI, activityID, payload string) error {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.FederationTimeout)
	defer cancel()
	doc, err := addressing.FetchRemoteDoc(ctx, actorIRI)
	if err != nil {
		return apierr.Wrap(apierr.Upstream, "resolve remote actor "+actorIRI, err)
	}
	inbox, _ := doc["inbox"].(string)
	if inbox == "" {
		return apierr.New(apierr.Upstream, "remote actor has no inbox: "+actorIRI)
	}
	if _, err := e.store.EnqueueDelivery(activityID, inbox, payload); err != nil {
		return fmt.Errorf("enqueue delivery: %w", err)
	}
	return nil
}
