package activity

import (
	"github.com/klppl/onepagepub/internal/apierr"
	"github.com/klppl/onepagepub/internal/authz"
	"github.com/klppl/onepagepub/internal/vocab"
)

// dispatch applies the per-type side effects of §4.6's table to act, acted
// by actorIRI. Each branch either mutates the store directly or leaves a
// marker on act for fanout to honor; any returned error aborts Submit
// before the activity is persisted, and store writes made before the error
// are kept.
func (e *Engine) dispatch(act vocab.Doc, actorIRI string) error {
	if vocab.IsIntransitive(act.Type()) {
		return nil // no nested object; addressing-only
	}

	switch act.Type() {
	case vocab.TypeCreate:
		return e.dispatchCreate(act, actorIRI)
	case vocab.TypeUpdate:
		return e.dispatchUpdate(act, actorIRI)
	case vocab.TypeDelete:
		return e.dispatchDelete(act, actorIRI)
	case vocab.TypeFollow:
		return nil // effect happens on inbox acceptance by the followee, see Receive
	case vocab.TypeAdd:
		return e.dispatchAdd(act, actorIRI)
	case vocab.TypeRemove:
		return e.dispatchRemove(act, actorIRI)
	case vocab.TypeLike:
		return e.dispatchLike(act, actorIRI)
	case vocab.TypeAnnounce:
		return nil // shares collection is appended on delivery to the author's inbox
	case vocab.TypeBlock:
		return e.dispatchBlock(act, actorIRI)
	case vocab.TypeUndo:
		return e.dispatchUndo(act, actorIRI)
	default:
		return nil // Accept/Reject and other non-dispatched activities: addressing-only
	}
}

func (e *Engine) dispatchCreate(act vocab.Doc, actorIRI string) error {
	obj, ok := act.EmbeddedObject()
	if !ok {
		return nil
	}
	inReplyTo := obj.InReplyTo()
	if inReplyTo == "" {
		return nil
	}
	exists, err := e.store.ObjectExists(inReplyTo)
	if err != nil || !exists {
		return nil // remote or unknown parent: nothing local to update
	}
	replies, err := e.store.FieldIRI(inReplyTo, "replies")
	if err != nil {
		return nil // parent predates the replies collection or isn't a Note
	}
	return e.store.Append(replies, obj.ID())
}

func (e *Engine) dispatchUpdate(act vocab.Doc, actorIRI string) error {
	obj, ok := act.EmbeddedObject()
	if !ok || obj.ID() == "" {
		return apierr.New(apierr.BadRequest, "Update requires object.id")
	}
	existing, err := e.store.Get(obj.ID())
	if err != nil {
		return err
	}
	if err := authz.RequireLocalAuthor(existing, actorIRI); err != nil {
		return err
	}
	fields := map[string]interface{}(obj.Clone())
	delete(fields, "id")
	return e.store.Patch(obj.ID(), fields)
}

func (e *Engine) dispatchDelete(act vocab.Doc, actorIRI string) error {
	targetID := act.ObjectIRI()
	if targetID == "" {
		return apierr.New(apierr.BadRequest, "Delete requires an object IRI")
	}
	existing, err := e.store.Get(targetID)
	if err != nil {
		return err
	}
	if err := authz.RequireLocalAuthor(existing, actorIRI); err != nil {
		return err
	}
	return e.store.Tombstone(targetID)
}

func (e *Engine) dispatchAdd(act vocab.Doc, actorIRI string) error {
	target := act.Target()
	objIRI := act.ObjectIRI()
	if target == "" || objIRI == "" {
		return apierr.New(apierr.BadRequest, "Add requires target and object")
	}
	coll, err := e.store.GetCollection(target)
	if err != nil {
		return err
	}
	if coll.Owner != actorIRI {
		return apierr.New(apierr.Forbidden, "not the owner of target collection")
	}
	return e.store.Append(target, objIRI)
}

func (e *Engine) dispatchRemove(act vocab.Doc, actorIRI string) error {
	target := act.Target()
	objIRI := act.ObjectIRI()
	if target == "" || objIRI == "" {
		return apierr.New(apierr.BadRequest, "Remove requires target and object")
	}
	coll, err := e.store.GetCollection(target)
	if err != nil {
		return err
	}
	if coll.Owner != actorIRI {
		return apierr.New(apierr.Forbidden, "not the owner of target collection")
	}
	return e.store.Remove(target, objIRI)
}

func (e *Engine) dispatchLike(act vocab.Doc, actorIRI string) error {
	objIRI := act.ObjectIRI()
	if objIRI == "" {
		return apierr.New(apierr.BadRequest, "Like requires an object")
	}
	obj, err := e.store.Get(objIRI)
	if err == nil && obj.AttributedTo() != "" {
		if blockedColl, berr := e.store.FieldIRI(obj.AttributedTo(), "blocked"); berr == nil {
			if blocked, cerr := e.store.Contains(blockedColl, actorIRI); cerr == nil && blocked {
				return apierr.New(apierr.BadRequest, "blocked by the object's author")
			}
		}
	}
	liked, err := e.store.FieldIRI(actorIRI, "liked")
	if err != nil {
		return err
	}
	return e.store.Append(liked, objIRI)
}

func (e *Engine) dispatchBlock(act vocab.Doc, actorIRI string) error {
	target := act.ObjectIRI()
	if target == "" {
		return apierr.New(apierr.BadRequest, "Block requires an object actor IRI")
	}
	blocked, err := e.store.FieldIRI(actorIRI, "blocked")
	if err != nil {
		return err
	}
	if err := e.store.Append(blocked, target); err != nil {
		return err
	}
	if followers, err := e.store.FieldIRI(actorIRI, "followers"); err == nil {
		if err := e.store.Remove(followers, target); err != nil {
			return err
		}
	}
	if targetFollowing, err := e.store.FieldIRI(target, "following"); err == nil {
		if err := e.store.Remove(targetFollowing, actorIRI); err != nil {
			return err
		}
	}
	// The Block itself is addressed only internally; fanout skips the
	// blocked party by never resolving them as a delivery recipient here.
	delete(act, "to")
	delete(act, "cc")
	return nil
}

func (e *Engine) dispatchUndo(act vocab.Doc, actorIRI string) error {
	obj, ok := act.EmbeddedObject()
	if !ok {
		return apierr.New(apierr.BadRequest, "Undo requires an embedded object")
	}
	if obj.Actor() != actorIRI {
		return apierr.New(apierr.Forbidden, "can only undo your own activities")
	}
	switch obj.Type() {
	case vocab.TypeLike:
		target := obj.ObjectIRI()
		liked, err := e.store.FieldIRI(actorIRI, "liked")
		if err != nil {
			return err
		}
		if err := e.store.Remove(liked, target); err != nil {
			return err
		}
		if likes, err := e.store.FieldIRI(target, "likes"); err == nil {
			return e.store.Remove(likes, obj.ID())
		}
		return nil
	case vocab.TypeFollow:
		followee := obj.ObjectIRI()
		following, err := e.store.FieldIRI(actorIRI, "following")
		if err != nil {
			return err
		}
		if err := e.store.Remove(following, followee); err != nil {
			return err
		}
		if followers, err := e.store.FieldIRI(followee, "followers"); err == nil {
			return e.store.Remove(followers, actorIRI)
		}
		return nil
	case vocab.TypeBlock:
		target := obj.ObjectIRI()
		blocked, err := e.store.FieldIRI(actorIRI, "blocked")
		if err != nil {
			return err
		}
		return e.store.Remove(blocked, target)
	default:
		return apierr.New(apierr.BadRequest, "cannot undo activity of type "+obj.Type())
	}
}
