package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/klppl/onepagepub/internal/apierr"
	"github.com/klppl/onepagepub/internal/httpsig"
	"github.com/klppl/onepagepub/internal/store"
	"github.com/klppl/onepagepub/internal/vocab"
)

const maxInboundBody = 1 << 20 // 1 MiB, generous for a single activity

// handleCollectionGet serves the OrderedCollection summary: totalItems
// (pre-filter, per the resolved visibility-paging question) and a pointer
// at the first page.
func (s *Server) handleCollectionGet(w http.ResponseWriter, r *http.Request) {
	id := s.cfg.IRI("/orderedcollection/" + chi.URLParam(r, "id"))
	coll, err := s.store.GetCollection(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	viewer := s.authenticatedActor(r)
	if coll.Private {
		if !s.filter.CanReadBlockedCollection(coll.Owner, viewer) {
			kind := apierr.Forbidden
			if viewer == "" {
				kind = apierr.Unauthorized
			}
			writeErr(w, apierr.New(kind, "this collection is private"))
			return
		}
	} else if blocked, err := s.filter.IsBlockedBy(coll.Owner, viewer); err != nil {
		writeErr(w, err)
		return
	} else if blocked {
		writeErr(w, apierr.New(apierr.Forbidden, "blocked by "+coll.Owner))
		return
	}
	token := chi.URLParam(r, "id")
	activityJSON(w, map[string]interface{}{
		"@context":   vocab.DefaultContext,
		"id":         id,
		"type":       "OrderedCollection",
		"totalItems": coll.TotalItems,
		"first":      s.cfg.IRI("/orderedcollectionpage/" + token),
	})
}

// handlePageGet paginates a collection's items, applying per-item read
// visibility (§4.2): unauthorized items are dropped from orderedItems but
// totalItems on the parent collection still reflects the unfiltered count.
func (s *Server) handlePageGet(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "id")
	collID := s.cfg.IRI("/orderedcollection/" + token)
	pageID := s.cfg.IRI("/orderedcollectionpage/" + token)

	coll, err := s.store.GetCollection(collID)
	if err != nil {
		writeErr(w, err)
		return
	}
	viewer := s.authenticatedActor(r)
	if coll.Private {
		if !s.filter.CanReadBlockedCollection(coll.Owner, viewer) {
			kind := apierr.Forbidden
			if viewer == "" {
				kind = apierr.Unauthorized
			}
			writeErr(w, apierr.New(kind, "this collection is private"))
			return
		}
	} else if blocked, err := s.filter.IsBlockedBy(coll.Owner, viewer); err != nil {
		writeErr(w, err)
		return
	} else if blocked {
		writeErr(w, apierr.New(apierr.Forbidden, "blocked by "+coll.Owner))
		return
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	items, hasMore, err := s.store.PageItems(collID, offset, s.cfg.PageSize)
	if err != nil {
		writeErr(w, err)
		return
	}

	visible := make([]string, 0, len(items))
	for _, itemID := range items {
		doc, err := s.store.Get(itemID)
		if err != nil {
			// A remote item we never stored locally (a Like/Follow target
			// IRI, say): pass it through unfiltered, there's nothing to
			// check visibility against.
			visible = append(visible, itemID)
			continue
		}
		ok, err := s.filter.CanRead(doc, viewer)
		if err != nil || !ok {
			continue
		}
		visible = append(visible, itemID)
	}

	page := map[string]interface{}{
		"@context":     vocab.DefaultContext,
		"id":           fmt.Sprintf("%s?offset=%d", pageID, offset),
		"type":         "OrderedCollectionPage",
		"partOf":       collID,
		"orderedItems": visible,
	}
	if hasMore {
		page["next"] = fmt.Sprintf("%s?offset=%d", pageID, offset+s.cfg.PageSize)
	}
	activityJSON(w, page)
}

// handleCollectionPost dispatches a POST to whichever collection IRI the
// request names: an outbox post is a C2S activity submission (bearer auth,
// owner only); an inbox post is an S2S delivery (HTTP Signature required).
// Any other collection name rejects writes: Add/Remove happen through
// outbox activities, never direct collection POSTs.
func (s *Server) handleCollectionPost(w http.ResponseWriter, r *http.Request) {
	id := s.cfg.IRI("/orderedcollection/" + chi.URLParam(r, "id"))
	coll, err := s.store.GetCollection(id)
	if err != nil {
		writeErr(w, err)
		return
	}

	switch coll.Name {
	case "outbox":
		s.handleOutboxPost(w, r, coll)
	case "inbox":
		s.handleInboxPost(w, r, coll)
	default:
		writeErr(w, apierr.New(apierr.BadRequest, "collection does not accept direct posts: "+coll.Name))
	}
}

func (s *Server) handleOutboxPost(w http.ResponseWriter, r *http.Request, coll *store.Collection) {
	viewer := s.authenticatedActor(r)
	if !s.filter.CanPostToOutbox(coll.Owner, viewer) {
		writeErr(w, apierr.New(apierr.Forbidden, "not the outbox owner"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxInboundBody))
	if err != nil {
		writeErr(w, apierr.Wrap(apierr.BadRequest, "read request body", err))
		return
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		writeErr(w, apierr.Wrap(apierr.BadRequest, "invalid JSON", err))
		return
	}

	stored, err := s.engine.Submit(coll.Owner, vocab.Doc(raw))
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Location", stored.ID())
	writeDoc(w, stored)
}

func (s *Server) handleInboxPost(w http.ResponseWriter, r *http.Request, coll *store.Collection) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInboundBody))
	if err != nil {
		writeErr(w, apierr.Wrap(apierr.BadRequest, "read request body", err))
		return
	}

	if err := httpsig.VerifyDigest(body, r.Header.Get("Digest")); err != nil {
		writeErr(w, apierr.Wrap(apierr.BadRequest, "digest mismatch", err))
		return
	}

	sender, err := s.verifiedSigner(r)
	if err != nil {
		writeErr(w, apierr.Wrap(apierr.Unauthorized, "signature verification failed", err))
		return
	}

	act, err := vocab.Parse(body)
	if err != nil {
		writeErr(w, apierr.Wrap(apierr.BadRequest, "invalid activity JSON", err))
		return
	}

	// §4.7: accept quickly, process asynchronously. Nothing is stored
	// before the 202 is written; a goroutine hands the activity to Receive
	// so a slow delivery-time side effect never blocks the sender.
	go func(owner string, act vocab.Doc, sender string) {
		if err := s.engine.Receive(owner, act, sender, s.filter); err != nil {
			slog.Error("inbox delivery failed", "owner", owner, "activity", act.ID(), "error", err)
		}
	}(coll.Owner, act, sender)

	w.WriteHeader(http.StatusAccepted)
}
