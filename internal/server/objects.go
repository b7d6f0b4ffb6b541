package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/klppl/onepagepub/internal/apierr"
	"github.com/klppl/onepagepub/internal/vocab"
)

// handleObject serves any object or activity minted under the §4.1 scheme
// (base/type_lowercase/token) that isn't one of the dedicated resources
// (Person, Key, OrderedCollection, OrderedCollectionPage) registered ahead
// of the generic "/{type}/{id}" route: Note, Create, Follow, Like, and
// every other activity/object type lands here under its own lowercase type
// segment.
func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	id := s.cfg.IRI("/" + chi.URLParam(r, "type") + "/" + chi.URLParam(r, "id"))
	doc, err := s.store.Get(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	viewer := s.authenticatedActor(r)
	ok, err := s.filter.CanRead(doc, viewer)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !ok {
		writeErr(w, apierr.New(apierr.NotFound, "object not found: "+id))
		return
	}
	if doc.HasType(vocab.TypeTombstone) {
		w.Header().Set("Content-Type", vocab.MediaType)
		w.WriteHeader(http.StatusGone)
		b, _ := doc.Bytes()
		w.Write(b)
		return
	}
	writeDoc(w, doc)
}
