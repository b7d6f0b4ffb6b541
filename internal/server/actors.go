package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/klppl/onepagepub/internal/apierr"
)

func (s *Server) handlePerson(w http.ResponseWriter, r *http.Request) {
	id := s.cfg.IRI("/person/" + chi.URLParam(r, "id"))
	doc, err := s.store.Get(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	viewer := s.authenticatedActor(r)
	if blocked, err := s.filter.IsBlockedBy(id, viewer); err != nil {
		writeErr(w, err)
		return
	} else if blocked {
		writeErr(w, apierr.New(apierr.Forbidden, "blocked by "+id))
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	writeDoc(w, doc)
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	id := s.cfg.IRI("/key/" + chi.URLParam(r, "id"))
	doc, err := s.store.Get(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeDoc(w, doc)
}

func (s *Server) handleWebFinger(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("resource")
	if resource == "" {
		writeErr(w, apierr.New(apierr.BadRequest, "missing resource parameter"))
		return
	}
	jrd, err := s.actors.ResolveWebFinger(resource)
	if err != nil {
		writeErr(w, err)
		return
	}
	jrdJSON(w, jrd)
}
