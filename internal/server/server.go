// Package server implements the HTTP Surface (C9): routing, content
// negotiation, bearer/HTTP-signature authentication extraction, and the
// handlers binding every other component to the wire.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klppl/onepagepub/internal/activity"
	"github.com/klppl/onepagepub/internal/actor"
	"github.com/klppl/onepagepub/internal/addressing"
	"github.com/klppl/onepagepub/internal/authz"
	"github.com/klppl/onepagepub/internal/config"
	"github.com/klppl/onepagepub/internal/httpsig"
	"github.com/klppl/onepagepub/internal/store"
)

const version = "1.0.0"

// Server wires every component to chi routes.
type Server struct {
	cfg     *config.Config
	store   *store.Store
	actors  *actor.Registry
	addr    *addressing.Resolver
	filter  *authz.Filter
	engine  *activity.Engine
	router  *chi.Mux

	startedAt time.Time

	// logBroadcaster is attached by main after slog is configured, so
	// /ops/feed can stream lines written through it. Nil disables the feed.
	logBroadcaster *LogBroadcaster
}

func New(cfg *config.Config, s *store.Store, actors *actor.Registry, addr *addressing.Resolver, filter *authz.Filter, engine *activity.Engine) *Server {
	srv := &Server{
		cfg:       cfg,
		store:     s,
		actors:    actors,
		addr:      addr,
		filter:    filter,
		engine:    engine,
		startedAt: time.Now(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// SetLogBroadcaster attaches the ring-buffer/fan-out writer backing
// /ops/feed. Call before Start.
func (s *Server) SetLogBroadcaster(lb *LogBroadcaster) { s.logBroadcaster = lb }

// Start runs the HTTP server until ctx is cancelled, serving TLS when
// TLS_CERT/TLS_KEY are configured and plain HTTP otherwise (dev mode).
func (s *Server) Start(ctx context.Context) {
	addr := ":" + s.cfg.Port
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting HTTP server", "addr", addr, "host", s.cfg.Host)

	var err error
	if s.cfg.TLSCertPath != "" && s.cfg.TLSKeyPath != "" {
		err = httpSrv.ListenAndServeTLS(s.cfg.TLSCertPath, s.cfg.TLSKeyPath)
	} else {
		err = httpSrv.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
	}
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/register", s.handleRegisterForm)
	r.Post("/register", s.handleRegisterSubmit)

	r.Get("/.well-known/webfinger", s.handleWebFinger)
	r.Get("/.well-known/nodeinfo", s.handleNodeInfoLinks)
	r.Get("/nodeinfo/2.0", s.handleNodeInfo)

	r.Get("/person/{id}", s.handlePerson)
	r.Get("/key/{id}", s.handleKey)
	r.Get("/orderedcollection/{id}", s.handleCollectionGet)
	r.Post("/orderedcollection/{id}", s.handleCollectionPost)
	r.Get("/orderedcollectionpage/{id}", s.handlePageGet)
	// Every other object/activity type (Note, Create, Follow, Like, ...) is
	// minted at base/type_lowercase/token per §4.1 and served generically
	// here; the literal routes above take precedence over this wildcard at
	// the same path depth.
	r.Get("/{type}/{id}", s.handleObject)

	if s.cfg.OpsEnabled() {
		r.Route("/ops", func(r chi.Router) {
			r.Use(s.opsAuth)
			r.Get("/status", s.handleOpsStatus)
			r.Get("/deliveries", s.handleOpsDeliveries)
			r.Get("/feed", s.handleOpsFeed)
			r.Post("/requeue/{jobID}", s.handleOpsRequeue)
		})
	}

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	activityJSON(w, map[string]interface{}{
		"@context": []interface{}{"https://www.w3.org/ns/activitystreams"},
		"id":       s.cfg.IRI(""),
		"type":     "Service",
		"name":     "One Page Pub",
	})
}

// loggingMiddleware logs every request with the fields §10.1 names.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", r.RemoteAddr,
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// authenticatedActor extracts the bearer-token-authenticated actor IRI from
// the request, or "" if unauthenticated (anonymous reads are allowed on most
// endpoints; write endpoints reject an empty viewer themselves).
func (s *Server) authenticatedActor(r *http.Request) string {
	tok := bearerToken(r)
	if tok == "" {
		return ""
	}
	acct, err := s.actors.AuthByToken(tok)
	if err != nil {
		return ""
	}
	return acct.ActorID
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// verifiedSigner verifies the request's HTTP Signature (per C8) and returns
// the signing actor's IRI, or an error if missing/invalid.
func (s *Server) verifiedSigner(r *http.Request) (string, error) {
	return httpsig.Verify(r, &keyResolver{store: s.store, host: s.cfg.Host})
}
