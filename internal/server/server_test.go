package server

import (
	"testing"

	"github.com/klppl/onepagepub/internal/activity"
	"github.com/klppl/onepagepub/internal/actor"
	"github.com/klppl/onepagepub/internal/addressing"
	"github.com/klppl/onepagepub/internal/authz"
	"github.com/klppl/onepagepub/internal/config"
	"github.com/klppl/onepagepub/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *actor.Registry, *store.Store) {
	t.Helper()
	s, err := store.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	cfg := &config.Config{Host: "https://example.social", PageSize: 20, OpsPassword: "secret"}
	addr := addressing.New(s, cfg.Host)
	reg := actor.New(s, cfg)
	filter := authz.New(s, addr)
	engine := activity.New(s, addr, cfg)
	return New(cfg, s, reg, addr, filter, engine), reg, s
}

func registerTestActor(t *testing.T, reg *actor.Registry, username string) *actor.Registration {
	t.Helper()
	r, err := reg.Register(username, "password123", "password123")
	require.NoError(t, err)
	return r
}
