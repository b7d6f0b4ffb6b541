package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/klppl/onepagepub/internal/addressing"
	"github.com/klppl/onepagepub/internal/store"
	"github.com/klppl/onepagepub/internal/vocab"
)

// keyResolver adapts the store and the remote-document fetcher to
// httpsig.KeyResolver, handling both conventions a keyId may follow: our
// own standalone Key resource (no fragment), and the common
// actorURL#fragment convention some remote peers use, where the fragment
// names a key embedded in the actor document itself.
type keyResolver struct {
	store *store.Store
	host  string
}

func (k *keyResolver) ResolvePublicKey(keyID string) (string, string, error) {
	base := keyID
	if i := strings.IndexByte(keyID, '#'); i >= 0 {
		base = keyID[:i]
	}

	var doc vocab.Doc
	var err error
	if strings.HasPrefix(base, strings.TrimRight(k.host, "/")+"/") {
		doc, err = k.store.Get(base)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		doc, err = addressing.FetchRemoteDoc(ctx, base)
	}
	if err != nil {
		return "", "", err
	}

	if doc.Type() == vocab.TypeKey {
		pem, _ := doc["publicKeyPem"].(string)
		owner, _ := doc["owner"].(string)
		return pem, owner, nil
	}

	// Legacy convention: base dereferences to the actor itself, with its
	// key embedded under publicKey.
	if pk, ok := doc["publicKey"].(map[string]interface{}); ok {
		pem, _ := pk["publicKeyPem"].(string)
		return pem, doc.ID(), nil
	}
	return "", "", errKeyNotFound
}

var errKeyNotFound = &notFoundErr{"no publicKeyPem found for keyId"}

type notFoundErr struct{ msg string }

func (e *notFoundErr) Error() string { return e.msg }

// opsAuth gates /ops/* behind HTTP Basic, constant-time compared against
// OPS_PASSWORD. Username is ignored; only the password matters.
func (s *Server) opsAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pass, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.OpsPassword)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="ops"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
