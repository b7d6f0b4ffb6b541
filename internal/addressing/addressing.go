// Package addressing implements the Addressing Resolver (C5): expanding an
// activity's audience (to/cc/bto/bcc/audience) into a concrete recipient
// set, inlining local followers/following and dereferencing remote
// collections once.
package addressing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klppl/onepagepub/internal/store"
	"github.com/klppl/onepagepub/internal/vocab"
	"github.com/puzpuzpuz/xsync/v3"
)

// remoteCacheTTL bounds how long a dereferenced remote collection is
// trusted before being refetched.
const remoteCacheTTL = time.Hour

var httpClient = &http.Client{Timeout: 10 * time.Second}

type cacheEntry struct {
	items   []string
	expires time.Time
}

// Resolver expands audience IRIs into a concrete actor set.
type Resolver struct {
	store *store.Store
	host  string // this instance's base host, to recognize local collections

	remoteCache *xsync.MapOf[string, cacheEntry]
}

func New(s *store.Store, host string) *Resolver {
	return &Resolver{
		store:       s,
		host:        strings.TrimRight(host, "/"),
		remoteCache: xsync.NewMapOf[string, cacheEntry](),
	}
}

// Expanded is the result of Expand: a deduplicated actor-IRI set plus
// whether the Public IRI was present.
type Expanded struct {
	Public bool
	actors map[string]bool
}

// Contains reports whether actorIRI is in the expanded set.
func (e Expanded) Contains(actorIRI string) bool {
	return e.actors[actorIRI]
}

// Actors returns the expanded set as a slice, in no particular order.
func (e Expanded) Actors() []string {
	out := make([]string, 0, len(e.actors))
	for a := range e.actors {
		out = append(out, a)
	}
	return out
}

// Expand implements §4.5's expand(audience): flattens, dedups, inlines
// local followers/following (shallow), dereferences every remote IRI once
// (adding a remote actor itself, inlining a remote collection's items, and
// treating a failed dereference as empty), and detects the Public IRI.
func (r *Resolver) Expand(audience []string) (Expanded, error) {
	out := Expanded{actors: map[string]bool{}}
	for _, iri := range audience {
		if iri == vocab.PublicIRI {
			out.Public = true
			continue
		}
		if !strings.HasPrefix(iri, r.host+"/") {
			items := r.dereferenceRemoteCollection(iri)
			for _, m := range items {
				out.actors[m] = true
			}
			continue
		}
		if coll, err := r.store.GetCollection(iri); err == nil {
			if coll.Name == "followers" || coll.Name == "following" {
				items, _, err := r.store.PageItems(iri, 0, 1<<20)
				if err != nil {
					continue // local collection lookup failed: treat as empty
				}
				for _, m := range items {
					out.actors[m] = true
				}
			}
			continue
		}
		// Not a known local collection: treat it as a bare local actor IRI.
		out.actors[iri] = true
	}
	return out, nil
}

// dereferenceRemoteCollection fetches a remote IRI once and returns the
// recipients it stands for: the IRI itself when the document is an actor
// (it has an inbox), otherwise its items/orderedItems, inlined one level
// deep (no recursion into nested pages). A failed fetch is treated as an
// empty collection per §4.5.
func (r *Resolver) dereferenceRemoteCollection(iri string) []string {
	if cached, ok := r.remoteCache.Load(iri); ok && time.Now().Before(cached.expires) {
		return cached.items
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc, err := fetchRemote(ctx, iri)
	items := []string{}
	if err == nil {
		if inbox, _ := doc["inbox"].(string); inbox != "" {
			items = []string{iri}
		} else {
			items = extractItems(doc)
		}
	}
	r.remoteCache.Store(iri, cacheEntry{items: items, expires: time.Now().Add(remoteCacheTTL)})
	return items
}

// FetchRemoteDoc dereferences any remote IRI (actor, object, or collection)
// without the per-collection items caching Expand applies, for callers that
// need the raw document itself — e.g. C7 resolving a remote actor's inbox
// URL before delivery.
func FetchRemoteDoc(ctx context.Context, iri string) (vocab.Doc, error) {
	return fetchRemote(ctx, iri)
}

func fetchRemote(ctx context.Context, iri string) (vocab.Doc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", vocab.MediaType)
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", iri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", iri, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", iri, err)
	}
	return vocab.Parse(b)
}

func extractItems(d vocab.Doc) []string {
	for _, key := range []string{"orderedItems", "items"} {
		v, ok := d[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case []interface{}:
			out := make([]string, 0, len(t))
			for _, e := range t {
				switch ev := e.(type) {
				case string:
					out = append(out, ev)
				case map[string]interface{}:
					if id, ok := ev["id"].(string); ok {
						out = append(out, id)
					}
				}
			}
			return out
		}
	}
	return nil
}

// DeliveryRecipients computes §4.5's delivery-recipient set from an
// activity's full addressing (to/cc/bto/bcc/audience), unlike the
// read-visibility set which excludes bto/bcc once stripped from storage.
func (r *Resolver) DeliveryRecipients(d vocab.Doc) (Expanded, error) {
	seen := map[string]bool{}
	var all []string
	for _, key := range []string{"to", "cc", "bto", "bcc", "audience"} {
		for _, iri := range stringOrArrayAll(d[key]) {
			if iri != "" && !seen[iri] {
				seen[iri] = true
				all = append(all, iri)
			}
		}
	}
	return r.Expand(all)
}

func stringOrArrayAll(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
