package actor

import (
	"strings"

	"github.com/klppl/onepagepub/internal/apierr"
)

// JRD is a JSON Resource Descriptor, the WebFinger response shape (RFC 7033).
type JRD struct {
	Subject string          `json:"subject"`
	Aliases []string        `json:"aliases,omitempty"`
	Links   []JRDLink       `json:"links"`
}

type JRDLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href,omitempty"`
}

// ResolveWebFinger resolves a "acct:user@host" (or bare "user@host")
// resource to a JRD pointing at the actor's profile IRI, per §6's
// GET /.well-known/webfinger contract. The host component must match this
// instance; WebFinger here never proxies another server's identities.
func (r *Registry) ResolveWebFinger(resource string) (*JRD, error) {
	acct := strings.TrimPrefix(resource, "acct:")
	at := strings.LastIndex(acct, "@")
	if at < 0 {
		return nil, apierr.New(apierr.BadRequest, "resource must be of the form acct:user@host")
	}
	username, host := acct[:at], acct[at+1:]

	instanceHost := strings.TrimPrefix(strings.TrimPrefix(r.cfg.Host, "https://"), "http://")
	instanceHost = strings.TrimRight(instanceHost, "/")
	if host != instanceHost {
		return nil, apierr.New(apierr.NotFound, "no such host: "+host)
	}

	account, err := r.store.AccountByUsername(username)
	if err != nil {
		return nil, err
	}

	return &JRD{
		Subject: "acct:" + username + "@" + host,
		Aliases: []string{account.ActorID},
		Links: []JRDLink{
			{Rel: "self", Type: "application/activity+json", Href: account.ActorID},
			{Rel: "http://webfinger.net/rel/profile-page", Type: "text/html", Href: account.ActorID},
		},
	}, nil
}
