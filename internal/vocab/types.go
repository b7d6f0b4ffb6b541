// Package vocab implements the minimal slice of the ActivityStreams 2.0
// vocabulary this server recognizes: a fixed JSON-LD context, well-known
// type and property names, and a loosely-typed document representation.
// There is no general JSON-LD processor here — only the fixed context named
// in the external interface design is ever emitted.
package vocab

import jsoniter "github.com/json-iterator/go"

// JSON is the marshal/unmarshal engine used for ActivityStreams documents
// throughout the store, activity engine, and HTTP surface. It is configured
// to match encoding/json's behavior (field tags, map ordering on decode)
// while being faster on the hot request path.
var JSON = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	ActivityStreamsNS = "https://www.w3.org/ns/activitystreams"
	SecurityNS        = "https://w3id.org/security/v1"
	BlockedNS         = "https://purl.archive.org/socialweb/blocked"

	// PublicIRI is the constant ActivityStreams audience meaning "world-visible".
	PublicIRI = "https://www.w3.org/ns/activitystreams#Public"

	MediaType         = "application/activity+json; charset=utf-8"
	JRDMediaType      = "application/jrd+json; charset=utf-8"
	TombstoneSummary  = "This object has been deleted"
)

// DefaultContext is the fixed JSON-LD context this server emits on every
// outward-facing document. No other context is ever recognized or produced.
var DefaultContext = []interface{}{
	ActivityStreamsNS,
	SecurityNS,
	BlockedNS,
}

// Activity type names recognized by the side-effect engine (C6).
const (
	TypeCreate   = "Create"
	TypeUpdate   = "Update"
	TypeDelete   = "Delete"
	TypeFollow   = "Follow"
	TypeAccept   = "Accept"
	TypeReject   = "Reject"
	TypeAdd      = "Add"
	TypeRemove   = "Remove"
	TypeLike     = "Like"
	TypeAnnounce = "Announce"
	TypeBlock    = "Block"
	TypeUndo     = "Undo"

	TypePerson             = "Person"
	TypeService            = "Service"
	TypeNote               = "Note"
	TypeObject             = "Object"
	TypeTombstone          = "Tombstone"
	TypeOrderedCollection  = "OrderedCollection"
	TypeOrderedCollectionPage = "OrderedCollectionPage"
	TypeKey                = "Key"
)

// intransitiveActivities have no nested `object`.
var intransitiveActivities = map[string]bool{
	"Arrive": true,
	"Travel": true,
}

// IsIntransitive reports whether a is an IntransitiveActivity subtype that
// carries no nested `object` property.
func IsIntransitive(t string) bool {
	return intransitiveActivities[t]
}

// knownActivityTypes is the dispatch table domain for C6.
var knownActivityTypes = map[string]bool{
	TypeCreate: true, TypeUpdate: true, TypeDelete: true, TypeFollow: true,
	TypeAccept: true, TypeReject: true, TypeAdd: true, TypeRemove: true,
	TypeLike: true, TypeAnnounce: true, TypeBlock: true, TypeUndo: true,
}

// IsActivityType reports whether t is one of the types C6 dispatches on.
func IsActivityType(t string) bool {
	return knownActivityTypes[t]
}
