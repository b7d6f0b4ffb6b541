package vocab

import "strings"

// Doc is an ActivityStreams object represented as an opaque property bag.
// The store persists these as JSON text; patch/merge semantics operate
// directly on the bag rather than on a fixed struct, matching the "tagged
// union over a property bag" design for dynamic object shapes.
type Doc map[string]interface{}

// Parse decodes JSON bytes into a Doc.
func Parse(b []byte) (Doc, error) {
	var d Doc
	if err := JSON.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// Bytes encodes the Doc back to JSON.
func (d Doc) Bytes() ([]byte, error) {
	return JSON.Marshal(map[string]interface{}(d))
}

func (d Doc) str(key string) string {
	if v, ok := d[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ID returns the `id` property.
func (d Doc) ID() string { return d.str("id") }

// SetID sets the `id` property.
func (d Doc) SetID(id string) { d["id"] = id }

// Type returns the primary `type` value: the first element if it's an
// array, or the scalar string, or "" if absent.
func (d Doc) Type() string {
	return stringOrArrayFirst(d["type"])
}

// Types returns all values of `type` as a flat list.
func (d Doc) Types() []string {
	return stringOrArrayAll(d["type"])
}

// HasType reports whether t is among the object's type(s).
func (d Doc) HasType(t string) bool {
	for _, x := range d.Types() {
		if x == t {
			return true
		}
	}
	return false
}

// AttributedTo returns the `attributedTo` actor IRI, if a single IRI.
func (d Doc) AttributedTo() string { return d.str("attributedTo") }

// Actor returns the `actor` IRI of an Activity (set by the server, or taken
// from a verified remote signer).
func (d Doc) Actor() string { return d.str("actor") }

// ObjectIRI returns the IRI of the nested `object` property: the string
// itself for an IRI reference, or the `id` of an embedded object.
func (d Doc) ObjectIRI() string {
	switch v := d["object"].(type) {
	case string:
		return v
	case map[string]interface{}:
		if id, ok := v["id"].(string); ok {
			return id
		}
	}
	return ""
}

// EmbeddedObject returns the nested `object` as a Doc when it is an
// embedded object rather than a bare IRI reference.
func (d Doc) EmbeddedObject() (Doc, bool) {
	m, ok := d["object"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	return Doc(m), true
}

// Target returns the `target` IRI.
func (d Doc) Target() string { return d.str("target") }

// InReplyTo returns the `inReplyTo` IRI, if present.
func (d Doc) InReplyTo() string { return d.str("inReplyTo") }

// Audience returns the union of to/cc/bto/bcc/audience as a flattened,
// deduplicated list of IRIs (collection and actor references alike,
// unexpanded — expansion is C5's job).
func (d Doc) Audience() []string {
	seen := map[string]bool{}
	var out []string
	for _, key := range []string{"to", "cc", "bto", "bcc", "audience"} {
		for _, iri := range stringOrArrayAll(d[key]) {
			if iri == "" || seen[iri] {
				continue
			}
			seen[iri] = true
			out = append(out, iri)
		}
	}
	return out
}

// StripPrivateAddressing removes bto/bcc before storage or delivery.
func (d Doc) StripPrivateAddressing() {
	delete(d, "bto")
	delete(d, "bcc")
}

// Clone returns a deep-enough copy (one level of map nesting) sufficient
// for mutate-then-persist call patterns.
func (d Doc) Clone() Doc {
	out := make(Doc, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// stringOrArrayAll and stringOrArrayFirst normalize a JSON value that may be
// either a single string or an array of strings — the shape used
// pervasively by ActivityStreams addressing and type properties.

func stringOrArrayAll(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
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

func stringOrArrayFirst(v interface{}) string {
	all := stringOrArrayAll(v)
	if len(all) == 0 {
		return ""
	}
	return all[0]
}

// IsIRI reports whether s looks like an absolute IRI (http/https).
func IsIRI(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
