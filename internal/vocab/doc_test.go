package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocTypeHandlesScalarAndArray(t *testing.T) {
	scalar := Doc{"type": "Note"}
	assert.Equal(t, "Note", scalar.Type())
	assert.True(t, scalar.HasType("Note"))

	array := Doc{"type": []interface{}{"Person", "Service"}}
	assert.Equal(t, "Person", array.Type())
	assert.True(t, array.HasType("Service"))
	assert.False(t, array.HasType("Note"))
}

func TestDocObjectIRIHandlesBothShapes(t *testing.T) {
	bare := Doc{"object": "https://example.social/object/abc"}
	assert.Equal(t, "https://example.social/object/abc", bare.ObjectIRI())

	embedded := Doc{"object": map[string]interface{}{"id": "https://example.social/object/def", "type": "Note"}}
	assert.Equal(t, "https://example.social/object/def", embedded.ObjectIRI())
	obj, ok := embedded.EmbeddedObject()
	require.True(t, ok)
	assert.Equal(t, "Note", obj.Type())

	_, ok = bare.EmbeddedObject()
	assert.False(t, ok)
}

func TestDocAudienceDedupesAcrossFields(t *testing.T) {
	d := Doc{
		"to":  []interface{}{"https://a.example/x", PublicIRI},
		"cc":  []interface{}{"https://a.example/x", "https://b.example/y"},
		"bto": []interface{}{"https://hidden.example/z"},
	}
	aud := d.Audience()
	assert.Contains(t, aud, PublicIRI)
	assert.Contains(t, aud, "https://a.example/x")
	assert.Contains(t, aud, "https://b.example/y")
	assert.Contains(t, aud, "https://hidden.example/z")

	count := 0
	for _, iri := range aud {
		if iri == "https://a.example/x" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestStripPrivateAddressingRemovesBtoBcc(t *testing.T) {
	d := Doc{
		"to":  []interface{}{PublicIRI},
		"bto": []interface{}{"https://hidden.example/z"},
		"bcc": []interface{}{"https://hidden.example/w"},
	}
	d.StripPrivateAddressing()
	_, hasBto := d["bto"]
	_, hasBcc := d["bcc"]
	assert.False(t, hasBto)
	assert.False(t, hasBcc)
	assert.Contains(t, d["to"], PublicIRI)
}

func TestParseRoundTrip(t *testing.T) {
	d := Doc{"id": "https://example.social/object/1", "type": "Note", "content": "hi"}
	b, err := d.Bytes()
	require.NoError(t, err)

	parsed, err := Parse(b)
	require.NoError(t, err)
	assert.Equal(t, "https://example.social/object/1", parsed.ID())
	assert.Equal(t, "Note", parsed.Type())
}

func TestIsIRI(t *testing.T) {
	assert.True(t, IsIRI("https://example.social/person/1"))
	assert.True(t, IsIRI("http://example.social/person/1"))
	assert.False(t, IsIRI("acct:alice@example.social"))
	assert.False(t, IsIRI(""))
}
