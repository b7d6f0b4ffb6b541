package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpsEnabledReflectsPassword(t *testing.T) {
	c := &Config{}
	assert.False(t, c.OpsEnabled())
	c.OpsPassword = "secret"
	assert.True(t, c.OpsEnabled())
}

func TestIRIJoinsPathToHostTrimmingTrailingSlash(t *testing.T) {
	c := &Config{Host: "https://example.social/"}
	assert.Equal(t, "https://example.social/person/1", c.IRI("/person/1"))
}

func TestMintIDLowercasesTypeAndJoinsToken(t *testing.T) {
	c := &Config{Host: "https://example.social"}
	assert.Equal(t, "https://example.social/person/abc123", c.MintID("Person", "abc123"))
	assert.Equal(t, "https://example.social/orderedcollection/xyz", c.MintID("OrderedCollection", "xyz"))
}

func TestURLParsesHost(t *testing.T) {
	c := &Config{Host: "https://example.social"}
	u := c.URL()
	assert.Equal(t, "example.social", u.Host)
	assert.Equal(t, "https", u.Scheme)
}
