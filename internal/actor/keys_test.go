package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPairRoundTripsThroughPEM(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.Equal(t, 2048, kp.Private.N.BitLen())

	priv, err := ParsePrivateKey(kp.PrivatePEM)
	require.NoError(t, err)
	assert.Equal(t, kp.Private.D, priv.D)

	pub, err := ParsePublicKey(kp.PublicPEM)
	require.NoError(t, err)
	assert.Equal(t, kp.Private.PublicKey.N, pub.N)
}

func TestParsePrivateKeyRejectsGarbage(t *testing.T) {
	_, err := ParsePrivateKey("not a pem")
	assert.Error(t, err)
}

func TestParsePublicKeyRejectsGarbage(t *testing.T) {
	_, err := ParsePublicKey("not a pem")
	assert.Error(t, err)
}
