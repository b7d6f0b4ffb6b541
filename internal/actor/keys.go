package actor

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// KeyPair holds the RSA key pair minted for a registering actor.
type KeyPair struct {
	Private    *rsa.PrivateKey
	PrivatePEM string
	PublicPEM  string
}

// GenerateKeyPair mints a fresh 2048-bit RSA key pair, per §4.3's
// registration contract ("Generate RSA keypair (≥2048 bits)"). Unlike the
// single instance-wide keypair a bridge persona needs, every registered
// actor gets its own pair here; both PEMs are persisted by the caller
// (private PEM into the Account sidecar, public PEM onto the Actor's
// publicKey object).
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}

	privBytes := x509.MarshalPKCS1PrivateKey(priv)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privBytes})

	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	return &KeyPair{
		Private:    priv,
		PrivatePEM: string(privPEM),
		PublicPEM:  string(pubPEM),
	}, nil
}

// ParsePrivateKey decodes a PKCS1 RSA private key PEM, as persisted by
// GenerateKeyPair and read back from the Account sidecar before signing.
func ParsePrivateKey(privPEM string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privPEM))
	if block == nil {
		return nil, fmt.Errorf("decode private key PEM")
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

// ParsePublicKey decodes a PKIX RSA public key PEM, as dereferenced from a
// remote actor's publicKey.publicKeyPem.
func ParsePublicKey(pubPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pubPEM))
	if block == nil {
		return nil, fmt.Errorf("decode public key PEM")
	}
	iface, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := iface.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return pub, nil
}
