// Package httpsig implements the HTTP Signature Service (C8): signing
// outbound deliveries and verifying inbound ones, per §4.8.
package httpsig

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-fed/httpsig"
	"github.com/klppl/onepagepub/internal/actor"
)

// maxDateSkew bounds how far an inbound request's Date header may diverge
// from local time, per §4.8 ("reject if ... date skew > 5 minutes").
const maxDateSkew = 5 * time.Minute

// KeyResolver dereferences a keyId (an actor's publicKey.id) to the PEM
// public key and owning actor IRI. Implemented by whatever layer already
// fetches and caches remote actor documents (the addressing resolver, or a
// thin adapter over it), kept as an interface here so this package has no
// dependency on HTTP fetching itself.
type KeyResolver interface {
	ResolvePublicKey(keyID string) (pemKey string, owner string, err error)
}

// Sign attaches an HTTP Signature (and Date/Host/Digest headers) to req,
// covering (request-target) host date digest with RSA-SHA256, per §4.8.
func Sign(req *http.Request, body []byte, keyID string, priv *rsa.PrivateKey) error {
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Host", req.URL.Host)

	signer, _, err := httpsig.NewSigner(
		[]httpsig.Algorithm{httpsig.RSA_SHA256},
		httpsig.DigestSha256,
		[]string{httpsig.RequestTarget, "host", "date", "digest"},
		httpsig.Signature,
		0,
	)
	if err != nil {
		return fmt.Errorf("create signer: %w", err)
	}
	return signer.SignRequest(priv, keyID, req, body)
}

// VerifyDigest checks the Digest header against the SHA-256 hash of body,
// per §4.8. An absent header is tolerated (many AP implementations omit
// it); an unrecognized algorithm is skipped rather than rejected.
func VerifyDigest(body []byte, digestHeader string) error {
	if digestHeader == "" {
		return nil
	}
	const prefix = "SHA-256="
	if !strings.HasPrefix(digestHeader, prefix) {
		return nil
	}
	sum := sha256.Sum256(body)
	got := base64.StdEncoding.EncodeToString(sum[:])
	want := digestHeader[len(prefix):]
	if got != want {
		return fmt.Errorf("digest mismatch: body SHA-256=%s, header claims SHA-256=%s", got, want)
	}
	return nil
}

// Verify checks an inbound request's HTTP Signature. Returns the verified
// signing actor's IRI (the key's `owner`) on success.
func Verify(req *http.Request, resolver KeyResolver) (string, error) {
	dateStr := req.Header.Get("Date")
	if dateStr == "" {
		return "", fmt.Errorf("missing Date header")
	}
	reqTime, err := http.ParseTime(dateStr)
	if err != nil {
		return "", fmt.Errorf("invalid Date header %q: %w", dateStr, err)
	}
	if skew := time.Since(reqTime); skew > maxDateSkew || skew < -maxDateSkew {
		return "", fmt.Errorf("Date header too skewed (%v, allowed ±%v)", skew.Round(time.Second), maxDateSkew)
	}

	verifier, err := httpsig.NewVerifier(req)
	if err != nil {
		return "", fmt.Errorf("create verifier: %w", err)
	}
	keyID := verifier.KeyId()

	pemKey, owner, err := resolver.ResolvePublicKey(keyID)
	if err != nil {
		return "", fmt.Errorf("resolve key %s: %w", keyID, err)
	}
	pubKey, err := actor.ParsePublicKey(pemKey)
	if err != nil {
		return "", fmt.Errorf("parse public key for %s: %w", keyID, err)
	}
	if err := verifier.Verify(pubKey, httpsig.RSA_SHA256); err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}
	return owner, nil
}

// DigestHeader computes the Digest header value for a request body.
func DigestHeader(body []byte) string {
	sum := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
}

// NewSignedRequest builds and signs a POST of body to inbox, ready to send.
func NewSignedRequest(ctx context.Context, inbox string, body []byte, keyID string, priv *rsa.PrivateKey) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, inbox, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/activity+json")
	req.Header.Set("User-Agent", "onepagepub/1.0")
	if err := Sign(req, body, keyID, priv); err != nil {
		return nil, err
	}
	return req, nil
}
