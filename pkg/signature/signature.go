// Package signature verifies webhook payload signatures.
//
// The platform signs the raw request body as a detached compact JWS
// (header..signature) with one of the keys it publishes in its JWKS.
// Handlers configured with a shared secret use a hex encoded HMAC-SHA256
// of the body instead; the two modes never mix on one handler.
package signature

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"

	"holiapp/pkg/platform"
)

var (
	// ErrVerificationFailed is matched by every verification failure.
	ErrVerificationFailed = errors.New("signature verification failed")
	// ErrJWKSParse is returned when the given JWKS is not valid JSON.
	ErrJWKSParse = fmt.Errorf("%w: could not parse given JWKS", ErrVerificationFailed)
	// ErrJWKSVerification is the single error the remote mode reports.
	ErrJWKSVerification = fmt.Errorf("%w: JWKS verification failed", ErrVerificationFailed)
	// ErrMalformedSignature is returned when the signature is not a detached compact JWS.
	ErrMalformedSignature = fmt.Errorf("%w: malformed signature", ErrVerificationFailed)
)

func verifyDetached(set jwk.Set, sig string, body []byte) error {
	parts := strings.Split(sig, ".")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return ErrMalformedSignature
	}
	_, err := jws.Verify([]byte(sig),
		jws.WithKeySet(set, jws.WithRequireKid(false), jws.WithInferAlgorithmFromKey(true)),
		jws.WithDetachedPayload(body),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	return nil
}

// VerifyWithJWKS checks sig against a JWKS document held locally, typically
// the snapshot stored at registration.
func VerifyWithJWKS(jwks, sig string, body []byte) error {
	set, err := jwk.ParseString(jwks)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSParse, err)
	}
	return verifyDetached(set, sig, body)
}

// RemoteVerifier fetches the tenant's current JWKS from its well-known URL.
type RemoteVerifier struct {
	client *http.Client
}

func NewRemoteVerifier(client *http.Client) *RemoteVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteVerifier{client: client}
}

// Verify reports ErrJWKSVerification for any network or cryptographic
// failure; the cause is not exposed.
func (v *RemoteVerifier) Verify(ctx context.Context, apiURL, sig string, body []byte) error {
	u, err := platform.JWKSURL(apiURL)
	if err != nil {
		return ErrJWKSVerification
	}
	set, err := jwk.Fetch(ctx, u, jwk.WithHTTPClient(v.client))
	if err != nil {
		return ErrJWKSVerification
	}
	if err := verifyDetached(set, sig, body); err != nil {
		return ErrJWKSVerification
	}
	return nil
}

// HMAC returns the hex encoded HMAC-SHA256 of body.
func HMAC(secret string, body []byte) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

// VerifyHMAC compares sig with the expected digest for exact equality.
func VerifyHMAC(secret, sig string, body []byte) error {
	if sig == "" || !hmac.Equal([]byte(HMAC(secret, body)), []byte(sig)) {
		return ErrVerificationFailed
	}
	return nil
}
