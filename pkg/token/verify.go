// Package token verifies the bearer JWT the platform dashboard attaches to
// calls made on behalf of a logged in user.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"holiapp/pkg/platform"
)

// Claim names issued by the platform.
const (
	ClaimApp             = "app"
	ClaimEmail           = "email"
	ClaimUserPermissions = "user_permissions"
)

var (
	ErrVerificationFailed = errors.New("jwt verification failed")
	ErrMalformed          = fmt.Errorf("%w: malformed token", ErrVerificationFailed)
	ErrNoAppID            = fmt.Errorf("%w: token has no app claim", ErrVerificationFailed)
	ErrAppMismatch        = fmt.Errorf("%w: token app does not match registered app", ErrVerificationFailed)
	ErrSignature          = fmt.Errorf("%w: signature or claims invalid", ErrVerificationFailed)
	ErrPermissions        = fmt.Errorf("%w: missing required permissions", ErrVerificationFailed)
)

// User is the identity carried by a verified token.
type User struct {
	Email           string   `json:"email"`
	UserPermissions []string `json:"userPermissions"`
}

// Params describes one verification.
type Params struct {
	AppID               string
	Token               string
	APIURL              string
	RequiredPermissions []string
}

type Verifier struct {
	client *http.Client
}

func NewVerifier(client *http.Client) *Verifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &Verifier{client: client}
}

// Verify decodes the token locally first, checks the app claim against the
// registered app id and only then verifies the signature against the
// tenant's remote JWKS.
func (v *Verifier) Verify(ctx context.Context, p Params) (User, error) {
	unverified, err := jwt.ParseInsecure([]byte(p.Token))
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	app, _ := stringClaim(unverified, ClaimApp)
	if app == "" {
		return User{}, ErrNoAppID
	}
	if app != p.AppID {
		return User{}, ErrAppMismatch
	}

	u, err := platform.JWKSURL(p.APIURL)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	set, err := jwk.Fetch(ctx, u, jwk.WithHTTPClient(v.client))
	if err != nil {
		return User{}, fmt.Errorf("%w: fetch jwks: %v", ErrSignature, err)
	}
	verified, err := jwt.Parse([]byte(p.Token),
		jwt.WithKeySet(set, jws.WithRequireKid(false), jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(true),
	)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	user := UserFrom(verified)
	if !hasAll(user.UserPermissions, p.RequiredPermissions) {
		return User{}, ErrPermissions
	}
	return user, nil
}

// UserFrom extracts the identity claims.
func UserFrom(t jwt.Token) User {
	email, _ := stringClaim(t, ClaimEmail)
	return User{Email: email, UserPermissions: stringsClaim(t, ClaimUserPermissions)}
}

func stringClaim(t jwt.Token, name string) (string, bool) {
	v, ok := t.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func stringsClaim(t jwt.Token, name string) []string {
	v, ok := t.Get(name)
	if !ok {
		return []string{}
	}
	out := []string{}
	switch vv := v.(type) {
	case []string:
		out = append(out, vv...)
	case []any:
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func hasAll(have, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
