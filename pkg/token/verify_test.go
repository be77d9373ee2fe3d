package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holiapp/internal/testkeys"
)

func TestVerifier_Verify(t *testing.T) {
	keys := testkeys.New(t, "k1")
	p := testkeys.NewPlatform(t, keys, "42", "tok")
	v := NewVerifier(nil)
	ctx := context.Background()

	valid := keys.SignJWT(map[string]any{
		ClaimApp:             "42",
		ClaimEmail:           "staff@example.com",
		ClaimUserPermissions: []string{"MANAGE_ORDERS", "MANAGE_PRODUCTS"},
	})

	t.Run("valid token", func(t *testing.T) {
		user, err := v.Verify(ctx, Params{AppID: "42", Token: valid, APIURL: p.APIURL()})
		require.NoError(t, err)
		assert.Equal(t, "staff@example.com", user.Email)
		assert.ElementsMatch(t, []string{"MANAGE_ORDERS", "MANAGE_PRODUCTS"}, user.UserPermissions)
	})

	t.Run("required permissions present", func(t *testing.T) {
		_, err := v.Verify(ctx, Params{AppID: "42", Token: valid, APIURL: p.APIURL(), RequiredPermissions: []string{"MANAGE_ORDERS"}})
		assert.NoError(t, err)
	})

	t.Run("required permissions missing", func(t *testing.T) {
		_, err := v.Verify(ctx, Params{AppID: "42", Token: valid, APIURL: p.APIURL(), RequiredPermissions: []string{"MANAGE_STAFF"}})
		assert.ErrorIs(t, err, ErrPermissions)
	})

	t.Run("app mismatch fails before any network call", func(t *testing.T) {
		before := p.JWKSHits.Load()
		_, err := v.Verify(ctx, Params{AppID: "7", Token: valid, APIURL: p.APIURL()})
		assert.ErrorIs(t, err, ErrAppMismatch)
		assert.ErrorIs(t, err, ErrVerificationFailed)
		assert.Equal(t, before, p.JWKSHits.Load())
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := v.Verify(ctx, Params{AppID: "42", Token: "not-a-jwt", APIURL: p.APIURL()})
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("no app claim", func(t *testing.T) {
		tok := keys.SignJWT(map[string]any{ClaimEmail: "x@example.com"})
		_, err := v.Verify(ctx, Params{AppID: "42", Token: tok, APIURL: p.APIURL()})
		assert.ErrorIs(t, err, ErrNoAppID)
	})

	t.Run("signed by another key", func(t *testing.T) {
		forged := testkeys.New(t, "k1").SignJWT(map[string]any{ClaimApp: "42"})
		_, err := v.Verify(ctx, Params{AppID: "42", Token: forged, APIURL: p.APIURL()})
		assert.ErrorIs(t, err, ErrSignature)
	})
}

func TestHasAll(t *testing.T) {
	assert.True(t, hasAll(nil, nil))
	assert.True(t, hasAll([]string{"A", "B"}, []string{"B"}))
	assert.False(t, hasAll([]string{"A"}, []string{"A", "B"}))
}
