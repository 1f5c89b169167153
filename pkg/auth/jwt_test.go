package auth_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modera-shop/modera/pkg/auth"
)

func TestIssueVerify_RoundTrip(t *testing.T) {
	iss := auth.NewIssuer("s3cret")

	tok, err := iss.Issue("652f1c0e9b1e8a0012345678")
	require.NoError(t, err)

	id, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "652f1c0e9b1e8a0012345678", id)
}

func TestIssue_NoExpiry(t *testing.T) {
	tok, err := auth.NewIssuer("s3cret").Issue("abc")
	require.NoError(t, err)

	claims := &auth.Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok, claims)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
	assert.NotNil(t, claims.IssuedAt)
	assert.Equal(t, "abc", claims.User.ID)
}

func TestVerify_Missing(t *testing.T) {
	_, err := auth.NewIssuer("s3cret").Verify("")
	assert.ErrorIs(t, err, auth.ErrMissingToken)
}

func TestVerify_Rejects(t *testing.T) {
	iss := auth.NewIssuer("s3cret")
	foreign, err := auth.NewIssuer("other").Issue("abc")
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"foo": "bar"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	wrongAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, auth.Claims{User: auth.Subject{ID: "abc"}}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":    "not.a.token",
		"wrong key":  foreign,
		"no subject": noSubject,
		"wrong alg":  wrongAlg,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Verify(tok)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, auth.CheckPassword(hash, "hunter2"))
	assert.False(t, auth.CheckPassword(hash, "hunter3"))

	again, err := auth.HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes are salted")
}
