package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_RoundTrip(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour)
	token, err := a.Issue("acc-1", "alice@example.com")
	require.NoError(t, err)

	id, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", id)
}

func TestAuthenticator_RejectsBadTokens(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour)
	other := NewAuthenticator("other-secret", time.Hour)
	foreign, err := other.Issue("acc-1", "alice@example.com")
	require.NoError(t, err)

	expired := NewAuthenticator("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, err := expired.Issue("acc-1", "alice@example.com")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "acc-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"wrong secret": foreign,
		"expired":      stale,
		"alg none":     none,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Authenticate(context.Background(), token)
			assert.ErrorIs(t, err, domain.ErrUnauthenticated)
		})
	}
}
