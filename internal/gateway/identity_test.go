package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomcart/storefront-api/internal/config"
)

func TestIdentityClient_VerifyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tokens/verify", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "session-token", payload["token"])

		json.NewEncoder(w).Encode(Identity{
			ID: "ext_1", Email: "a@example.com", EmailVerified: true,
		})
	}))
	defer srv.Close()

	client := NewIdentityClient(config.IdentityConfig{BaseURL: srv.URL, SecretKey: "sk_test"})

	ident, err := client.VerifyToken(context.Background(), "session-token")
	require.NoError(t, err)
	assert.Equal(t, "ext_1", ident.ID)
	assert.True(t, ident.EmailVerified)
}

func TestIdentityClient_VerifyToken_Invalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewIdentityClient(config.IdentityConfig{BaseURL: srv.URL})

	_, err := client.VerifyToken(context.Background(), "expired")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIdentityClient_VerifyToken_EmptyIdentityRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewIdentityClient(config.IdentityConfig{BaseURL: srv.URL})

	_, err := client.VerifyToken(context.Background(), "token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
