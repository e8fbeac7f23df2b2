package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloomcart/storefront-api/internal/gateway"
	"github.com/bloomcart/storefront-api/internal/model"
)

func signedIdentityEvent(t *testing.T, secret string, event map[string]any) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body, gateway.WebhookSignature(secret, body)
}

func TestUserService_IdentityWebhook_UserCreated(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, "id-secret", testLogger())

	body, sig := signedIdentityEvent(t, "id-secret", map[string]any{
		"type": "user.created",
		"data": map[string]any{
			"id": "ext_1", "email": "a@example.com",
			"first_name": "Ada", "last_name": "L",
		},
	})
	require.NoError(t, svc.HandleIdentityWebhook(context.Background(), body, sig))

	user, err := repo.GetByExternalID(context.Background(), "ext_1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "a@example.com", user.Email)
}

func TestUserService_IdentityWebhook_UserUpdatedUpserts(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, "id-secret", testLogger())

	require.NoError(t, repo.Upsert(context.Background(), &model.User{ExternalID: "ext_1", Email: "old@example.com"}))

	body, sig := signedIdentityEvent(t, "id-secret", map[string]any{
		"type": "user.updated",
		"data": map[string]any{"id": "ext_1", "email": "new@example.com"},
	})
	require.NoError(t, svc.HandleIdentityWebhook(context.Background(), body, sig))

	require.Len(t, repo.users, 1)
	user, _ := repo.GetByExternalID(context.Background(), "ext_1")
	assert.Equal(t, "new@example.com", user.Email)
}

func TestUserService_IdentityWebhook_UserDeleted(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, "id-secret", testLogger())

	require.NoError(t, repo.Upsert(context.Background(), &model.User{ExternalID: "ext_1"}))

	body, sig := signedIdentityEvent(t, "id-secret", map[string]any{
		"type": "user.deleted",
		"data": map[string]any{"id": "ext_1"},
	})
	require.NoError(t, svc.HandleIdentityWebhook(context.Background(), body, sig))
	assert.Empty(t, repo.users)
}

func TestUserService_IdentityWebhook_SessionCreated(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, "id-secret", testLogger())

	require.NoError(t, repo.Upsert(context.Background(), &model.User{ExternalID: "ext_1"}))

	body, sig := signedIdentityEvent(t, "id-secret", map[string]any{
		"type": "session.created",
		"data": map[string]any{"id": "sess_1", "user_id": "ext_1"},
	})
	require.NoError(t, svc.HandleIdentityWebhook(context.Background(), body, sig))

	user, _ := repo.GetByExternalID(context.Background(), "ext_1")
	assert.NotNil(t, user.LastSignIn)
}

func TestUserService_IdentityWebhook_BadSignature(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, "id-secret", testLogger())

	err := svc.HandleIdentityWebhook(context.Background(),
		[]byte(`{"type":"user.created","data":{"id":"ext_1"}}`), "forged")
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, repo.users)
}

func TestUserService_IdentityWebhook_UnknownEventIgnored(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, "id-secret", testLogger())

	body, sig := signedIdentityEvent(t, "id-secret", map[string]any{
		"type": "organization.created",
		"data": map[string]any{"id": "org_1"},
	})
	assert.NoError(t, svc.HandleIdentityWebhook(context.Background(), body, sig))
}

func TestUserService_EnsureUser(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, "id-secret", testLogger())

	ident := &gateway.Identity{ID: "ext_9", Email: "b@example.com"}
	user, err := svc.EnsureUser(context.Background(), ident)
	require.NoError(t, err)
	assert.NotEqual(t, user.ID.String(), "00000000-0000-0000-0000-000000000000")

	// Second call resolves to the same local record.
	again, err := svc.EnsureUser(context.Background(), ident)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}
