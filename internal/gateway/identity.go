package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bloomcart/storefront-api/internal/config"
)

var ErrTokenInvalid = errors.New("identity token invalid")

// IdentityClient exchanges bearer tokens for a verified external identity.
type IdentityClient interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}

// Identity is the provider's view of the caller.
type Identity struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
	EmailVerified   bool   `json:"email_verified"`
}

type identityClient struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

func NewIdentityClient(cfg config.IdentityConfig) IdentityClient {
	return &identityClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    cfg.BaseURL,
		secretKey:  cfg.SecretKey,
	}
}

func (c *identityClient) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	payload := fmt.Sprintf(`{"token":%q}`, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/tokens/verify", strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound:
		return nil, ErrTokenInvalid
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("identity provider responded %d: %s", resp.StatusCode, body)
	}

	var ident Identity
	if err := json.NewDecoder(resp.Body).Decode(&ident); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	if ident.ID == "" {
		return nil, ErrTokenInvalid
	}
	return &ident, nil
}

// IdentityWebhookEvent is the provider's user-sync event envelope.
type IdentityWebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// IdentityUserData is the user payload carried by user.* events.
type IdentityUserData struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
	EmailVerified   bool   `json:"email_verified"`
	UserID          string `json:"user_id"` // set on session.created
}
