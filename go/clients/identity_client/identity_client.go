package identity_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/floraclash/floraclash/go/clients"
	"github.com/floraclash/floraclash/go/internal/gateway"
)

// IdentityClient exchanges session tokens for verified player identities
// against the external identity service. It implements
// gateway.IdentityVerifier.
type IdentityClient struct {
	*clients.BaseClient
}

// NewIdentityClient builds a client for the identity service at baseURL.
// serviceToken authenticates this backend to the verify endpoint; pass an
// empty string when the endpoint is open.
func NewIdentityClient(baseURL, serviceToken string) *IdentityClient {
	client := &IdentityClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader("Content-Type", "application/json")
	if serviceToken != "" {
		client.SetHeader("Authorization", "Bearer "+serviceToken)
	}

	return client
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}

// Verify resolves an opaque client token to the identity it belongs to.
func (c *IdentityClient) Verify(ctx context.Context, token string) (gateway.Identity, error) {
	body, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return gateway.Identity{}, fmt.Errorf("failed to marshal verify request: %w", err)
	}

	data, err := c.Post(ctx, "/v1/identity/verify", bytes.NewReader(body))
	if err != nil {
		return gateway.Identity{}, fmt.Errorf("identity verification failed: %w", err)
	}

	var resp verifyResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return gateway.Identity{}, fmt.Errorf("failed to parse verify response: %w", err)
	}

	playerID, err := uuid.Parse(resp.PlayerID)
	if err != nil {
		return gateway.Identity{}, fmt.Errorf("identity service returned invalid player id: %w", err)
	}

	return gateway.Identity{
		PlayerID: playerID,
		Username: resp.Username,
		Rating:   resp.Rating,
	}, nil
}
