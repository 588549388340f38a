package spotify

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// AccessTokenClient obtains an access token using the client-credentials
// grant against the accounts endpoint.
type AccessTokenClient struct {
	client       *resty.Client
	clientID     string
	clientSecret string
	tokenURL     string
}

// NewAccessTokenClient creates a token client.
// Parameters:
//   - clientID: application client id.
//   - clientSecret: application client secret.
//   - tokenURL: accounts token endpoint.
// Returns:
//   - *AccessTokenClient: initialized token client.
func NewAccessTokenClient(clientID, clientSecret, tokenURL string) *AccessTokenClient {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &AccessTokenClient{
		client:       client,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AccessToken fetches a fresh access token.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - string: bearer token for API requests.
//   - error: non-nil if the token request fails or is rejected.
func (c *AccessTokenClient) AccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))

	var token tokenResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Basic "+auth).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&token).
		Post(c.tokenURL)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("token request rejected: %d - %s", resp.StatusCode(), resp.String())
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return token.AccessToken, nil
}
