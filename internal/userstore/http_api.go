package userstore

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	httpclient "github.com/appleboy/go-httpclient"

	"github.com/go-sessionguard/sessionguard/internal/config"
	"github.com/go-sessionguard/sessionguard/internal/models"
)

// HTTPAPIUserStore resolves subjects against an upstream user API
type HTTPAPIUserStore struct {
	config *config.Config
	client *http.Client
}

// NewHTTPAPIUserStore creates an HTTP API-backed user store
func NewHTTPAPIUserStore(cfg *config.Config) *HTTPAPIUserStore {
	// #nosec G402 -- InsecureSkipVerify is user-configurable for development/testing
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.UserAPIInsecureSkipVerify,
		},
	}

	// Create HTTP client with automatic authentication. The per-request
	// deadline comes from the caller's context, not the client timeout.
	client := httpclient.NewAuthClient(
		cfg.UserAPIAuthMode,
		cfg.UserAPIAuthSecret,
		httpclient.WithTimeout(30*time.Second),
		httpclient.WithTransport(transport),
		httpclient.WithHeaderName(cfg.UserAPIAuthHeader),
	)

	return &HTTPAPIUserStore{
		config: cfg,
		client: client,
	}
}

// APIUserResponse is the expected response from the upstream user API
type APIUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
	Message  string `json:"message,omitempty"`
}

// FindByID fetches the account from the upstream API
func (p *HTTPAPIUserStore) FindByID(ctx context.Context, subject string) (*models.User, error) {
	url := fmt.Sprintf("%s/users/%s", p.config.UserAPIURL, subject)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	// Authentication headers are automatically added by the HTTP client
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUserNotFound
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response", ErrUpstream)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Limit body preview to 200 characters to avoid overwhelming logs
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		return nil, fmt.Errorf("%w: HTTP %d - %s", ErrUpstream, resp.StatusCode, bodyPreview)
	}

	var apiUser APIUserResponse
	if err := json.Unmarshal(body, &apiUser); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if apiUser.ID == "" {
		return nil, fmt.Errorf("%w: upstream returned a user without an id", ErrUpstream)
	}

	role := apiUser.Role
	if role == "" {
		role = "user"
	}

	return &models.User{
		ID:       apiUser.ID,
		Username: apiUser.Username,
		Email:    apiUser.Email,
		Role:     role,
		IsActive: apiUser.IsActive,
	}, nil
}

// Name returns store name for logging
func (p *HTTPAPIUserStore) Name() string {
	return "http_api"
}
