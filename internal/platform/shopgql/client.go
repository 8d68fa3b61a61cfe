package shopgql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopglot/shopglot-api/internal/config"
	"github.com/shopglot/shopglot-api/internal/redact"
	"github.com/shopglot/shopglot-api/internal/translation"
)

// accessTokenHeader carries the admin API credential on every request.
const accessTokenHeader = "X-Shopify-Access-Token"

// Common errors returned by the Client
var (
	ErrEmptyEndpoint = errors.New("graphql endpoint cannot be empty")
	ErrEmptyToken    = errors.New("access token cannot be empty")
)

// Client is a GraphQL-over-HTTP client for the remote content API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	logger     *slog.Logger
}

// NewClient creates a content API client from the shop configuration.
func NewClient(cfg config.ShopConfig, logger *slog.Logger) (*Client, error) {
	if cfg.GraphQLEndpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	if cfg.AccessToken == "" {
		return nil, ErrEmptyToken
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		endpoint:   cfg.GraphQLEndpoint,
		token:      cfg.AccessToken,
		logger:     logger.With(slog.String("component", "shopgql_client")),
	}, nil
}

// Ensure Client implements translation.ContentGateway
var _ translation.ContentGateway = (*Client)(nil)

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// execute posts one GraphQL operation and decodes the data payload into
// out. GraphQL-level errors are joined into a single Go error carrying
// the human-readable messages.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accessTokenHeader, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("graphql request failed", "error", redact.Error(err))
		return fmt.Errorf("graphql request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("graphql request returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var envelope graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode graphql response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, gqlErr := range envelope.Errors {
			messages = append(messages, gqlErr.Message)
		}
		return fmt.Errorf("graphql errors: %s", strings.Join(messages, "; "))
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode graphql data: %w", err)
		}
	}

	return nil
}
