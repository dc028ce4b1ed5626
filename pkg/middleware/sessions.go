package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrInvalidSession is returned when the identity service rejects a token.
var ErrInvalidSession = errors.New("invalid session")

// HTTPSessionValidator validates bearer tokens against a central identity
// service. The service receives the token and answers with the principal it
// belongs to, or 401 when the session is unknown or expired.
type HTTPSessionValidator struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSessionValidator creates a validator for the given introspection
// endpoint.
func NewHTTPSessionValidator(endpoint string) *HTTPSessionValidator {
	return &HTTPSessionValidator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Validate sends the token to the identity service and decodes the
// principal from the response.
func (v *HTTPSessionValidator) Validate(ctx context.Context, token string) (*Principal, error) {
	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, fmt.Errorf("failed to encode introspection request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session introspection failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var principal Principal
		if err := json.NewDecoder(resp.Body).Decode(&principal); err != nil {
			return nil, fmt.Errorf("failed to decode principal: %w", err)
		}
		if principal.ID == "" {
			return nil, fmt.Errorf("identity service returned a principal without an id")
		}
		return &principal, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidSession
	default:
		return nil, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}
}
