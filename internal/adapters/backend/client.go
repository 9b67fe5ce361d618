// Package backend talks to the registration and deletion endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// RegisterUser calls POST /users. Any non-2xx answer is an error.
func (c *Client) RegisterUser(ctx context.Context, userID domain.UserID) error {
	if err := c.post(ctx, "/users", map[string]string{"userId": string(userID)}); err != nil {
		return fmt.Errorf("register %s: %w", userID, err)
	}
	return nil
}

// DeleteMessage calls POST /delete-message. The response body is ignored.
func (c *Client) DeleteMessage(ctx context.Context, req core.DeleteRequest) error {
	if err := c.post(ctx, "/delete-message", req); err != nil {
		return fmt.Errorf("delete %s: %w", req.MessageID, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
