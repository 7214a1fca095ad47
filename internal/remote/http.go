package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/kessler/pocketbook/internal/schema"
)

// HTTPClient talks to the pocketbook remote store over HTTP, with
// collection subscriptions over WebSocket.
//
// Wire layout:
//
//	PUT    /v1/{kind}/{id}   upsert document (JSON body)
//	DELETE /v1/{kind}/{id}   delete document
//	GET    /v1/{kind}        full collection
//	GET    /v1/{kind}/watch  WebSocket; full-collection frame per change
//	GET    /health           reachability probe (no auth)
type HTTPClient struct {
	baseURL  string
	identity *Identity
	http     *http.Client
	logger   *log.Logger
}

// NewHTTPClient creates a client for the store at baseURL.
//
// identity may be nil (unauthenticated); calls will then be rejected
// by the server, which is fine because the sync manager checks
// authentication before draining. If logger is nil, a default logger
// writing to stderr is used.
func NewHTTPClient(baseURL string, identity *Identity, logger *log.Logger) *HTTPClient {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &HTTPClient{
		baseURL:  baseURL,
		identity: identity,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// SetIdentity swaps the bearer identity, e.g. after login.
func (c *HTTPClient) SetIdentity(identity *Identity) {
	c.identity = identity
}

func (c *HTTPClient) docURL(kind schema.Kind, id string) string {
	return fmt.Sprintf("%s/v1/%s/%s", c.baseURL, kind, id)
}

func (c *HTTPClient) do(req *http.Request) error {
	if c.identity != nil {
		req.Header.Set("Authorization", "Bearer "+c.identity.Token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}

// Upsert implements Client.Upsert.
func (c *HTTPClient) Upsert(ctx context.Context, kind schema.Kind, id string, payload json.RawMessage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.docURL(kind, id), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.do(req); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", kind, id, err)
	}
	return nil
}

// Delete implements Client.Delete.
func (c *HTTPClient) Delete(ctx context.Context, kind schema.Kind, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.docURL(kind, id), nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	if err := c.do(req); err != nil {
		return fmt.Errorf("delete %s/%s: %w", kind, id, err)
	}
	return nil
}

// List fetches the full collection for kind. Used by Listen for the
// initial snapshot and by import tooling.
func (c *HTTPClient) List(ctx context.Context, kind schema.Kind) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/%s", c.baseURL, kind), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}
	if c.identity != nil {
		req.Header.Set("Authorization", "Bearer "+c.identity.Token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list %s: server returned %d", kind, resp.StatusCode)
	}

	var records []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("list %s: failed to decode response: %w", kind, err)
	}
	return records, nil
}

// Ping implements Client.Ping by probing the unauthenticated health
// endpoint with a short deadline.
func (c *HTTPClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// Listen implements Client.Listen over a WebSocket subscription.
//
// Each frame from the server is the kind's full collection; onChange
// is called once per frame. The subscription ends when stop is called,
// ctx is cancelled, or the connection drops. There is no automatic
// reconnect; the daemon re-subscribes on the next online transition.
func (c *HTTPClient) Listen(ctx context.Context, kind schema.Kind, onChange ChangeFunc) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	wsURL := fmt.Sprintf("%s/v1/%s/watch", c.baseURL, kind)
	opts := &websocket.DialOptions{}
	if c.identity != nil {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + c.identity.Token}}
	}

	conn, _, err := websocket.Dial(ctx, wsURL, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %s changes: %w", kind, err)
	}

	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "done")
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					c.logger.Printf("Subscription to %s closed: %v", kind, err)
				}
				return
			}

			var records []json.RawMessage
			if err := json.Unmarshal(data, &records); err != nil {
				c.logger.Printf("Warning: bad change frame for %s: %v", kind, err)
				continue
			}
			onChange(records)
		}
	}()

	return cancel, nil
}
