// Package client talks to the admin API. It attaches the stored credential,
// decodes the {success, data, message} envelope and turns every failure into
// a *errors.NormalizedError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rawlogin/adminctl/internal/session"
	"github.com/rawlogin/adminctl/pkg/api"
	apperrors "github.com/rawlogin/adminctl/pkg/errors"
	"github.com/rawlogin/adminctl/pkg/events"
	"github.com/rawlogin/adminctl/pkg/logger"
)

// DefaultTimeout bounds every call when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL       string
	AuthMode      string
	SessionCookie string
	Timeout       time.Duration
}

// Client represents the API client for the admin service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       AuthScheme
	store      session.Store
	publisher  events.Publisher
	logger     *logger.Logger
}

// New creates a new API client. publisher may be nil when nobody listens for
// session notifications.
func New(cfg Config, store session.Store, publisher events.Publisher, log *logger.Logger) (*Client, error) {
	if store == nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeConfiguration, "session store is required", false, nil)
	}
	if log == nil {
		log = logger.NewNop()
	}

	auth, err := newAuthScheme(cfg.AuthMode, cfg.SessionCookie)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		auth:      auth,
		store:     store,
		publisher: publisher,
		logger:    log.WithComponent("client"),
	}, nil
}

// Auth returns the auth scheme selected by the configured auth mode.
func (c *Client) Auth() AuthScheme {
	return c.auth
}

// Store returns the session store the client reads credentials from.
func (c *Client) Store() session.Store {
	return c.store
}

// Do sends r and decodes the response envelope. 2xx answers are returned even
// when the envelope says success=false. Any other outcome is returned as a
// *errors.NormalizedError; a 401 also clears the session store and publishes
// a session.expired event.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	ctx = logger.WithOperation(ctx, r.Method+" "+r.Path)

	req, err := c.newHTTPRequest(ctx, r)
	if err != nil {
		return nil, c.fail(ctx, apperrors.NewNormalizedError(apperrors.KindUnknown, 0, err.Error(), err))
	}

	credential, err := c.store.Get()
	if err != nil {
		return nil, c.fail(ctx, apperrors.NewNormalizedError(apperrors.KindUnknown, 0,
			fmt.Sprintf("failed to read stored credential: %v", err), err))
	}
	if credential != "" {
		c.auth.attach(req, credential)
	}

	c.logger.Trace("making API request", "method", r.Method, "url", req.URL.String(), "authenticated", credential != "")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(ctx, apperrors.NewNormalizedError(apperrors.KindNetworkError, 0, "", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(ctx, apperrors.NewNormalizedError(apperrors.KindNetworkError, resp.StatusCode, "", err))
	}
	c.logger.HTTPRequest(ctx, r.Method, r.Path, resp.StatusCode, time.Since(start))

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Cookies:    resp.Cookies(),
	}
	decodeErr := decodeEnvelope(body, &out.Envelope)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if decodeErr != nil {
			return nil, c.fail(ctx, decodeError(resp.StatusCode, decodeErr))
		}
		return out, nil

	case resp.StatusCode >= 400:
		var message string
		if decodeErr == nil {
			message = out.Envelope.Message
		}
		normErr := apperrors.NewNormalizedError(apperrors.KindForStatus(resp.StatusCode), resp.StatusCode, message, nil)
		if normErr.Kind == apperrors.KindUnauthorized {
			c.expireSession(ctx, r, normErr.Message)
		}
		return nil, c.fail(ctx, normErr)

	default:
		return nil, c.fail(ctx, apperrors.NewNormalizedError(apperrors.KindUnknown, resp.StatusCode,
			fmt.Sprintf("unexpected response status %d", resp.StatusCode), nil))
	}
}

// Call sends a request and decodes the envelope data into T.
func Call[T any](ctx context.Context, c *Client, method, path string, opts ...Option) (*api.Result[T], error) {
	resp, err := c.Do(ctx, NewRequest(method, path, opts...))
	if err != nil {
		return nil, err
	}
	return Decode[T](resp)
}

// Decode converts a raw response into a typed result.
func Decode[T any](resp *Response) (*api.Result[T], error) {
	result := &api.Result[T]{
		Success: resp.Envelope.Success,
		Message: resp.Envelope.Message,
	}
	if hasData(resp.Envelope.Data) {
		if err := json.Unmarshal(resp.Envelope.Data, &result.Data); err != nil {
			return nil, decodeError(resp.StatusCode, err)
		}
	}
	return result, nil
}

// expireSession drops the stored credential and tells subscribers the
// session is gone. Failures here are logged, never returned: the caller
// still gets the Unauthorized error.
func (c *Client) expireSession(ctx context.Context, r Request, message string) {
	if err := c.store.Clear(); err != nil {
		c.logger.ErrorCtx(ctx, "failed to clear expired credential", err)
	}

	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, events.NewSessionExpired(r.Method, r.Path, message)); err != nil {
		c.logger.ErrorCtx(ctx, "failed to publish session expiry", err)
	}
}

func (c *Client) fail(ctx context.Context, err *apperrors.NormalizedError) *apperrors.NormalizedError {
	c.logger.ErrorCtx(ctx, "API request failed", err)
	return err
}

func decodeEnvelope(body []byte, env *api.Result[json.RawMessage]) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("empty response body")
	}
	return json.Unmarshal(body, env)
}

func decodeError(status int, err error) *apperrors.NormalizedError {
	return apperrors.NewNormalizedError(apperrors.KindUnknown, status,
		fmt.Sprintf("failed to decode API response: %v", err), err)
}

func hasData(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
