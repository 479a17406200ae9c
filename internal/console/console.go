// Package console is the domain facade over the admin API: one method per
// endpoint plus the local session lifecycle (login, logout, resume).
package console

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/rawlogin/adminctl/internal/client"
	"github.com/rawlogin/adminctl/internal/session"
	"github.com/rawlogin/adminctl/pkg/api"
	apperrors "github.com/rawlogin/adminctl/pkg/errors"
	"github.com/rawlogin/adminctl/pkg/events"
	"github.com/rawlogin/adminctl/pkg/logger"
)

// State is the local view of the session.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Console wraps the API client with typed endpoint methods. Errors from the
// client are returned unchanged.
type Console struct {
	client *client.Client
	store  session.Store
	bus    events.EventBus
	logger *logger.Logger

	mu          sync.RWMutex
	state       State
	user        *api.User
	unsubscribe events.UnsubscribeFunc
}

// New creates a Console. When bus is non-nil the console listens for
// session.expired so a 401 on any call drops it back to anonymous.
func New(c *client.Client, bus events.EventBus, log *logger.Logger) (*Console, error) {
	if log == nil {
		log = logger.NewNop()
	}

	con := &Console{
		client: c,
		store:  c.Store(),
		bus:    bus,
		logger: log.WithComponent("console"),
	}

	if bus != nil {
		unsub, err := events.OnSessionExpired(bus, func(ctx context.Context, e *events.SessionEvent) {
			con.logger.Debug("session expired", "method", e.Method, "path", e.Path)
			con.setState(StateAnonymous, nil)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to subscribe to session events: %w", err)
		}
		con.unsubscribe = unsub
	}

	return con, nil
}

// Close stops listening for session events.
func (c *Console) Close() error {
	if c.unsubscribe != nil {
		return c.unsubscribe()
	}
	return nil
}

// State returns the current session state.
func (c *Console) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// User returns the user of the current session, if known.
func (c *Console) User() *api.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Console) setState(state State, user *api.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	if state == StateAnonymous {
		c.user = nil
	} else if user != nil {
		c.user = user
	}
}

func (c *Console) publish(ctx context.Context, event events.Event) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(ctx, event); err != nil {
		c.logger.ErrorCtx(ctx, "failed to publish session event", err, "event_type", event.Type())
	}
}

// Login authenticates with the configured auth mode. On success with a
// credential present, the credential is stored and the state becomes
// authenticated. remember is passed to the server as is.
func (c *Console) Login(ctx context.Context, username, password string, remember bool) (*api.Result[api.LoginData], error) {
	ctx = logger.WithOperation(ctx, "login")
	auth := c.client.Auth()

	resp, err := c.client.Do(ctx, auth.LoginRequest(api.LoginRequest{
		Username: username,
		Password: password,
		Remember: remember,
	}))
	if err != nil {
		return nil, err
	}

	result, err := auth.LoginResult(resp)
	if err != nil {
		return nil, err
	}

	if result.Success && result.Data.Token != "" {
		if err := c.store.Set(result.Data.Token); err != nil {
			return nil, apperrors.NewNormalizedError(apperrors.KindUnknown, 0,
				fmt.Sprintf("failed to store credential: %v", err), err)
		}

		user := result.Data.User
		if user == nil {
			user = &api.User{Username: username}
		}
		c.setState(StateAuthenticated, user)
		c.publish(ctx, events.NewSessionEstablished(user.Username))
		c.logger.Info("logged in", "username", user.Username, "auth_mode", auth.Mode())
	}

	return result, nil
}

// Register creates a new account. It does not log in.
func (c *Console) Register(ctx context.Context, username, password, email string) (*api.Result[api.User], error) {
	return client.Call[api.User](ctx, c.client, http.MethodPost, "/api/auth/register",
		client.WithJSON(api.RegisterRequest{Username: username, Password: password, Email: email}))
}

// CurrentUser fetches the user owning the stored credential.
func (c *Console) CurrentUser(ctx context.Context) (*api.Result[api.User], error) {
	return client.Call[api.User](ctx, c.client, http.MethodGet, c.client.Auth().CurrentUserPath)
}

// Logout ends the session on the server. The stored credential is cleared
// and the state becomes anonymous whether or not the call succeeds; the
// call's error, if any, is still returned.
func (c *Console) Logout(ctx context.Context) (*api.Result[api.Empty], error) {
	ctx = logger.WithOperation(ctx, "logout")

	result, callErr := client.Call[api.Empty](ctx, c.client, http.MethodPost, c.client.Auth().LogoutPath)

	if err := c.store.Clear(); err != nil {
		c.logger.ErrorCtx(ctx, "failed to clear credential", err)
	}
	c.setState(StateAnonymous, nil)
	c.publish(ctx, events.NewSessionEnded())

	return result, callErr
}

// Resume restores the session from a stored credential. The state is
// authenticated while the current user is fetched, and demoted to anonymous
// when that fails or the server answers success=false. The stored credential
// is kept after a network failure and dropped otherwise.
func (c *Console) Resume(ctx context.Context) (State, error) {
	credential, err := c.store.Get()
	if err != nil {
		c.setState(StateAnonymous, nil)
		return StateAnonymous, apperrors.NewNormalizedError(apperrors.KindUnknown, 0,
			fmt.Sprintf("failed to read stored credential: %v", err), err)
	}
	if credential == "" {
		c.setState(StateAnonymous, nil)
		return StateAnonymous, nil
	}

	c.setState(StateAuthenticated, nil)

	result, err := c.CurrentUser(ctx)
	if err != nil {
		c.setState(StateAnonymous, nil)
		if !apperrors.IsKind(err, apperrors.KindNetworkError) {
			c.dropCredential(ctx)
		}
		return StateAnonymous, err
	}
	if !result.Success {
		c.setState(StateAnonymous, nil)
		c.dropCredential(ctx)
		return StateAnonymous, nil
	}

	user := result.Data
	c.setState(StateAuthenticated, &user)
	return StateAuthenticated, nil
}

func (c *Console) dropCredential(ctx context.Context) {
	if err := c.store.Clear(); err != nil {
		c.logger.ErrorCtx(ctx, "failed to clear stale credential", err)
	}
}
