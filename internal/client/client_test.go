package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawlogin/adminctl/internal/session"
	"github.com/rawlogin/adminctl/pkg/api"
	apperrors "github.com/rawlogin/adminctl/pkg/errors"
	"github.com/rawlogin/adminctl/pkg/events"
	"github.com/rawlogin/adminctl/pkg/logger"
)

func writeEnvelope(w http.ResponseWriter, status int, success bool, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"data":    data,
		"message": message,
	})
}

func newTestClient(t *testing.T, baseURL string, mode string, store session.Store, pub events.Publisher) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, AuthMode: mode, Timeout: time.Second}, store, pub, nil)
	require.NoError(t, err)
	return c
}

type failingStore struct{}

func (failingStore) Get() (string, error) { return "", errors.New("keyring locked") }
func (failingStore) Set(string) error     { return nil }
func (failingStore) Clear() error         { return nil }

func TestCredentialAttachment(t *testing.T) {
	var gotAuth, gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCookie = ""
		if c, err := r.Cookie("JSESSIONID"); err == nil {
			gotCookie = c.Value
		}
		writeEnvelope(w, http.StatusOK, true, nil, "")
	}))
	defer server.Close()

	paths := []string{"/api/users", "/api/roles/list", "/api/user-roles/user/1"}

	t.Run("bearer with credential", func(t *testing.T) {
		store := session.NewMemoryStore()
		require.NoError(t, store.Set("abc"))
		c := newTestClient(t, server.URL, api.AuthModeBearer, store, nil)

		for _, path := range paths {
			_, err := c.Do(context.Background(), NewRequest(http.MethodGet, path))
			require.NoError(t, err)
			assert.Equal(t, "Bearer abc", gotAuth, path)
			assert.Empty(t, gotCookie, path)
		}
	})

	t.Run("bearer without credential", func(t *testing.T) {
		c := newTestClient(t, server.URL, api.AuthModeBearer, session.NewMemoryStore(), nil)

		for _, path := range paths {
			_, err := c.Do(context.Background(), NewRequest(http.MethodGet, path))
			require.NoError(t, err)
			assert.Empty(t, gotAuth, path)
		}
	})

	t.Run("cookie with credential", func(t *testing.T) {
		store := session.NewMemoryStore()
		require.NoError(t, store.Set("sess-1"))
		c := newTestClient(t, server.URL, api.AuthModeCookie, store, nil)

		_, err := c.Do(context.Background(), NewRequest(http.MethodGet, "/api/users"))
		require.NoError(t, err)
		assert.Equal(t, "sess-1", gotCookie)
		assert.Empty(t, gotAuth)
	})

	t.Run("cookie without credential", func(t *testing.T) {
		c := newTestClient(t, server.URL, api.AuthModeCookie, session.NewMemoryStore(), nil)

		_, err := c.Do(context.Background(), NewRequest(http.MethodGet, "/api/users"))
		require.NoError(t, err)
		assert.Empty(t, gotCookie)
	})
}

func TestUnauthorizedClearsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, false, nil, "")
	}))
	defer server.Close()

	for _, path := range []string{"/api/users", "/api/roles/3", "/api/auth/current"} {
		t.Run(path, func(t *testing.T) {
			store := session.NewMemoryStore()
			require.NoError(t, store.Set("stale"))

			bus := events.NewEventBus(nil)
			defer bus.Close()

			var expired []*events.SessionEvent
			_, err := events.OnSessionExpired(bus, func(ctx context.Context, e *events.SessionEvent) {
				expired = append(expired, e)
			})
			require.NoError(t, err)

			c := newTestClient(t, server.URL, api.AuthModeBearer, store, bus)
			_, err = c.Do(context.Background(), NewRequest(http.MethodDelete, path))

			var normErr *apperrors.NormalizedError
			require.ErrorAs(t, err, &normErr)
			assert.Equal(t, apperrors.KindUnauthorized, normErr.Kind)
			assert.Equal(t, apperrors.MsgUnauthorized, normErr.Message)
			assert.Equal(t, http.StatusUnauthorized, normErr.Status)

			cred, err := store.Get()
			require.NoError(t, err)
			assert.Empty(t, cred)

			require.Len(t, expired, 1)
			assert.Equal(t, http.MethodDelete, expired[0].Method)
			assert.Equal(t, path, expired[0].Path)
		})
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		message     string
		wantKind    apperrors.Kind
		wantMessage string
	}{
		{"forbidden", http.StatusForbidden, "", apperrors.KindForbidden, apperrors.MsgForbidden},
		{"not found", http.StatusNotFound, "", apperrors.KindNotFound, apperrors.MsgNotFound},
		{"server error", http.StatusInternalServerError, "", apperrors.KindServerError, apperrors.MsgServerError},
		{"bad gateway", http.StatusBadGateway, "", apperrors.KindServerError, apperrors.MsgServerError},
		{"client error default", http.StatusConflict, "", apperrors.KindClientError, "request failed (409)"},
		{"server message wins", http.StatusBadRequest, "duplicate username", apperrors.KindClientError, "duplicate username"},
		{"server message on 403", http.StatusForbidden, "admins only", apperrors.KindForbidden, "admins only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tt.status, false, nil, tt.message)
			}))
			defer server.Close()

			store := session.NewMemoryStore()
			require.NoError(t, store.Set("abc"))
			c := newTestClient(t, server.URL, api.AuthModeBearer, store, nil)

			_, err := c.Do(context.Background(), NewRequest(http.MethodPost, "/api/users"))

			var normErr *apperrors.NormalizedError
			require.ErrorAs(t, err, &normErr)
			assert.Equal(t, tt.wantKind, normErr.Kind)
			assert.Equal(t, tt.wantMessage, normErr.Message)
			assert.Equal(t, tt.status, normErr.Status)

			// only a 401 drops the credential
			cred, _ := store.Get()
			assert.Equal(t, "abc", cred)
		})
	}

	t.Run("non-json error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "<html>gateway</html>", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, api.AuthModeBearer, session.NewMemoryStore(), nil)
		_, err := c.Do(context.Background(), NewRequest(http.MethodGet, "/api/users"))

		assert.True(t, apperrors.IsKind(err, apperrors.KindServerError))
		assert.Equal(t, apperrors.MsgServerError, err.Error())
	})
}

func TestClientErrorsAreLogged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, false, nil, "user not found")
	}))
	defer server.Close()

	var buf bytes.Buffer
	log := logger.New(logger.LoggerConfig{Level: logger.LevelWarn, Format: logger.FormatJSON, Output: &buf})
	c, err := New(Config{BaseURL: server.URL}, session.NewMemoryStore(), nil, log)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), NewRequest(http.MethodGet, "/api/users/9"))
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "API request failed")
	assert.Contains(t, out, `"error_code":"not_found"`)
	assert.Contains(t, out, `"operation":"GET /api/users/9"`)
}

func TestSuccessFalseIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, nil, "role is in use")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, api.AuthModeBearer, session.NewMemoryStore(), nil)
	result, err := Call[api.Empty](context.Background(), c, http.MethodDelete, "/api/roles/2")

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "role is in use", result.Message)
}

func TestCallDecodesData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, []map[string]any{
			{"id": 1, "username": "alice", "role": "ADMIN"},
			{"id": 2, "username": "bob", "role": "USER"},
		}, "")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, api.AuthModeBearer, session.NewMemoryStore(), nil)
	result, err := Call[[]api.User](context.Background(), c, http.MethodGet, "/api/users")

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "bob", result.Data[1].Username)
}

func TestUndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, api.AuthModeBearer, session.NewMemoryStore(), nil)
	_, err := c.Do(context.Background(), NewRequest(http.MethodGet, "/api/users"))

	assert.True(t, apperrors.IsKind(err, apperrors.KindUnknown))
	assert.Contains(t, err.Error(), "failed to decode API response")
}

func TestDataTypeMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, "not-a-user", "")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, api.AuthModeBearer, session.NewMemoryStore(), nil)
	_, err := Call[api.User](context.Background(), c, http.MethodGet, "/api/users/1")

	assert.True(t, apperrors.IsKind(err, apperrors.KindUnknown))
}

func TestNetworkErrors(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		c, err := New(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, session.NewMemoryStore(), nil, nil)
		require.NoError(t, err)

		_, err = c.Do(context.Background(), NewRequest(http.MethodGet, "/api/users"))

		var normErr *apperrors.NormalizedError
		require.ErrorAs(t, err, &normErr)
		assert.Equal(t, apperrors.KindNetworkError, normErr.Kind)
		assert.Equal(t, apperrors.MsgNetworkError, normErr.Message)
		assert.Zero(t, normErr.Status)
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		c := newTestClient(t, url, api.AuthModeBearer, session.NewMemoryStore(), nil)
		_, err := c.Do(context.Background(), NewRequest(http.MethodGet, "/api/users"))

		assert.True(t, apperrors.IsKind(err, apperrors.KindNetworkError))
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, true, nil, "")
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := newTestClient(t, server.URL, api.AuthModeBearer, session.NewMemoryStore(), nil)
		_, err := c.Do(ctx, NewRequest(http.MethodGet, "/api/users"))

		assert.True(t, apperrors.IsKind(err, apperrors.KindNetworkError))
	})
}

func TestStoreReadFailureAbortsCall(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		writeEnvelope(w, http.StatusOK, true, nil, "")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, api.AuthModeBearer, failingStore{}, nil)
	_, err := c.Do(context.Background(), NewRequest(http.MethodGet, "/api/users"))

	assert.True(t, apperrors.IsKind(err, apperrors.KindUnknown))
	assert.Contains(t, err.Error(), "keyring locked")
	assert.False(t, called)
}

func TestRequestEncoding(t *testing.T) {
	var gotQuery map[string][]string
	var gotContentType string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotContentType = r.Header.Get("Content-Type")
		gotBody = nil
		if r.Body != nil && gotContentType == "application/json" {
			json.NewDecoder(r.Body).Decode(&gotBody)
		}
		writeEnvelope(w, http.StatusOK, true, nil, "")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, api.AuthModeBearer, session.NewMemoryStore(), nil)

	t.Run("query omits empty values", func(t *testing.T) {
		_, err := c.Do(context.Background(), NewRequest(http.MethodGet, "/api/users/search",
			WithQuery("username", "bob"), WithQuery("role", "")))
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{"username": {"bob"}}, gotQuery)
	})

	t.Run("json body", func(t *testing.T) {
		_, err := c.Do(context.Background(), NewRequest(http.MethodPost, "/api/users",
			WithJSON(api.UserCreateRequest{Username: "carol", Password: "secret1"})))
		require.NoError(t, err)
		assert.Equal(t, "application/json", gotContentType)
		assert.Equal(t, "carol", gotBody["username"])
	})
}

func TestAuthScheme(t *testing.T) {
	t.Run("unknown mode", func(t *testing.T) {
		_, err := New(Config{BaseURL: "http://localhost", AuthMode: "oauth"}, session.NewMemoryStore(), nil, nil)
		assert.Error(t, err)
	})

	t.Run("store required", func(t *testing.T) {
		_, err := New(Config{BaseURL: "http://localhost"}, nil, nil, nil)
		assert.Error(t, err)
	})

	t.Run("endpoint paths", func(t *testing.T) {
		bearer, err := newAuthScheme(api.AuthModeBearer, "")
		require.NoError(t, err)
		assert.Equal(t, "/api/auth/login", bearer.LoginPath)
		assert.Equal(t, "/api/auth/current", bearer.CurrentUserPath)
		assert.Equal(t, "/api/auth/logout", bearer.LogoutPath)

		cookie, err := newAuthScheme(api.AuthModeCookie, "")
		require.NoError(t, err)
		assert.Equal(t, "/api/ajax-login", cookie.LoginPath)
		assert.Equal(t, "/api/user/current", cookie.CurrentUserPath)
		assert.Equal(t, "/api/user/logout", cookie.LogoutPath)
	})

	t.Run("cookie login reads set-cookie", func(t *testing.T) {
		var form map[string][]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			form = r.PostForm
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "sess-42", Path: "/"})
			writeEnvelope(w, http.StatusOK, true, map[string]any{"id": 7, "username": "alice"}, "login succeeded")
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, api.AuthModeCookie, session.NewMemoryStore(), nil)
		resp, err := c.Do(context.Background(), c.Auth().LoginRequest(api.LoginRequest{
			Username: "alice", Password: "secret1", Remember: true,
		}))
		require.NoError(t, err)

		result, err := c.Auth().LoginResult(resp)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "sess-42", result.Data.Token)
		require.NotNil(t, result.Data.User)
		assert.Equal(t, 7, result.Data.User.ID)

		assert.Equal(t, []string{"alice"}, form["username"])
		assert.Equal(t, []string{"true"}, form["remember"])
	})

	t.Run("cookie login without data", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "sess-1", Path: "/"})
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true,"message":"login ok"}`))
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, api.AuthModeCookie, session.NewMemoryStore(), nil)
		resp, err := c.Do(context.Background(), c.Auth().LoginRequest(api.LoginRequest{Username: "alice", Password: "secret1"}))
		require.NoError(t, err)

		result, err := c.Auth().LoginResult(resp)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "sess-1", result.Data.Token)
		assert.Nil(t, result.Data.User)
	})
}
