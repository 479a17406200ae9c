package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rawlogin/adminctl/pkg/api"
	apperrors "github.com/rawlogin/adminctl/pkg/errors"
)

// DefaultSessionCookie is the cookie carrying the session in cookie mode.
const DefaultSessionCookie = "JSESSIONID"

// AuthScheme holds everything that differs between the bearer and cookie
// auth modes: how a credential is attached, how a login is sent and where the
// credential comes back, and the session endpoint paths.
type AuthScheme struct {
	mode       string
	cookieName string

	LoginPath       string
	CurrentUserPath string
	LogoutPath      string
}

func newAuthScheme(mode, cookieName string) (AuthScheme, error) {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}

	switch mode {
	case api.AuthModeBearer, "":
		return AuthScheme{
			mode:            api.AuthModeBearer,
			cookieName:      cookieName,
			LoginPath:       "/api/auth/login",
			CurrentUserPath: "/api/auth/current",
			LogoutPath:      "/api/auth/logout",
		}, nil
	case api.AuthModeCookie:
		return AuthScheme{
			mode:            api.AuthModeCookie,
			cookieName:      cookieName,
			LoginPath:       "/api/ajax-login",
			CurrentUserPath: "/api/user/current",
			LogoutPath:      "/api/user/logout",
		}, nil
	default:
		return AuthScheme{}, apperrors.NewSystemError(apperrors.ErrCodeConfiguration,
			fmt.Sprintf("unknown auth mode %q", mode), false, nil)
	}
}

// Mode returns the configured auth mode.
func (a AuthScheme) Mode() string {
	return a.mode
}

func (a AuthScheme) attach(req *http.Request, credential string) {
	if a.mode == api.AuthModeCookie {
		req.AddCookie(&http.Cookie{Name: a.cookieName, Value: credential})
		return
	}
	req.Header.Set("Authorization", "Bearer "+credential)
}

// LoginRequest builds the login call: a JSON body in bearer mode, a form body
// in cookie mode.
func (a AuthScheme) LoginRequest(req api.LoginRequest) Request {
	if a.mode == api.AuthModeCookie {
		form := url.Values{}
		form.Set("username", req.Username)
		form.Set("password", req.Password)
		form.Set("remember", strconv.FormatBool(req.Remember))
		return NewRequest(http.MethodPost, a.LoginPath, WithForm(form))
	}
	return NewRequest(http.MethodPost, a.LoginPath, WithJSON(req))
}

// LoginResult decodes a login response. In bearer mode the credential is the
// token in data. In cookie mode the credential is the session cookie set by
// the response; data, when the server sends any, is the user.
func (a AuthScheme) LoginResult(resp *Response) (*api.Result[api.LoginData], error) {
	result := &api.Result[api.LoginData]{
		Success: resp.Envelope.Success,
		Message: resp.Envelope.Message,
	}

	if a.mode == api.AuthModeCookie {
		if cookie := resp.Cookie(a.cookieName); cookie != nil {
			result.Data.Token = cookie.Value
		}
		if hasData(resp.Envelope.Data) {
			var user api.User
			if err := json.Unmarshal(resp.Envelope.Data, &user); err != nil {
				return nil, decodeError(resp.StatusCode, err)
			}
			result.Data.User = &user
		}
		return result, nil
	}

	if hasData(resp.Envelope.Data) {
		if err := json.Unmarshal(resp.Envelope.Data, &result.Data); err != nil {
			return nil, decodeError(resp.StatusCode, err)
		}
	}
	return result, nil
}
