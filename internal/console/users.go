package console

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rawlogin/adminctl/internal/client"
	"github.com/rawlogin/adminctl/pkg/api"
)

func (c *Console) ListUsers(ctx context.Context) (*api.Result[[]api.User], error) {
	return client.Call[[]api.User](ctx, c.client, http.MethodGet, "/api/users")
}

func (c *Console) GetUser(ctx context.Context, id int) (*api.Result[api.User], error) {
	return client.Call[api.User](ctx, c.client, http.MethodGet, fmt.Sprintf("/api/users/%d", id))
}

func (c *Console) CreateUser(ctx context.Context, req api.UserCreateRequest) (*api.Result[api.User], error) {
	return client.Call[api.User](ctx, c.client, http.MethodPost, "/api/users", client.WithJSON(req))
}

func (c *Console) UpdateUser(ctx context.Context, id int, req api.UserUpdateRequest) (*api.Result[api.User], error) {
	return client.Call[api.User](ctx, c.client, http.MethodPut, fmt.Sprintf("/api/users/%d", id), client.WithJSON(req))
}

func (c *Console) DeleteUser(ctx context.Context, id int) (*api.Result[api.Empty], error) {
	return client.Call[api.Empty](ctx, c.client, http.MethodDelete, fmt.Sprintf("/api/users/%d", id))
}

// BatchDeleteUsers deletes several users in one call. The body is a bare JSON
// array of ids.
func (c *Console) BatchDeleteUsers(ctx context.Context, ids []int) (*api.Result[api.Empty], error) {
	if ids == nil {
		ids = []int{}
	}
	return client.Call[api.Empty](ctx, c.client, http.MethodDelete, "/api/users/batch", client.WithJSON(ids))
}

// SearchUsers filters users by username keyword and role code. Empty filters
// are left out of the query.
func (c *Console) SearchUsers(ctx context.Context, keyword, role string) (*api.Result[[]api.User], error) {
	return client.Call[[]api.User](ctx, c.client, http.MethodGet, "/api/users/search",
		client.WithQuery("username", keyword),
		client.WithQuery("role", role))
}
