package console

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rawlogin/adminctl/internal/client"
	"github.com/rawlogin/adminctl/pkg/api"
)

func (c *Console) ListRoles(ctx context.Context) (*api.Result[[]api.Role], error) {
	return client.Call[[]api.Role](ctx, c.client, http.MethodGet, "/api/roles/list")
}

func (c *Console) GetRole(ctx context.Context, id int) (*api.Result[api.Role], error) {
	return client.Call[api.Role](ctx, c.client, http.MethodGet, fmt.Sprintf("/api/roles/%d", id))
}

// SearchRoles filters roles by name, code, status and built-in flag.
func (c *Console) SearchRoles(ctx context.Context, filter api.RoleFilter) (*api.Result[[]api.Role], error) {
	opts := []client.Option{
		client.WithQuery("name", filter.Name),
		client.WithQuery("code", filter.Code),
	}
	if filter.Status != nil {
		opts = append(opts, client.WithQuery("status", strconv.Itoa(*filter.Status)))
	}
	if filter.BuiltIn != nil {
		opts = append(opts, client.WithQuery("builtIn", strconv.FormatBool(*filter.BuiltIn)))
	}
	return client.Call[[]api.Role](ctx, c.client, http.MethodGet, "/api/roles/search", opts...)
}

// ListPermissions returns the permission codes a role can be granted.
func (c *Console) ListPermissions(ctx context.Context) (*api.Result[[]api.Permission], error) {
	return client.Call[[]api.Permission](ctx, c.client, http.MethodGet, "/api/roles/permissions")
}

func (c *Console) CreateRole(ctx context.Context, req api.RoleRequest) (*api.Result[api.Role], error) {
	return client.Call[api.Role](ctx, c.client, http.MethodPost, "/api/roles/create", client.WithJSON(req))
}

func (c *Console) UpdateRole(ctx context.Context, id int, req api.RoleRequest) (*api.Result[api.Role], error) {
	return client.Call[api.Role](ctx, c.client, http.MethodPut, fmt.Sprintf("/api/roles/%d", id), client.WithJSON(req))
}

func (c *Console) DeleteRole(ctx context.Context, id int) (*api.Result[api.Empty], error) {
	return client.Call[api.Empty](ctx, c.client, http.MethodDelete, fmt.Sprintf("/api/roles/%d", id))
}

// BatchDeleteRoles deletes several roles in one call. Like BatchDeleteUsers
// the body is a bare JSON array.
func (c *Console) BatchDeleteRoles(ctx context.Context, ids []int) (*api.Result[api.Empty], error) {
	if ids == nil {
		ids = []int{}
	}
	return client.Call[api.Empty](ctx, c.client, http.MethodDelete, "/api/roles/batch", client.WithJSON(ids))
}

// User-role assignments.

func (c *Console) UserRoles(ctx context.Context, userID int) (*api.Result[[]api.Role], error) {
	return client.Call[[]api.Role](ctx, c.client, http.MethodGet, fmt.Sprintf("/api/user-roles/user/%d", userID))
}

// AssignRoles replaces the roles of a user with roleIDs.
func (c *Console) AssignRoles(ctx context.Context, userID int, roleIDs []int) (*api.Result[api.Empty], error) {
	if roleIDs == nil {
		roleIDs = []int{}
	}
	return client.Call[api.Empty](ctx, c.client, http.MethodPost, fmt.Sprintf("/api/user-roles/user/%d/assign", userID),
		client.WithJSON(api.AssignRolesRequest{RoleIDs: roleIDs}))
}

func (c *Console) RemoveAllRoles(ctx context.Context, userID int) (*api.Result[api.Empty], error) {
	return client.Call[api.Empty](ctx, c.client, http.MethodDelete, fmt.Sprintf("/api/user-roles/user/%d", userID))
}

func (c *Console) RemoveRole(ctx context.Context, userID, roleID int) (*api.Result[api.Empty], error) {
	return client.Call[api.Empty](ctx, c.client, http.MethodDelete,
		fmt.Sprintf("/api/user-roles/user/%d/role/%d", userID, roleID))
}

func (c *Console) HasRole(ctx context.Context, userID int, roleCode string) (*api.Result[bool], error) {
	return client.Call[bool](ctx, c.client, http.MethodGet,
		fmt.Sprintf("/api/user-roles/user/%d/check/%s", userID, url.PathEscape(roleCode)))
}

func (c *Console) UserIDsForRole(ctx context.Context, roleID int) (*api.Result[[]int], error) {
	return client.Call[[]int](ctx, c.client, http.MethodGet, fmt.Sprintf("/api/user-roles/role/%d/users", roleID))
}

func (c *Console) RoleCodes(ctx context.Context, userID int) (*api.Result[[]string], error) {
	return client.Call[[]string](ctx, c.client, http.MethodGet, fmt.Sprintf("/api/user-roles/user/%d/codes", userID))
}
