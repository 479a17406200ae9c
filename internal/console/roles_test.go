package console

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawlogin/adminctl/internal/testserver"
	"github.com/rawlogin/adminctl/pkg/api"
	apperrors "github.com/rawlogin/adminctl/pkg/errors"
)

func TestRoleLifecycle(t *testing.T) {
	f := newFixture(t, api.AuthModeBearer)
	f.login(t, testserver.AdminUsername, testserver.AdminPassword)
	ctx := context.Background()

	created, err := f.console.CreateRole(ctx, api.RoleRequest{
		Name:        "Auditor",
		Code:        "AUDITOR",
		Permissions: []string{"user:read"},
	})
	require.NoError(t, err)
	require.True(t, created.Success)
	assert.Equal(t, "/api/roles/create", f.backend.LastRequest().Path)

	roles, err := f.console.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles.Data, 3)

	updated, err := f.console.UpdateRole(ctx, created.Data.ID, api.RoleRequest{Name: "Auditors", Code: "AUDITOR"})
	require.NoError(t, err)
	assert.Equal(t, "Auditors", updated.Data.Name)

	deleted, err := f.console.DeleteRole(ctx, created.Data.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Success)

	_, err = f.console.UpdateRole(ctx, created.Data.ID, api.RoleRequest{Name: "x", Code: "X"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestDeleteBuiltInRoleReturnsMessage(t *testing.T) {
	f := newFixture(t, api.AuthModeBearer)
	f.login(t, testserver.AdminUsername, testserver.AdminPassword)

	result, err := f.console.DeleteRole(context.Background(), 1)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "built-in roles cannot be deleted", result.Message)
}

func TestUserRoles(t *testing.T) {
	f := newFixture(t, api.AuthModeCookie)
	f.login(t, testserver.AdminUsername, testserver.AdminPassword)
	ctx := context.Background()

	alice, ok := f.backend.UserByName(testserver.UserUsername)
	require.True(t, ok)

	roles, err := f.console.UserRoles(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, roles.Data, 1)
	assert.Equal(t, "USER", roles.Data[0].Code)

	_, err = f.console.AssignRoles(ctx, alice.ID, []int{1, 2})
	require.NoError(t, err)
	var body map[string][]int
	require.NoError(t, json.Unmarshal(f.backend.LastRequest().Body, &body))
	assert.Equal(t, []int{1, 2}, body["roleIds"])

	has, err := f.console.HasRole(ctx, alice.ID, "ADMIN")
	require.NoError(t, err)
	assert.True(t, has.Data)

	codes, err := f.console.RoleCodes(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ADMIN", "USER"}, codes.Data)

	ids, err := f.console.UserIDsForRole(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, ids.Data, alice.ID)

	_, err = f.console.RemoveRole(ctx, alice.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "/api/user-roles/user/2/role/1", f.backend.LastRequest().Path)

	has, err = f.console.HasRole(ctx, alice.ID, "ADMIN")
	require.NoError(t, err)
	assert.False(t, has.Data)

	_, err = f.console.RemoveAllRoles(ctx, alice.ID)
	require.NoError(t, err)

	codes, err = f.console.RoleCodes(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, codes.Data)

	_, err = f.console.UserRoles(ctx, 999)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestRoleQueries(t *testing.T) {
	f := newFixture(t, api.AuthModeBearer)
	f.login(t, testserver.AdminUsername, testserver.AdminPassword)
	ctx := context.Background()

	role, err := f.console.GetRole(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", role.Data.Code)
	assert.Equal(t, "/api/roles/1", f.backend.LastRequest().Path)

	_, err = f.console.GetRole(ctx, 99)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	perms, err := f.console.ListPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, perms.Data, len(testserver.PermissionCodes))
	assert.Equal(t, "sys:user:list", perms.Data[0].Code)
	assert.Equal(t, "user", perms.Data[0].Category)
}

func TestSearchRolesQuery(t *testing.T) {
	active, builtIn := 1, false
	tests := []struct {
		name   string
		filter api.RoleFilter
		query  string
		codes  []string
	}{
		{"no filter", api.RoleFilter{}, "", []string{"ADMIN", "USER", "AUDITOR"}},
		{"code", api.RoleFilter{Code: "us"}, "code=us", []string{"USER"}},
		{"status and built-in", api.RoleFilter{Status: &active, BuiltIn: &builtIn}, "builtIn=false&status=1", []string{"AUDITOR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, api.AuthModeBearer)
			f.login(t, testserver.AdminUsername, testserver.AdminPassword)
			ctx := context.Background()

			_, err := f.console.CreateRole(ctx, api.RoleRequest{Name: "Auditor", Code: "AUDITOR"})
			require.NoError(t, err)

			result, err := f.console.SearchRoles(ctx, tt.filter)
			require.NoError(t, err)

			req := f.backend.LastRequest()
			assert.Equal(t, "/api/roles/search", req.Path)
			assert.Equal(t, tt.query, req.Query.Encode())

			codes := make([]string, 0, len(result.Data))
			for _, r := range result.Data {
				codes = append(codes, r.Code)
			}
			assert.Equal(t, tt.codes, codes)
		})
	}
}

func TestBatchDeleteRoles(t *testing.T) {
	f := newFixture(t, api.AuthModeBearer)
	f.login(t, testserver.AdminUsername, testserver.AdminPassword)
	ctx := context.Background()

	var ids []int
	for _, code := range []string{"AUDITOR", "SUPPORT"} {
		created, err := f.console.CreateRole(ctx, api.RoleRequest{Name: code, Code: code})
		require.NoError(t, err)
		ids = append(ids, created.Data.ID)
	}

	rejected, err := f.console.BatchDeleteRoles(ctx, []int{1, ids[0]})
	require.NoError(t, err)
	assert.False(t, rejected.Success)
	assert.Equal(t, "built-in roles cannot be deleted", rejected.Message)

	deleted, err := f.console.BatchDeleteRoles(ctx, ids)
	require.NoError(t, err)
	assert.True(t, deleted.Success)
	assert.Equal(t, "deleted 2 roles", deleted.Message)

	var body []int
	require.NoError(t, json.Unmarshal(f.backend.LastRequest().Body, &body))
	assert.Equal(t, ids, body)

	roles, err := f.console.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles.Data, 2)
}
