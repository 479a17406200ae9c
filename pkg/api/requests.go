package api

// LoginRequest is the body of a login call. Remember is forwarded to the
// server untouched.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Remember bool   `json:"remember,omitempty"`
}

// RegisterRequest is the body of a self-registration call.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// UserCreateRequest is the body for creating a user from the admin screens.
type UserCreateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Status   *int   `json:"status,omitempty" validate:"omitempty,oneof=0 1"`
	Role     string `json:"role,omitempty"`
}

// UserUpdateRequest is the body for updating a user. An empty password keeps
// the current one.
type UserUpdateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password,omitempty" validate:"omitempty,min=6"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Status   *int   `json:"status,omitempty" validate:"omitempty,oneof=0 1"`
	Role     string `json:"role,omitempty"`
}

// RoleRequest is the body for creating or updating a role.
type RoleRequest struct {
	Name        string   `json:"name" validate:"required,max=50"`
	Code        string   `json:"code" validate:"required,max=50"`
	Description string   `json:"description,omitempty"`
	Status      *int     `json:"status,omitempty" validate:"omitempty,oneof=0 1"`
	Permissions []string `json:"permissions,omitempty"`
}

// RoleFilter narrows a role search. Zero values are not sent.
type RoleFilter struct {
	Name    string
	Code    string
	Status  *int
	BuiltIn *bool
}

// AssignRolesRequest replaces the role set of a user.
type AssignRolesRequest struct {
	RoleIDs []int `json:"roleIds"`
}
