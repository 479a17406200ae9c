package api

// User is the user view returned by the admin API.
type User struct {
	ID            int    `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"`
	RoleText      string `json:"roleText,omitempty"`
	Status        *int   `json:"status,omitempty"`
	StatusText    string `json:"statusText,omitempty"`
	CreateTime    string `json:"createTime,omitempty"`
	UpdateTime    string `json:"updateTime,omitempty"`
	LastLoginTime string `json:"lastLoginTime,omitempty"`
}

// Role is the role view returned by the admin API.
type Role struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Code        string       `json:"code"`
	Description string       `json:"description,omitempty"`
	Status      *int         `json:"status,omitempty"`
	BuiltIn     bool         `json:"builtIn,omitempty"`
	UserCount   int          `json:"userCount,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
	CreateTime  string       `json:"createTime,omitempty"`
	UpdateTime  string       `json:"updateTime,omitempty"`
}

// Permission is a single permission attached to a role, or one entry of the
// permission catalogue.
type Permission struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// LoginData is the payload of a successful bearer-mode login.
type LoginData struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// Empty is used for endpoints whose data is null or irrelevant. Whatever the
// server puts in data is accepted and dropped.
type Empty struct{}

// UnmarshalJSON discards the value.
func (*Empty) UnmarshalJSON([]byte) error { return nil }
