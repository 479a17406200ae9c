package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rawlogin/adminctl/pkg/api"
)

// SessionCookie is the cookie issued in cookie mode.
const SessionCookie = "JSESSIONID"

type ctxKey string

const (
	userIDKey     ctxKey = "user_id"
	credentialKey ctxKey = "credential"
)

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if ok {
			writeFailure(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) credential(r *http.Request) string {
	if s.mode == api.AuthModeCookie {
		if c, err := r.Cookie(SessionCookie); err == nil {
			return c.Value
		}
		return ""
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cred := s.credential(r)

		s.mu.Lock()
		userID, ok := s.sessions[cred]
		tokens := s.tokens
		s.mu.Unlock()

		if cred == "" || !ok {
			writeFailure(w, http.StatusUnauthorized, "not logged in")
			return
		}
		if s.mode == api.AuthModeBearer {
			if _, err := tokens.validate(cred); err != nil {
				writeFailure(w, http.StatusUnauthorized, "token expired")
				return
			}
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, credentialKey, cred)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func decodeLogin(r *http.Request) (api.LoginRequest, error) {
	var req api.LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	req.Remember, _ = strconv.ParseBool(r.PostForm.Get("remember"))
	return req, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLogin(r)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "malformed login request")
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Password) == "" {
		writeFailure(w, http.StatusBadRequest, "username and password must not be empty")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.findUser(req.Username)
	if acc == nil || !acc.checkPassword(req.Password) {
		writeFailure(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if s.mode == api.AuthModeCookie {
		sid := uuid.NewString()
		s.sessions[sid] = acc.ID
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: sid, Path: "/", HttpOnly: true})
		if req.Remember {
			http.SetCookie(w, &http.Cookie{Name: "username", Value: acc.Username, Path: "/", MaxAge: 7 * 24 * 3600})
		}
		writeJSON(w, http.StatusOK, api.Result[any]{Success: true, Message: "login succeeded"})
		return
	}

	token, err := s.tokens.issue(acc.ID, acc.Username)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	s.sessions[token] = acc.ID
	user := acc.User
	writeSuccess(w, "login succeeded", api.LoginData{Token: token, User: &user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "malformed request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findUser(req.Username) != nil {
		writeFailure(w, http.StatusBadRequest, "duplicate username")
		return
	}
	acc, err := s.addUser(req.Username, req.Password, req.Email, "USER")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	writeSuccess(w, "registration succeeded", acc.User)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int)

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.users[userID]
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeSuccess(w, "", acc.User)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cred := r.Context().Value(credentialKey).(string)

	s.mu.Lock()
	delete(s.sessions, cred)
	s.mu.Unlock()

	writeSuccess[any](w, "logged out", nil)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeSuccess(w, "", s.sortedUsers())
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.users[id]
	if !ok {
		writeFailure(w, http.StatusNotFound, "user not found")
		return
	}
	writeSuccess(w, "", acc.User)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req api.UserCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "malformed request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findUser(req.Username) != nil {
		writeFailure(w, http.StatusBadRequest, "duplicate username")
		return
	}
	role := req.Role
	if role == "" {
		role = "USER"
	}
	acc, err := s.addUser(req.Username, req.Password, req.Email, role)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Status != nil {
		acc.Status = req.Status
	}
	writeSuccess(w, "user created", acc.User)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req api.UserUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "malformed request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.users[id]
	if !ok {
		writeFailure(w, http.StatusNotFound, "user not found")
		return
	}
	if other := s.findUser(req.Username); other != nil && other.ID != id {
		writeFailure(w, http.StatusBadRequest, "duplicate username")
		return
	}

	acc.Username = req.Username
	if req.Password != "" {
		if err := acc.setPassword(req.Password); err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Email != "" {
		acc.Email = req.Email
	}
	if req.Status != nil {
		acc.Status = req.Status
	}
	if req.Role != "" {
		acc.Role = req.Role
	}
	writeSuccess(w, "user updated", acc.User)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		writeFailure(w, http.StatusNotFound, "user not found")
		return
	}
	delete(s.users, id)
	delete(s.userRoles, id)
	writeSuccess[any](w, "user deleted", nil)
}

func (s *Server) handleBatchDeleteUsers(w http.ResponseWriter, r *http.Request) {
	var ids []int
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil || len(ids) == 0 {
		writeFailure(w, http.StatusBadRequest, "no users selected")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if _, ok := s.users[id]; ok {
			delete(s.users, id)
			delete(s.userRoles, id)
			deleted++
		}
	}
	writeSuccess[any](w, fmt.Sprintf("deleted %d users", deleted), nil)
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	keyword := strings.ToLower(r.URL.Query().Get("username"))
	role := r.URL.Query().Get("role")

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []api.User
	for _, u := range s.sortedUsers() {
		if keyword != "" && !strings.Contains(strings.ToLower(u.Username), keyword) {
			continue
		}
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, u)
	}
	writeSuccess(w, "", out)
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeSuccess(w, "", s.sortedRoles(nil))
}

// PermissionCodes is the catalogue served by /api/roles/permissions.
var PermissionCodes = []string{
	"sys:user:list", "sys:user:view", "sys:user:create", "sys:user:edit", "sys:user:delete",
	"sys:role:view", "sys:role:create", "sys:role:edit", "sys:role:delete",
	"sys:config:view", "sys:config:edit", "sys:log:view",
}

func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	out := make([]api.Permission, 0, len(PermissionCodes))
	for _, code := range PermissionCodes {
		parts := strings.Split(code, ":")
		out = append(out, api.Permission{Code: code, Category: parts[1], DisplayName: code})
	}
	writeSuccess(w, "", out)
}

func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	role, ok := s.roles[id]
	if !ok {
		writeFailure(w, http.StatusNotFound, "role not found")
		return
	}
	writeSuccess(w, "", *role)
}

func (s *Server) handleSearchRoles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.ToLower(q.Get("name"))
	code := strings.ToLower(q.Get("code"))

	var status *int
	if v := q.Get("status"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid status")
			return
		}
		status = &n
	}
	var builtIn *bool
	if v := q.Get("builtIn"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid builtIn")
			return
		}
		builtIn = &b
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	writeSuccess(w, "", s.sortedRoles(func(role *api.Role) bool {
		switch {
		case name != "" && !strings.Contains(strings.ToLower(role.Name), name):
			return false
		case code != "" && !strings.Contains(strings.ToLower(role.Code), code):
			return false
		case status != nil && (role.Status == nil || *role.Status != *status):
			return false
		case builtIn != nil && role.BuiltIn != *builtIn:
			return false
		}
		return true
	}))
}

func (s *Server) handleBatchDeleteRoles(w http.ResponseWriter, r *http.Request) {
	var ids []int
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil || len(ids) == 0 {
		writeFailure(w, http.StatusBadRequest, "no roles selected")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if role, ok := s.roles[id]; ok && role.BuiltIn {
			writeJSON(w, http.StatusOK, api.Result[any]{Success: false, Message: "built-in roles cannot be deleted"})
			return
		}
	}

	deleted := 0
	for _, id := range ids {
		if _, ok := s.roles[id]; !ok {
			continue
		}
		delete(s.roles, id)
		for _, set := range s.userRoles {
			delete(set, id)
		}
		deleted++
	}
	writeSuccess[any](w, fmt.Sprintf("deleted %d roles", deleted), nil)
}

func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req api.RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "malformed request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, role := range s.roles {
		if role.Code == req.Code {
			writeFailure(w, http.StatusBadRequest, "role code already exists")
			return
		}
	}
	role := s.addRole(api.Role{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Status:      req.Status,
		Permissions: toPermissions(req.Permissions),
	})
	writeSuccess(w, "role created", *role)
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req api.RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "malformed request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	role, ok := s.roles[id]
	if !ok {
		writeFailure(w, http.StatusNotFound, "role not found")
		return
	}
	role.Name = req.Name
	role.Code = req.Code
	role.Description = req.Description
	if req.Status != nil {
		role.Status = req.Status
	}
	if req.Permissions != nil {
		role.Permissions = toPermissions(req.Permissions)
	}
	writeSuccess(w, "role updated", *role)
}

func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	role, ok := s.roles[id]
	if !ok {
		writeFailure(w, http.StatusNotFound, "role not found")
		return
	}
	if role.BuiltIn {
		writeJSON(w, http.StatusOK, api.Result[any]{Success: false, Message: "built-in roles cannot be deleted"})
		return
	}
	delete(s.roles, id)
	for _, set := range s.userRoles {
		delete(set, id)
	}
	writeSuccess[any](w, "role deleted", nil)
}

func (s *Server) handleUserRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	set := s.userRoles[userID]
	writeSuccess(w, "", s.sortedRoles(func(role *api.Role) bool { return set[role.ID] }))
}

func (s *Server) handleAssignRoles(w http.ResponseWriter, r *http.Request) {
	var req api.AssignRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "malformed request")
		return
	}
	userID, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	set := make(map[int]bool, len(req.RoleIDs))
	for _, id := range req.RoleIDs {
		if _, ok := s.roles[id]; !ok {
			writeFailure(w, http.StatusBadRequest, fmt.Sprintf("role %d does not exist", id))
			return
		}
		set[id] = true
	}
	s.userRoles[userID] = set
	writeSuccess[any](w, "roles assigned", nil)
}

func (s *Server) handleRemoveAllRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	delete(s.userRoles, userID)
	writeSuccess[any](w, "roles removed", nil)
}

func (s *Server) handleRemoveRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "roleId")
	if !ok {
		return
	}
	userID, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	delete(s.userRoles[userID], roleID)
	writeSuccess[any](w, "role removed", nil)
}

func (s *Server) handleHasRole(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	userID, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	has := false
	for id := range s.userRoles[userID] {
		if role, ok := s.roles[id]; ok && role.Code == code {
			has = true
		}
	}
	writeSuccess(w, "", has)
}

func (s *Server) handleRoleCodes(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	codes := []string{}
	for _, role := range s.sortedRoles(func(role *api.Role) bool { return s.userRoles[userID][role.ID] }) {
		codes = append(codes, role.Code)
	}
	writeSuccess(w, "", codes)
}

func (s *Server) handleRoleUsers(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[roleID]; !ok {
		writeFailure(w, http.StatusNotFound, "role not found")
		return
	}
	ids := []int{}
	for userID, set := range s.userRoles {
		if set[roleID] {
			ids = append(ids, userID)
		}
	}
	sort.Ints(ids)
	writeSuccess(w, "", ids)
}

// pathUser resolves the {id} user and returns with s.mu held on success.
func (s *Server) pathUser(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return 0, false
	}

	s.mu.Lock()
	if _, ok := s.users[id]; !ok {
		s.mu.Unlock()
		writeFailure(w, http.StatusNotFound, "user not found")
		return 0, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

func toPermissions(codes []string) []api.Permission {
	if codes == nil {
		return nil
	}
	out := make([]api.Permission, 0, len(codes))
	for _, code := range codes {
		out = append(out, api.Permission{Code: code})
	}
	return out
}
