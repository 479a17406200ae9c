// Package testserver is an in-process fake of the admin API used by tests.
// It speaks both auth modes, keeps users and roles in memory and records every
// request it receives.
package testserver

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/rawlogin/adminctl/pkg/api"
)

// Seeded accounts.
const (
	AdminUsername = "admin"
	AdminPassword = "admin123"
	UserUsername  = "alice"
	UserPassword  = "secret1"
)

// Recorded is one request as the server saw it.
type Recorded struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type failure struct {
	status  int
	message string
}

type account struct {
	api.User
	passwordHash []byte
}

func (a *account) setPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	a.passwordHash = hash
	return nil
}

func (a *account) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
}

// Server is the fake backend. Use Handler with httptest.NewServer.
type Server struct {
	mode   string
	tokens *tokenIssuer

	mu         sync.Mutex
	users      map[int]*account
	roles      map[int]*api.Role
	userRoles  map[int]map[int]bool
	sessions   map[string]int
	nextUserID int
	nextRoleID int
	requests   []Recorded
	failures   map[string]failure

	router chi.Router
}

// New creates a fake backend for the given auth mode with two seeded users
// and the ADMIN and USER roles.
func New(mode string) *Server {
	if mode == "" {
		mode = api.AuthModeBearer
	}

	s := &Server{
		mode:      mode,
		tokens:    newTokenIssuer(),
		users:     make(map[int]*account),
		roles:     make(map[int]*api.Role),
		userRoles: make(map[int]map[int]bool),
		sessions:  make(map[string]int),
		failures:  make(map[string]failure),
	}
	s.seed()
	s.router = s.routes()
	return s
}

func (s *Server) seed() {
	s.addRole(api.Role{Name: "Administrator", Code: "ADMIN", Description: "full access", BuiltIn: true})
	s.addRole(api.Role{Name: "User", Code: "USER", Description: "regular user", BuiltIn: true})

	admin, err := s.addUser(AdminUsername, AdminPassword, "admin@example.com", "ADMIN")
	if err != nil {
		panic(err)
	}
	alice, err := s.addUser(UserUsername, UserPassword, "alice@example.com", "USER")
	if err != nil {
		panic(err)
	}
	s.userRoles[admin.ID] = map[int]bool{1: true}
	s.userRoles[alice.ID] = map[int]bool{2: true}
}

// Handler returns the HTTP handler serving the fake API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimid.Recoverer)
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/ajax-login", s.handleLogin)
	r.Post("/api/auth/register", s.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/api/auth/current", s.handleCurrentUser)
		r.Get("/api/user/current", s.handleCurrentUser)
		r.Post("/api/auth/logout", s.handleLogout)
		r.Post("/api/user/logout", s.handleLogout)

		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)
			r.Get("/search", s.handleSearchUsers)
			r.Delete("/batch", s.handleBatchDeleteUsers)
			r.Get("/{id}", s.handleGetUser)
			r.Put("/{id}", s.handleUpdateUser)
			r.Delete("/{id}", s.handleDeleteUser)
		})

		r.Route("/api/roles", func(r chi.Router) {
			r.Get("/list", s.handleListRoles)
			r.Post("/create", s.handleCreateRole)
			r.Get("/search", s.handleSearchRoles)
			r.Get("/permissions", s.handleListPermissions)
			r.Delete("/batch", s.handleBatchDeleteRoles)
			r.Get("/{id}", s.handleGetRole)
			r.Put("/{id}", s.handleUpdateRole)
			r.Delete("/{id}", s.handleDeleteRole)
		})

		r.Route("/api/user-roles", func(r chi.Router) {
			r.Get("/user/{id}", s.handleUserRoles)
			r.Post("/user/{id}/assign", s.handleAssignRoles)
			r.Delete("/user/{id}", s.handleRemoveAllRoles)
			r.Delete("/user/{id}/role/{roleId}", s.handleRemoveRole)
			r.Get("/user/{id}/check/{code}", s.handleHasRole)
			r.Get("/user/{id}/codes", s.handleRoleCodes)
			r.Get("/role/{id}/users", s.handleRoleUsers)
		})
	})

	return r
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request, or a zero value.
func (s *Server) LastRequest() Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Recorded{}
	}
	return s.requests[len(s.requests)-1]
}

// ExpireSessions invalidates every issued credential, so the next
// authenticated call gets a 401.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]int)
	s.tokens = newTokenIssuer()
}

// FailWith makes every request matching method and path answer with status
// and an envelope carrying message.
func (s *Server) FailWith(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, message: message}
}

// UserByName returns the stored user, for assertions.
func (s *Server) UserByName(username string) (api.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.findUser(username)
	if acc == nil {
		return api.User{}, false
	}
	return acc.User, true
}

func (s *Server) addUser(username, password, email, role string) (*account, error) {
	active := 1
	acc := &account{
		User: api.User{
			Username:   username,
			Email:      email,
			Role:       role,
			Status:     &active,
			StatusText: "active",
		},
	}
	if err := acc.setPassword(password); err != nil {
		return nil, err
	}

	s.nextUserID++
	acc.ID = s.nextUserID
	s.users[acc.ID] = acc
	return acc, nil
}

func (s *Server) addRole(role api.Role) *api.Role {
	s.nextRoleID++
	active := 1
	role.ID = s.nextRoleID
	if role.Status == nil {
		role.Status = &active
	}
	s.roles[role.ID] = &role
	return &role
}

func (s *Server) findUser(username string) *account {
	for _, acc := range s.users {
		if strings.EqualFold(acc.Username, username) {
			return acc
		}
	}
	return nil
}

func (s *Server) sortedUsers() []api.User {
	out := make([]api.User, 0, len(s.users))
	for _, acc := range s.users {
		out = append(out, acc.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) sortedRoles(filter func(*api.Role) bool) []api.Role {
	out := make([]api.Role, 0, len(s.roles))
	for _, role := range s.roles {
		if filter == nil || filter(role) {
			out = append(out, *role)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeSuccess[T any](w http.ResponseWriter, message string, data T) {
	writeJSON(w, http.StatusOK, api.Result[T]{Success: true, Data: data, Message: message})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.Result[any]{Success: false, Message: message})
}
