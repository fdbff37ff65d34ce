// Package permissions gates navigation and feature visibility by role.
package permissions

import (
	"slices"
	"sync"

	"github.com/signalsfoundry/incident-demo/model"
)

// Tables holds the static role lookups consulted by a Store.
type Tables struct {
	Routes      map[model.Role][]string
	Permissions map[model.Role][]model.Permission
	Labels      map[model.Role]string
}

// DefaultTables returns the built-in role tables.
func DefaultTables() Tables {
	return Tables{
		Routes: map[model.Role][]string{
			model.RoleAdmin:      {"/", "/dispatcher", "/responder", "/citizen", "/console"},
			model.RoleOperations: {"/", "/dispatcher", "/console"},
			model.RoleDispatcher: {"/dispatcher", "/responder"},
			model.RoleResponder:  {"/responder"},
			model.RoleCitizen:    {"/citizen"},
		},
		Permissions: map[model.Role][]model.Permission{
			model.RoleAdmin: slices.Clone(model.Permissions),
			model.RoleOperations: {
				model.PermViewOperations,
				model.PermViewDispatcher,
				model.PermViewConsole,
				model.PermManageIncidents,
				model.PermViewAllData,
				model.PermViewKnowledgeBase,
			},
			model.RoleDispatcher: {
				model.PermViewDispatcher,
				model.PermViewResponder,
				model.PermDispatchResponders,
				model.PermViewKnowledgeBase,
			},
			model.RoleResponder: {
				model.PermViewResponder,
				model.PermRespondToIncidents,
				model.PermViewKnowledgeBase,
			},
			model.RoleCitizen: {
				model.PermViewCitizen,
				model.PermSubmitReports,
			},
		},
		Labels: map[model.Role]string{
			model.RoleAdmin:      "Administrator",
			model.RoleOperations: "Console",
			model.RoleDispatcher: "Dispatcher",
			model.RoleResponder:  "Responder",
			model.RoleCitizen:    "Citizen",
		},
	}
}

// Store holds the current actor role and answers access-control queries.
// It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	role   model.Role
	tables Tables
}

// Option customises Store construction.
type Option func(*Store)

// WithTables replaces the built-in role tables.
func WithTables(t Tables) Option {
	return func(s *Store) {
		s.tables = t
	}
}

// New constructs a Store acting as defaultRole. An invalid defaultRole falls
// back to admin.
func New(defaultRole model.Role, opts ...Option) *Store {
	if !defaultRole.Valid() {
		defaultRole = model.RoleAdmin
	}
	s := &Store{role: defaultRole, tables: DefaultTables()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Role returns the current role.
func (s *Store) Role() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// SetRole replaces the current role unconditionally. Any role may switch to
// any other role; only values outside the enumeration are refused.
func (s *Store) SetRole(role model.Role) error {
	if !role.Valid() {
		_, err := model.ParseRole(string(role))
		return err
	}
	s.mu.Lock()
	s.role = role
	s.mu.Unlock()
	return nil
}

// HasPermission reports whether the current role holds p.
func (s *Store) HasPermission(p model.Permission) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.tables.Permissions[s.role], p)
}

// CanAccessRoute reports whether the current role may open route. Routes
// missing from the role's table are denied.
func (s *Store) CanAccessRoute(route string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.tables.Routes[s.role], route)
}

// AllowedRoutes returns the current role's routes in table order.
func (s *Store) AllowedRoutes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tables.Routes[s.role])
}

// FallbackRoute returns the landing route used when access is denied: the
// first allowed route. ok is false when the role has no routes at all.
func (s *Store) FallbackRoute() (route string, ok bool) {
	routes := s.AllowedRoutes()
	if len(routes) == 0 {
		return "", false
	}
	return routes[0], true
}

// RoleLabel returns the display label for the current role.
func (s *Store) RoleLabel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables.Labels[s.role]
}

// AllRoles lists every selectable role.
func (s *Store) AllRoles() []model.Role {
	return slices.Clone(model.Roles)
}
