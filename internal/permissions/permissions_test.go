package permissions

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/signalsfoundry/incident-demo/model"
)

func TestStoreDefaultsToAdmin(t *testing.T) {
	s := New("")
	if got := s.Role(); got != model.RoleAdmin {
		t.Fatalf("Role() = %q, want %q", got, model.RoleAdmin)
	}
	if got := s.RoleLabel(); got != "Administrator" {
		t.Fatalf("RoleLabel() = %q, want Administrator", got)
	}
	for _, p := range model.Permissions {
		if !s.HasPermission(p) {
			t.Fatalf("admin HasPermission(%q) = false, want true", p)
		}
	}
}

func TestCanAccessRouteByRole(t *testing.T) {
	cases := []struct {
		role    model.Role
		route   string
		allowed bool
	}{
		{model.RoleAdmin, "/console", true},
		{model.RoleOperations, "/", true},
		{model.RoleOperations, "/responder", false},
		{model.RoleDispatcher, "/dispatcher", true},
		{model.RoleDispatcher, "/responder", true},
		{model.RoleDispatcher, "/citizen", false},
		{model.RoleResponder, "/responder", true},
		{model.RoleResponder, "/", false},
		{model.RoleCitizen, "/citizen", true},
		{model.RoleCitizen, "/console", false},
		{model.RoleAdmin, "/unknown", false},
	}

	s := New(model.RoleAdmin)
	for _, tc := range cases {
		if err := s.SetRole(tc.role); err != nil {
			t.Fatalf("SetRole(%q): %v", tc.role, err)
		}
		if got := s.CanAccessRoute(tc.route); got != tc.allowed {
			t.Fatalf("%s CanAccessRoute(%q) = %v, want %v", tc.role, tc.route, got, tc.allowed)
		}
	}
}

func TestPermissionTables(t *testing.T) {
	s := New(model.RoleCitizen)
	if !s.HasPermission(model.PermSubmitReports) {
		t.Fatalf("citizen HasPermission(submit_reports) = false, want true")
	}
	if s.HasPermission(model.PermDispatchResponders) {
		t.Fatalf("citizen HasPermission(dispatch_responders) = true, want false")
	}

	if err := s.SetRole(model.RoleResponder); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if !s.HasPermission(model.PermRespondToIncidents) {
		t.Fatalf("responder HasPermission(respond_to_incidents) = false, want true")
	}
	if s.HasPermission(model.PermConfigureSystem) {
		t.Fatalf("responder HasPermission(configure_system) = true, want false")
	}
}

func TestAllowedRoutesAndFallback(t *testing.T) {
	s := New(model.RoleDispatcher)

	routes := s.AllowedRoutes()
	if want := []string{"/dispatcher", "/responder"}; !slices.Equal(routes, want) {
		t.Fatalf("AllowedRoutes() = %v, want %v", routes, want)
	}
	routes[0] = "/mutated"
	if got, _ := s.FallbackRoute(); got != "/dispatcher" {
		t.Fatalf("FallbackRoute() = %q after caller mutation, want /dispatcher", got)
	}
}

func TestFailClosedWithEmptyTables(t *testing.T) {
	s := New(model.RoleAdmin, WithTables(Tables{}))

	for _, route := range []string{"/", "/dispatcher", "/console", ""} {
		if s.CanAccessRoute(route) {
			t.Fatalf("CanAccessRoute(%q) = true with empty tables, want false", route)
		}
	}
	if s.HasPermission(model.PermViewAllData) {
		t.Fatalf("HasPermission with empty tables = true, want false")
	}
	if _, ok := s.FallbackRoute(); ok {
		t.Fatalf("FallbackRoute() ok = true with empty tables, want false")
	}
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	s := New(model.RoleResponder)
	err := s.SetRole("superuser")
	if !errors.Is(err, model.ErrInvalidEnum) {
		t.Fatalf("SetRole(superuser) error = %v, want ErrInvalidEnum", err)
	}
	if got := s.Role(); got != model.RoleResponder {
		t.Fatalf("Role() after rejected switch = %q, want responder", got)
	}
}

func TestEveryRoleReachesEveryRole(t *testing.T) {
	s := New(model.RoleAdmin)
	for _, from := range s.AllRoles() {
		for _, to := range s.AllRoles() {
			if err := s.SetRole(from); err != nil {
				t.Fatalf("SetRole(%q): %v", from, err)
			}
			if err := s.SetRole(to); err != nil {
				t.Fatalf("SetRole(%q -> %q): %v", from, to, err)
			}
			if got := s.Role(); got != to {
				t.Fatalf("Role() = %q, want %q", got, to)
			}
		}
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := New(model.RoleAdmin)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			role := model.Roles[i%len(model.Roles)]
			for j := 0; j < 100; j++ {
				_ = s.SetRole(role)
				_ = s.CanAccessRoute("/dispatcher")
				_ = s.AllowedRoutes()
				_ = s.RoleLabel()
			}
		}(i)
	}
	wg.Wait()
}
