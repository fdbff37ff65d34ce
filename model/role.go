package model

// Role identifies the acting party's identity class.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleOperations Role = "operations"
	RoleDispatcher Role = "dispatcher"
	RoleResponder  Role = "responder"
	RoleCitizen    Role = "citizen"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleOperations, RoleDispatcher, RoleResponder, RoleCitizen}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperations, RoleDispatcher, RoleResponder, RoleCitizen:
		return true
	}
	return false
}

// ParseRole converts raw into a Role.
func ParseRole(raw string) (Role, error) { return parseEnum[Role]("role", raw) }

// Permission names a feature that may be granted to a role.
type Permission string

const (
	PermViewOperations     Permission = "view_operations"
	PermViewDispatcher     Permission = "view_dispatcher"
	PermViewResponder      Permission = "view_responder"
	PermViewCitizen        Permission = "view_citizen"
	PermViewConsole        Permission = "view_console"
	PermManageIncidents    Permission = "manage_incidents"
	PermDispatchResponders Permission = "dispatch_responders"
	PermRespondToIncidents Permission = "respond_to_incidents"
	PermSubmitReports      Permission = "submit_reports"
	PermViewAllData        Permission = "view_all_data"
	PermConfigureSystem    Permission = "configure_system"
	PermViewKnowledgeBase  Permission = "view_knowledge_base"
	PermEditKnowledgeBase  Permission = "edit_knowledge_base"
)

// Permissions lists every known permission.
var Permissions = []Permission{
	PermViewOperations,
	PermViewDispatcher,
	PermViewResponder,
	PermViewCitizen,
	PermViewConsole,
	PermManageIncidents,
	PermDispatchResponders,
	PermRespondToIncidents,
	PermSubmitReports,
	PermViewAllData,
	PermConfigureSystem,
	PermViewKnowledgeBase,
	PermEditKnowledgeBase,
}

// Valid reports whether p is one of the known permissions.
func (p Permission) Valid() bool {
	for _, known := range Permissions {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePermission converts raw into a Permission.
func ParsePermission(raw string) (Permission, error) {
	return parseEnum[Permission]("permission", raw)
}
