package domain

// Role is a user's organizational role
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleExecutive  Role = "executive"
	RoleAccountant Role = "accountant"
	RoleManager    Role = "manager"
	RoleViewer     Role = "viewer"
)

// Action is a gated capability
type Action string

const (
	ActionView    Action = "view"
	ActionAddEdit Action = "add_edit"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
	ActionReports Action = "reports"
	ActionAudit   Action = "audit"
)

// Roles lists every role in display order
var Roles = []Role{RoleAdmin, RoleExecutive, RoleAccountant, RoleManager, RoleViewer}

// Actions lists every action in display order
var Actions = []Action{ActionView, ActionAddEdit, ActionDelete, ActionApprove, ActionReports, ActionAudit}

var permissionTable = map[Role]map[Action]bool{
	RoleAdmin: {
		ActionView: true, ActionAddEdit: true, ActionDelete: true,
		ActionApprove: true, ActionReports: true, ActionAudit: true,
	},
	RoleExecutive: {
		ActionView: true, ActionAddEdit: true, ActionReports: true,
	},
	RoleAccountant: {
		ActionView: true, ActionAddEdit: true, ActionReports: true,
	},
	RoleManager: {
		ActionView: true, ActionApprove: true, ActionReports: true,
	},
	RoleViewer: {
		ActionView: true,
	},
}

// Allowed reports whether role may perform action. Unknown roles and actions are denied.
func Allowed(role Role, action Action) bool {
	return permissionTable[role][action]
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, ok := permissionTable[r]
	return ok
}

// ParseRole converts a string into a known role
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", NewValidationError("role", "unknown role: "+s)
	}
	return r, nil
}

// Actor is the authenticated user performing an operation
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// SystemActor runs scheduled jobs
var SystemActor = Actor{UserID: "system", Role: RoleAdmin}

// Can reports whether the actor may perform action
func (a Actor) Can(action Action) bool {
	return Allowed(a.Role, action)
}

// Require returns a PermissionDenied error when the actor may not perform action
func (a Actor) Require(action Action) error {
	if !a.Can(action) {
		return NewPermissionDenied(a.Role, action)
	}
	return nil
}

// PermissionsFor returns the role's row of the permission table
func PermissionsFor(role Role) map[Action]bool {
	row := make(map[Action]bool, len(Actions))
	for _, action := range Actions {
		row[action] = Allowed(role, action)
	}
	return row
}
