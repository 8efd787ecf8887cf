package rbac

// Action names an operation guarded by the policy.
type Action string

const (
	ActionCreate         Action = "create"
	ActionRead           Action = "read"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionAssignRole     Action = "assign_role"
	ActionReadStatistics Action = "read_statistics"
)

var knownActions = []Action{
	ActionCreate,
	ActionRead,
	ActionUpdate,
	ActionDelete,
	ActionAssignRole,
	ActionReadStatistics,
}

// Actions lists every action known to the policy.
func Actions() []Action {
	out := make([]Action, len(knownActions))
	copy(out, knownActions)
	return out
}

// ParseAction resolves a textual action name. Unknown names report false.
func ParseAction(name string) (Action, bool) {
	for _, a := range knownActions {
		if string(a) == name {
			return a, true
		}
	}
	return "", false
}

// NeedsTarget reports whether the action is decided against a specific user.
func (a Action) NeedsTarget() bool {
	return a == ActionUpdate || a == ActionAssignRole
}

// Identity is the part of a user record that authorization decisions read.
type Identity struct {
	ID     int64
	Login  string
	RoleID int64
}
