package rbac

// Policy is the fixed rule table deciding which actor may perform which
// action on which user. Anything it does not know is denied.
type Policy struct {
	adminRoleID int64
}

// NewPolicy builds a policy treating adminRoleID as the administrator role.
func NewPolicy(adminRoleID int64) *Policy {
	return &Policy{adminRoleID: adminRoleID}
}

// AdminRoleID returns the configured administrator role.
func (p *Policy) AdminRoleID() int64 {
	if p == nil {
		return 0
	}
	return p.adminRoleID
}

// IsAdmin reports whether actor holds the administrator role.
func (p *Policy) IsAdmin(actor Actor) bool {
	if p == nil || actor.identity == nil {
		return false
	}
	return actor.identity.RoleID == p.adminRoleID
}

// Evaluate decides action for actor. Actions that address a user (update,
// assign_role) are denied when target is nil.
func (p *Policy) Evaluate(action Action, actor Actor, target *Identity) bool {
	if p == nil {
		return false
	}
	switch action {
	case ActionCreate, ActionDelete, ActionReadStatistics:
		return p.IsAdmin(actor)
	case ActionRead:
		return true
	case ActionUpdate:
		if target == nil {
			return false
		}
		if p.IsAdmin(actor) {
			return true
		}
		id, ok := actor.ID()
		return ok && id == target.ID
	case ActionAssignRole:
		if target == nil {
			return false
		}
		return p.IsAdmin(actor)
	default:
		return false
	}
}

// EvaluateName is Evaluate for a textual action name.
func (p *Policy) EvaluateName(name string, actor Actor, target *Identity) bool {
	action, ok := ParseAction(name)
	if !ok {
		return false
	}
	return p.Evaluate(action, actor, target)
}
