package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const adminRole = int64(1)

func testActors() (policy *Policy, admin, user, anonymous Actor) {
	policy = NewPolicy(adminRole)
	admin = Authenticated(policy, Identity{ID: 1, Login: "admin", RoleID: adminRole})
	user = Authenticated(policy, Identity{ID: 2, Login: "user2", RoleID: 2})
	anonymous = Anonymous(policy)
	return
}

func TestPolicyRuleTable(t *testing.T) {
	policy, admin, user, anonymous := testActors()
	other := &Identity{ID: 99, RoleID: 2}
	self := &Identity{ID: 2, RoleID: 2}

	tests := []struct {
		name   string
		action Action
		actor  Actor
		target *Identity
		want   bool
	}{
		{"admin create", ActionCreate, admin, nil, true},
		{"user create", ActionCreate, user, nil, false},
		{"anonymous read", ActionRead, anonymous, nil, true},
		{"user read other", ActionRead, user, other, true},
		{"admin update other", ActionUpdate, admin, other, true},
		{"user update self", ActionUpdate, user, self, true},
		{"user update other", ActionUpdate, user, other, false},
		{"anonymous update", ActionUpdate, anonymous, other, false},
		{"admin delete", ActionDelete, admin, other, true},
		{"user delete self", ActionDelete, user, self, false},
		{"admin assign role", ActionAssignRole, admin, other, true},
		{"user assign role self", ActionAssignRole, user, self, false},
		{"admin statistics", ActionReadStatistics, admin, nil, true},
		{"user statistics", ActionReadStatistics, user, nil, false},
		{"anonymous statistics", ActionReadStatistics, anonymous, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Evaluate(tt.action, tt.actor, tt.target))
			assert.Equal(t, tt.want, tt.actor.Can(tt.action, tt.target))
		})
	}
}

func TestPolicyUnknownActionDenied(t *testing.T) {
	policy, admin, user, anonymous := testActors()
	for _, name := range []string{"", "destroy", "READ", "is_dadmin", "update "} {
		for _, actor := range []Actor{admin, user, anonymous} {
			assert.False(t, policy.Evaluate(Action(name), actor, &Identity{ID: 1}), "action %q", name)
			assert.False(t, policy.EvaluateName(name, actor, &Identity{ID: 1}), "action %q", name)
		}
	}
}

func TestPolicyTargetedActionsNeedTarget(t *testing.T) {
	policy, admin, user, _ := testActors()
	for _, action := range []Action{ActionUpdate, ActionAssignRole} {
		assert.True(t, action.NeedsTarget())
		assert.False(t, policy.Evaluate(action, admin, nil), "admin %s without target", action)
		assert.False(t, policy.Evaluate(action, user, nil), "user %s without target", action)
	}
}

func TestPolicyEvaluateName(t *testing.T) {
	policy, admin, _, _ := testActors()
	assert.True(t, policy.EvaluateName("read_statistics", admin, nil))
	assert.True(t, policy.EvaluateName("update", admin, &Identity{ID: 5}))
}

func TestZeroActorIsDenied(t *testing.T) {
	var actor Actor
	assert.True(t, actor.IsAnonymous())
	assert.False(t, actor.IsAdmin())
	for _, action := range Actions() {
		assert.False(t, actor.Can(action, &Identity{ID: 1}))
	}
}

func TestParseAction(t *testing.T) {
	action, ok := ParseAction("assign_role")
	assert.True(t, ok)
	assert.Equal(t, ActionAssignRole, action)

	_, ok = ParseAction("launch")
	assert.False(t, ok)
}
