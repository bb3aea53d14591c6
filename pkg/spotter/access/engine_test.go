package access

import (
	"testing"

	"github.com/mikepea/spotter/pkg/spotter/identity"
	"github.com/mikepea/spotter/pkg/spotter/models"
	"github.com/stretchr/testify/assert"
)

var (
	admin  = identity.Identity{SubjectID: 1, Role: models.RoleAdmin}
	member = identity.Identity{SubjectID: 2, Role: models.RoleMember}
)

func TestAdminRules(t *testing.T) {
	denied := map[Operation]bool{
		JoinEvent:               true,
		LeaveEvent:              true,
		ToggleWorkoutCompletion: true,
	}

	for _, op := range Operations() {
		d := Decide(admin, op, Owned(99))
		if denied[op] {
			assert.Equal(t, Deny(RoleNotPermitted), d, op.String())
		} else {
			assert.True(t, d.Allowed, op.String())
		}
	}
}

func TestMemberRules(t *testing.T) {
	allowed := map[Operation]bool{
		ReadEvents:              true,
		JoinEvent:               true,
		LeaveEvent:              true,
		ReadOwnWorkouts:         true,
		ReadWorkoutStats:        true,
		ToggleWorkoutCompletion: true,
		UpdateWorkout:           true,
	}

	for _, op := range Operations() {
		d := Decide(member, op, Owned(member.SubjectID))
		if allowed[op] {
			assert.True(t, d.Allowed, op.String())
		} else {
			assert.Equal(t, Deny(RoleNotPermitted), d, op.String())
		}
	}
}

func TestMemberOwnership(t *testing.T) {
	for _, op := range []Operation{ReadWorkoutStats, ToggleWorkoutCompletion, UpdateWorkout} {
		assert.Equal(t, Deny(NotOwner), Decide(member, op, Owned(member.SubjectID+1)), op.String())
		assert.Equal(t, Deny(NotOwner), Decide(member, op, Facts{}), op.String())
	}

	// Ownership facts are irrelevant to operations that are not owner-parameterized.
	assert.True(t, Decide(member, JoinEvent, Owned(42)).Allowed)
}

func TestMemberAdministrativeOpsIgnoreOwnership(t *testing.T) {
	for _, op := range []Operation{ListMembers, DeleteMember} {
		assert.Equal(t, Deny(RoleNotPermitted), Decide(member, op, Owned(member.SubjectID)), op.String())
		assert.Equal(t, Deny(RoleNotPermitted), Decide(member, op, Facts{}), op.String())
	}
}

func TestRoleIsCaseInsensitive(t *testing.T) {
	shouting := identity.Identity{SubjectID: 1, Role: "ADMIN"}
	assert.True(t, Decide(shouting, DeleteEvent, Facts{}).Allowed)

	mixed := identity.Identity{SubjectID: 2, Role: "Member"}
	assert.True(t, Decide(mixed, JoinEvent, Facts{}).Allowed)
}

func TestDenyByDefault(t *testing.T) {
	unknownRole := identity.Identity{SubjectID: 3, Role: "coach"}
	for _, op := range Operations() {
		assert.Equal(t, Deny(RoleNotPermitted), Decide(unknownRole, op, Owned(3)), op.String())
	}

	assert.Equal(t, Deny(RoleNotPermitted), Decide(admin, Operation(0), Facts{}))
	assert.Equal(t, Deny(RoleNotPermitted), Decide(admin, Operation(999), Facts{}))
	assert.Equal(t, "Unknown", Operation(999).String())
}

func TestCatalogIsComplete(t *testing.T) {
	ops := Operations()
	assert.Len(t, ops, 15)
	for _, op := range ops {
		_, ok := rules[op]
		assert.True(t, ok, "no rule for %s", op)
		assert.NotEqual(t, "Unknown", op.String())
	}
}
