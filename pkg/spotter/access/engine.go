// Package access decides whether an identity may perform an operation.
//
// Decisions come from a fixed rule table over a closed set of operations. Anything
// the table does not explicitly allow is denied.
package access

import (
	"github.com/mikepea/spotter/pkg/spotter/identity"
	"github.com/mikepea/spotter/pkg/spotter/models"
)

// Operation is one entry of the operation catalog.
type Operation int

const (
	CreateEvent Operation = iota + 1
	ReadEvents
	UpdateEvent
	DeleteEvent
	JoinEvent
	LeaveEvent
	CreateWorkout
	ReadAllWorkouts
	ReadOwnWorkouts
	ReadWorkoutStats
	ToggleWorkoutCompletion
	UpdateWorkout
	DeleteWorkout
	ListMembers
	DeleteMember
)

var operationNames = map[Operation]string{
	CreateEvent:             "CreateEvent",
	ReadEvents:              "ReadEvents",
	UpdateEvent:             "UpdateEvent",
	DeleteEvent:             "DeleteEvent",
	JoinEvent:               "JoinEvent",
	LeaveEvent:              "LeaveEvent",
	CreateWorkout:           "CreateWorkout",
	ReadAllWorkouts:         "ReadAllWorkouts",
	ReadOwnWorkouts:         "ReadOwnWorkouts",
	ReadWorkoutStats:        "ReadWorkoutStats",
	ToggleWorkoutCompletion: "ToggleWorkoutCompletion",
	UpdateWorkout:           "UpdateWorkout",
	DeleteWorkout:           "DeleteWorkout",
	ListMembers:             "ListMembers",
	DeleteMember:            "DeleteMember",
}

func (op Operation) String() string {
	if name, ok := operationNames[op]; ok {
		return name
	}
	return "Unknown"
}

// Operations returns the full catalog in declaration order.
func Operations() []Operation {
	ops := make([]Operation, 0, len(operationNames))
	for op := CreateEvent; op <= DeleteMember; op++ {
		ops = append(ops, op)
	}
	return ops
}

// Facts carries resource ownership known at decision time.
type Facts struct {
	OwnerID uint
}

// Owned returns facts for a resource owned by ownerID.
func Owned(ownerID uint) Facts {
	return Facts{OwnerID: ownerID}
}

// Reason explains a denial.
type Reason string

const (
	RoleNotPermitted Reason = "ROLE_NOT_PERMITTED"
	NotOwner         Reason = "NOT_OWNER"
)

// Decision is the outcome of Decide.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow is the allowing decision.
var Allow = Decision{Allowed: true}

// Deny builds a denying decision.
func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// rule lists the roles allowed to perform an operation and whether a member
// must own the target.
type rule struct {
	admin       bool
	member      bool
	memberOwned bool
}

// Admins run the gym but do not take part in events or complete workouts;
// members act on their own records only.
var rules = map[Operation]rule{
	CreateEvent:             {admin: true},
	ReadEvents:              {admin: true, member: true},
	UpdateEvent:             {admin: true},
	DeleteEvent:             {admin: true},
	JoinEvent:               {member: true},
	LeaveEvent:              {member: true},
	CreateWorkout:           {admin: true},
	ReadAllWorkouts:         {admin: true},
	ReadOwnWorkouts:         {admin: true, member: true},
	ReadWorkoutStats:        {admin: true, member: true, memberOwned: true},
	ToggleWorkoutCompletion: {member: true, memberOwned: true},
	UpdateWorkout:           {admin: true, member: true, memberOwned: true},
	DeleteWorkout:           {admin: true},
	ListMembers:             {admin: true},
	DeleteMember:            {admin: true},
}

// Decide returns whether id may perform op given facts. It is pure and total.
func Decide(id identity.Identity, op Operation, facts Facts) Decision {
	r, ok := rules[op]
	if !ok {
		return Deny(RoleNotPermitted)
	}

	role, known := models.ParseRole(string(id.Role))
	if !known {
		return Deny(RoleNotPermitted)
	}

	switch role {
	case models.RoleAdmin:
		if r.admin {
			return Allow
		}
	case models.RoleMember:
		if !r.member {
			return Deny(RoleNotPermitted)
		}
		if r.memberOwned && facts.OwnerID != id.SubjectID {
			return Deny(NotOwner)
		}
		return Allow
	}
	return Deny(RoleNotPermitted)
}
