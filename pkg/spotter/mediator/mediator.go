// Package mediator orchestrates every request through the core:
// resolve the identity, decide access, then run the domain operation.
//
// Nothing reaches the record store before the access decision, and every failure
// leaves through Fail, which owns the error kind to HTTP status mapping.
package mediator

import (
	"context"

	"github.com/mikepea/spotter/pkg/spotter/access"
	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"github.com/mikepea/spotter/pkg/spotter/identity"
	"github.com/mikepea/spotter/pkg/spotter/metrics"
)

// IdentityResolver resolves bearer credentials.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (identity.Identity, error)
}

// Action is the domain step of an operation. It runs only after access was granted.
type Action func(ctx context.Context, id identity.Identity) (interface{}, error)

// Mediator sequences identity resolution, access decisions and domain actions.
type Mediator struct {
	resolver IdentityResolver
}

// New creates a Mediator.
func New(resolver IdentityResolver) *Mediator {
	return &Mediator{resolver: resolver}
}

// Resolve resolves the identity behind an Authorization header value.
func (m *Mediator) Resolve(ctx context.Context, authorization string) (identity.Identity, error) {
	token, ok := identity.BearerToken(authorization)
	if !ok {
		return identity.Identity{}, apperr.New(apperr.KindInvalidCredential, "missing or malformed authorization header")
	}
	return m.resolver.Resolve(ctx, token)
}

// Perform decides access for op and, when allowed, runs action.
// A denial returns before action is called.
func (m *Mediator) Perform(ctx context.Context, id identity.Identity, op access.Operation, facts access.Facts, action Action) (interface{}, error) {
	decision := access.Decide(id, op, facts)
	if !decision.Allowed {
		metrics.RecordDecision(op.String(), string(decision.Reason))
		return nil, denial(id, op, decision.Reason)
	}
	metrics.RecordDecision(op.String(), "allow")

	if err := ctx.Err(); err != nil {
		return nil, apperr.Internal("request cancelled before "+op.String(), err)
	}
	return action(ctx, id)
}

func denial(id identity.Identity, op access.Operation, reason access.Reason) error {
	kind := apperr.KindRoleNotPermitted
	if reason == access.NotOwner {
		kind = apperr.KindNotOwner
	}
	return apperr.Newf(kind, "subject %d (%s) denied %s", id.SubjectID, id.Role, op)
}
