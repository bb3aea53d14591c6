// Package identity turns a bearer credential into the caller's current identity.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"github.com/mikepea/spotter/pkg/spotter/models"
)

// Identity is the authenticated caller for the lifetime of one request.
type Identity struct {
	SubjectID uint
	Role      models.Role
}

// IsAdmin reports whether the identity holds the admin role.
func (id Identity) IsAdmin() bool {
	role, _ := models.ParseRole(string(id.Role))
	return role == models.RoleAdmin
}

// TokenVerifier checks a credential's signature and expiry and returns its subject.
type TokenVerifier interface {
	VerifySubject(token string) (uint, error)
}

// UserFinder looks up users in the user store.
// Implementations return an error matching apperr.ErrNotFound for unknown users.
type UserFinder interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Resolver resolves credentials against the live user store.
type Resolver struct {
	verifier TokenVerifier
	users    UserFinder
}

// NewResolver creates a Resolver.
func NewResolver(verifier TokenVerifier, users UserFinder) *Resolver {
	return &Resolver{verifier: verifier, users: users}
}

// Resolve validates credential and returns the subject with the role it holds now.
// The role is looked up per call so role changes after issuance take effect immediately.
func (r *Resolver) Resolve(ctx context.Context, credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, apperr.New(apperr.KindInvalidCredential, "empty credential")
	}

	subjectID, err := r.verifier.VerifySubject(credential)
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.KindInvalidCredential, "verify credential", err)
	}

	user, err := r.users.FindUserByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Identity{}, apperr.Newf(apperr.KindUnknownSubject, "subject %d no longer exists", subjectID)
		}
		return Identity{}, apperr.Internal("look up subject", err)
	}

	role, ok := models.ParseRole(string(user.Role))
	if !ok {
		// Unrecognised roles are kept as-is; the decision engine denies them everything.
		role = user.Role
	}

	return Identity{SubjectID: user.ID, Role: role}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
