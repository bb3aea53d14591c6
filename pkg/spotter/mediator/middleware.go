package mediator

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/spotter/pkg/spotter/access"
	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"github.com/mikepea/spotter/pkg/spotter/identity"
)

// ContextKeyIdentity is the key for the resolved identity in gin context
const ContextKeyIdentity = "identity"

// Authenticate resolves the caller once per request and stores the identity in context.
func (m *Mediator) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := m.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			Fail(c, err)
			return
		}
		c.Set(ContextKeyIdentity, id)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(c *gin.Context) (identity.Identity, bool) {
	v, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok
}

// Serve runs op for the authenticated caller and writes the result with status.
func (m *Mediator) Serve(c *gin.Context, op access.Operation, facts access.Facts, status int, action Action) {
	id, ok := IdentityFrom(c)
	if !ok {
		Fail(c, apperr.New(apperr.KindInvalidCredential, "request reached "+op.String()+" unauthenticated"))
		return
	}

	result, err := m.Perform(c.Request.Context(), id, op, facts, action)
	if err != nil {
		Fail(c, err)
		return
	}

	if result == nil {
		c.Status(status)
		return
	}
	c.JSON(status, result)
}

// CallerFacts returns ownership facts naming the caller as owner.
// Used where the owner is only known after reading the record. With these facts
// the access decision only checks the role and never yields NOT_OWNER; the
// domain layer enforces the real owner and answers FORBIDDEN instead.
func CallerFacts(c *gin.Context) access.Facts {
	id, _ := IdentityFrom(c)
	return access.Owned(id.SubjectID)
}

// ParamID parses a numeric path parameter.
func ParamID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Newf(apperr.KindInvalidInput, "invalid %s %q", name, c.Param(name))
	}
	return uint(id), nil
}

// Message is the body of successful operations that return no record.
func Message(text string) gin.H {
	return gin.H{"message": text}
}
