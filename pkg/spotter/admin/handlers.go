// Package admin serves the gym administration endpoints.
package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/spotter/pkg/spotter/access"
	"github.com/mikepea/spotter/pkg/spotter/identity"
	"github.com/mikepea/spotter/pkg/spotter/mediator"
	"github.com/mikepea/spotter/pkg/spotter/members"
	"github.com/mikepea/spotter/pkg/spotter/models"
)

// Handler handles admin requests
type Handler struct {
	members  *members.Directory
	mediator *mediator.Mediator
}

// NewHandler creates a new admin handler
func NewHandler(dir *members.Directory, m *mediator.Mediator) *Handler {
	return &Handler{members: dir, mediator: m}
}

// MemberResponse represents a member in admin responses
type MemberResponse struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func memberToResponse(user models.User) MemberResponse {
	return MemberResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ListMembers returns all members
// @Summary List members
// @Description Get every user holding the member role (admin only)
// @Tags admin
// @Produce json
// @Success 200 {array} MemberResponse
// @Failure 403 {object} mediator.ErrorResponse "Operation not permitted"
// @Security BearerAuth
// @Router /admin/users/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	h.mediator.Serve(c, access.ListMembers, access.Facts{}, http.StatusOK, func(ctx context.Context, _ identity.Identity) (interface{}, error) {
		users, err := h.members.ListMembers(ctx)
		if err != nil {
			return nil, err
		}
		responses := make([]MemberResponse, len(users))
		for i, user := range users {
			responses[i] = memberToResponse(user)
		}
		return responses, nil
	})
}

// DeleteMember removes a member and everything they own
// @Summary Delete a member
// @Description Withdraw the member from all events, delete their workouts, then delete the account (admin only)
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} members.Removal
// @Failure 403 {object} mediator.ErrorResponse "Target is an admin"
// @Failure 404 {object} mediator.ErrorResponse "User not found"
// @Security BearerAuth
// @Router /admin/users/members/{id} [delete]
func (h *Handler) DeleteMember(c *gin.Context) {
	h.mediator.Serve(c, access.DeleteMember, access.Facts{}, http.StatusOK, func(ctx context.Context, id identity.Identity) (interface{}, error) {
		userID, err := mediator.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		return h.members.DeleteMember(ctx, id.SubjectID, userID)
	})
}

// Stats returns gym-wide statistics
// @Summary Get gym statistics
// @Tags admin
// @Produce json
// @Success 200 {object} members.GymStats
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	h.mediator.Serve(c, access.ListMembers, access.Facts{}, http.StatusOK, func(ctx context.Context, _ identity.Identity) (interface{}, error) {
		return h.members.Stats(ctx)
	})
}

// RegisterRoutes registers admin routes on an authenticated router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/members", h.ListMembers)
	rg.DELETE("/users/members/:id", h.DeleteMember)
	rg.GET("/stats", h.Stats)
}
