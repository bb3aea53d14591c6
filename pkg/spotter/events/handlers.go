package events

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/spotter/pkg/spotter/access"
	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"github.com/mikepea/spotter/pkg/spotter/identity"
	"github.com/mikepea/spotter/pkg/spotter/mediator"
)

// Handler handles event requests
type Handler struct {
	events   *Manager
	mediator *mediator.Mediator
}

// NewHandler creates a new events handler
func NewHandler(events *Manager, m *mediator.Mediator) *Handler {
	return &Handler{events: events, mediator: m}
}

// EventRequest represents the request to create or update an event
type EventRequest struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	Date            string `json:"date" binding:"required" example:"2025-06-01"`
	Time            string `json:"time" binding:"required" example:"18:30"`
	Location        string `json:"location"`
	MaxParticipants int    `json:"max_participants" binding:"required,min=1"`
}

func (r EventRequest) details() Details {
	return Details{
		Title:           r.Title,
		Description:     r.Description,
		Date:            r.Date,
		Time:            r.Time,
		Location:        r.Location,
		MaxParticipants: r.MaxParticipants,
	}
}

func bindEvent(c *gin.Context) (Details, error) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return Details{}, apperr.Wrap(apperr.KindInvalidInput, "bind event", err)
	}
	return req.details(), nil
}

// Create creates a new event
// @Summary Create an event
// @Description Schedule a new event (admin only)
// @Tags events
// @Accept json
// @Produce json
// @Param request body EventRequest true "Event details"
// @Success 201 {object} models.Event
// @Failure 400 {object} mediator.ErrorResponse "Validation error"
// @Failure 403 {object} mediator.ErrorResponse "Operation not permitted"
// @Security BearerAuth
// @Router /events [post]
func (h *Handler) Create(c *gin.Context) {
	h.mediator.Serve(c, access.CreateEvent, access.Facts{}, http.StatusCreated, func(ctx context.Context, id identity.Identity) (interface{}, error) {
		d, err := bindEvent(c)
		if err != nil {
			return nil, err
		}
		return h.events.Create(ctx, id.SubjectID, d)
	})
}

// List returns all events
// @Summary List events
// @Description Get all scheduled events
// @Tags events
// @Produce json
// @Success 200 {array} models.Event
// @Security BearerAuth
// @Router /events [get]
func (h *Handler) List(c *gin.Context) {
	h.mediator.Serve(c, access.ReadEvents, access.Facts{}, http.StatusOK, func(ctx context.Context, _ identity.Identity) (interface{}, error) {
		return h.events.List(ctx)
	})
}

// Joined returns the events the caller has joined
// @Summary List joined events
// @Description Get the events the authenticated user has joined
// @Tags events
// @Produce json
// @Success 200 {array} models.Event
// @Security BearerAuth
// @Router /events/joined [get]
func (h *Handler) Joined(c *gin.Context) {
	h.mediator.Serve(c, access.ReadEvents, access.Facts{}, http.StatusOK, func(ctx context.Context, id identity.Identity) (interface{}, error) {
		return h.events.JoinedBy(ctx, id.SubjectID)
	})
}

// Get returns a single event
// @Summary Get an event
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} models.Event
// @Failure 404 {object} mediator.ErrorResponse "Event not found"
// @Security BearerAuth
// @Router /events/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	h.mediator.Serve(c, access.ReadEvents, access.Facts{}, http.StatusOK, func(ctx context.Context, _ identity.Identity) (interface{}, error) {
		eventID, err := mediator.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		return h.events.Get(ctx, eventID)
	})
}

// Update updates an event
// @Summary Update an event
// @Description Replace an event's details (admin only). Capacity cannot drop below current sign-ups.
// @Tags events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param request body EventRequest true "Event details"
// @Success 200 {object} models.Event
// @Failure 400 {object} mediator.ErrorResponse "Validation error"
// @Failure 404 {object} mediator.ErrorResponse "Event not found"
// @Security BearerAuth
// @Router /events/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	h.mediator.Serve(c, access.UpdateEvent, access.Facts{}, http.StatusOK, func(ctx context.Context, _ identity.Identity) (interface{}, error) {
		eventID, err := mediator.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		d, err := bindEvent(c)
		if err != nil {
			return nil, err
		}
		return h.events.Update(ctx, eventID, d)
	})
}

// Delete deletes an event
// @Summary Delete an event
// @Description Delete an event and all of its participations (admin only)
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} map[string]string "Event deleted"
// @Failure 404 {object} mediator.ErrorResponse "Event not found"
// @Security BearerAuth
// @Router /events/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	h.mediator.Serve(c, access.DeleteEvent, access.Facts{}, http.StatusOK, func(ctx context.Context, _ identity.Identity) (interface{}, error) {
		eventID, err := mediator.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		if err := h.events.Delete(ctx, eventID); err != nil {
			return nil, err
		}
		return mediator.Message("Event deleted"), nil
	})
}

// Participants lists an event's participants
// @Summary List participants
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {array} Participant
// @Failure 404 {object} mediator.ErrorResponse "Event not found"
// @Security BearerAuth
// @Router /events/{id}/participants [get]
func (h *Handler) Participants(c *gin.Context) {
	h.mediator.Serve(c, access.ReadEvents, access.Facts{}, http.StatusOK, func(ctx context.Context, _ identity.Identity) (interface{}, error) {
		eventID, err := mediator.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		return h.events.Participants(ctx, eventID)
	})
}

// Join signs the caller up for an event
// @Summary Join an event
// @Description Take one seat in an event (members only)
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 201 {object} models.EventParticipation
// @Failure 404 {object} mediator.ErrorResponse "Event not found"
// @Failure 409 {object} mediator.ErrorResponse "Event full or already joined"
// @Security BearerAuth
// @Router /events/{id}/join [post]
func (h *Handler) Join(c *gin.Context) {
	h.mediator.Serve(c, access.JoinEvent, access.Facts{}, http.StatusCreated, func(ctx context.Context, id identity.Identity) (interface{}, error) {
		eventID, err := mediator.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		return h.events.Join(ctx, eventID, id.SubjectID)
	})
}

// Leave removes the caller from an event
// @Summary Leave an event
// @Description Give up the caller's seat in an event (members only)
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} map[string]string "Left event"
// @Failure 404 {object} mediator.ErrorResponse "Not joined"
// @Security BearerAuth
// @Router /events/{id}/leave [delete]
func (h *Handler) Leave(c *gin.Context) {
	h.mediator.Serve(c, access.LeaveEvent, access.Facts{}, http.StatusOK, func(ctx context.Context, id identity.Identity) (interface{}, error) {
		eventID, err := mediator.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		if err := h.events.Leave(ctx, eventID, id.SubjectID); err != nil {
			return nil, err
		}
		return mediator.Message("Left event"), nil
	})
}

// RegisterRoutes registers event routes on an authenticated router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/joined", h.Joined)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/participants", h.Participants)
	rg.POST("/:id/join", h.Join)
	rg.DELETE("/:id/leave", h.Leave)
}
