package workouts

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/spotter/pkg/spotter/access"
	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"github.com/mikepea/spotter/pkg/spotter/identity"
	"github.com/mikepea/spotter/pkg/spotter/mediator"
)

// Handler handles workout requests
type Handler struct {
	workouts *Aggregator
	mediator *mediator.Mediator
}

// NewHandler creates a new workouts handler
func NewHandler(workouts *Aggregator, m *mediator.Mediator) *Handler {
	return &Handler{workouts: workouts, mediator: m}
}

// CreateWorkoutRequest represents the request to assign a workout
type CreateWorkoutRequest struct {
	UserID     uint   `json:"user_id" binding:"required"`
	EventTitle string `json:"event_title" binding:"required"`
	Sets       int    `json:"sets" binding:"required,min=1"`
	RepsOrSecs int    `json:"reps_or_secs" binding:"required,min=1"`
	RestTime   int    `json:"rest_time" binding:"min=0"`
}

// UpdateWorkoutRequest represents a partial workout edit
type UpdateWorkoutRequest struct {
	EventTitle *string `json:"event_title"`
	Sets       *int    `json:"sets"`
	RepsOrSecs *int    `json:"reps_or_secs"`
	RestTime   *int    `json:"rest_time"`
}

// Create assigns a workout to a member
// @Summary Create a workout
// @Description Assign a workout to a member (admin only)
// @Tags workouts
// @Accept json
// @Produce json
// @Param request body CreateWorkoutRequest true "Workout details"
// @Success 201 {object} models.Workout
// @Failure 400 {object} mediator.ErrorResponse "Validation error or target is not a member"
// @Failure 403 {object} mediator.ErrorResponse "Operation not permitted"
// @Security BearerAuth
// @Router /workouts [post]
func (h *Handler) Create(c *gin.Context) {
	h.mediator.Serve(c, access.CreateWorkout, access.Facts{}, http.StatusCreated, func(ctx context.Context, _ identity.Identity) (interface{}, error) {
		var req CreateWorkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidInput, "bind workout", err)
		}
		return h.workouts.Create(ctx, Plan{
			UserID:     req.UserID,
			EventTitle: req.EventTitle,
			Sets:       req.Sets,
			RepsOrSecs: req.RepsOrSecs,
			RestTime:   req.RestTime,
		})
	})
}

// List returns all workouts
// @Summary List all workouts
// @Tags workouts
// @Produce json
// @Success 200 {array} models.Workout
// @Security BearerAuth
// @Router /workouts [get]
func (h *Handler) List(c *gin.Context) {
	h.mediator.Serve(c, access.ReadAllWorkouts, access.Facts{}, http.StatusOK, func(ctx context.Context, _ identity.Identity) (interface{}, error) {
		return h.workouts.List(ctx)
	})
}

// Mine returns the caller's workouts
// @Summary List my workouts
// @Tags workouts
// @Produce json
// @Success 200 {array} models.Workout
// @Security BearerAuth
// @Router /workouts/my-workout [get]
func (h *Handler) Mine(c *gin.Context) {
	h.mediator.Serve(c, access.ReadOwnWorkouts, access.Facts{}, http.StatusOK, func(ctx context.Context, id identity.Identity) (interface{}, error) {
		return h.workouts.ListForUser(ctx, id.SubjectID)
	})
}

// ForUser returns a member's workouts
// @Summary List a member's workouts
// @Tags workouts
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {array} models.Workout
// @Failure 400 {object} mediator.ErrorResponse "Not a member"
// @Security BearerAuth
// @Router /workouts/user/{userId} [get]
func (h *Handler) ForUser(c *gin.Context) {
	h.mediator.Serve(c, access.ReadAllWorkouts, access.Facts{}, http.StatusOK, func(ctx context.Context, _ identity.Identity) (interface{}, error) {
		userID, err := mediator.ParamID(c, "userId")
		if err != nil {
			return nil, err
		}
		return h.workouts.ListForMember(ctx, userID)
	})
}

// Stats returns a user's progress snapshot
// @Summary Get workout statistics
// @Description Progress derived from the user's current workouts. Members may only read their own.
// @Tags workouts
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} ProgressSnapshot
// @Failure 403 {object} mediator.ErrorResponse "Not the owner"
// @Security BearerAuth
// @Router /workouts/stats/{userId} [get]
func (h *Handler) Stats(c *gin.Context) {
	userID, err := mediator.ParamID(c, "userId")
	if err != nil {
		mediator.Fail(c, err)
		return
	}
	h.mediator.Serve(c, access.ReadWorkoutStats, access.Owned(userID), http.StatusOK, func(ctx context.Context, _ identity.Identity) (interface{}, error) {
		return h.workouts.Snapshot(ctx, userID)
	})
}

// AllProgress returns every member's progress
// @Summary List progress for all members
// @Tags workouts
// @Produce json
// @Success 200 {array} MemberProgress
// @Security BearerAuth
// @Router /workouts/users/all-progress [get]
func (h *Handler) AllProgress(c *gin.Context) {
	h.mediator.Serve(c, access.ReadAllWorkouts, access.Facts{}, http.StatusOK, func(ctx context.Context, _ identity.Identity) (interface{}, error) {
		return h.workouts.AllProgress(ctx)
	})
}

// Get returns one workout
// @Summary Get a workout
// @Tags workouts
// @Produce json
// @Param id path int true "Workout ID"
// @Success 200 {object} models.Workout
// @Failure 403 {object} mediator.ErrorResponse "Not the owner"
// @Failure 404 {object} mediator.ErrorResponse "Workout not found"
// @Security BearerAuth
// @Router /workouts/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	h.mediator.Serve(c, access.ReadOwnWorkouts, access.Facts{}, http.StatusOK, func(ctx context.Context, id identity.Identity) (interface{}, error) {
		workoutID, err := mediator.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		return h.workouts.Get(ctx, id, workoutID)
	})
}

// Update edits a workout
// @Summary Update a workout
// @Description Edit workout fields. Members may only edit their own workouts.
// @Tags workouts
// @Accept json
// @Produce json
// @Param id path int true "Workout ID"
// @Param request body UpdateWorkoutRequest true "Fields to change"
// @Success 200 {object} models.Workout
// @Failure 403 {object} mediator.ErrorResponse "Not the owner"
// @Failure 404 {object} mediator.ErrorResponse "Workout not found"
// @Security BearerAuth
// @Router /workouts/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	h.mediator.Serve(c, access.UpdateWorkout, mediator.CallerFacts(c), http.StatusOK, func(ctx context.Context, id identity.Identity) (interface{}, error) {
		workoutID, err := mediator.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		var req UpdateWorkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidInput, "bind workout changes", err)
		}
		return h.workouts.Update(ctx, id, workoutID, Changes{
			EventTitle: req.EventTitle,
			Sets:       req.Sets,
			RepsOrSecs: req.RepsOrSecs,
			RestTime:   req.RestTime,
		})
	})
}

// ToggleCompletion flips a workout's completion flag
// @Summary Toggle workout completion
// @Description Mark the caller's workout done or not done (members only)
// @Tags workouts
// @Produce json
// @Param id path int true "Workout ID"
// @Success 200 {object} models.Workout
// @Failure 403 {object} mediator.ErrorResponse "Not the owner"
// @Failure 404 {object} mediator.ErrorResponse "Workout not found"
// @Security BearerAuth
// @Router /workouts/{id}/toggle-completion [patch]
func (h *Handler) ToggleCompletion(c *gin.Context) {
	h.mediator.Serve(c, access.ToggleWorkoutCompletion, mediator.CallerFacts(c), http.StatusOK, func(ctx context.Context, id identity.Identity) (interface{}, error) {
		workoutID, err := mediator.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		return h.workouts.ToggleCompletion(ctx, workoutID, id.SubjectID)
	})
}

// Delete removes a workout
// @Summary Delete a workout
// @Tags workouts
// @Produce json
// @Param id path int true "Workout ID"
// @Success 200 {object} map[string]string "Workout deleted"
// @Failure 404 {object} mediator.ErrorResponse "Workout not found"
// @Security BearerAuth
// @Router /workouts/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	h.mediator.Serve(c, access.DeleteWorkout, access.Facts{}, http.StatusOK, func(ctx context.Context, _ identity.Identity) (interface{}, error) {
		workoutID, err := mediator.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		if err := h.workouts.Delete(ctx, workoutID); err != nil {
			return nil, err
		}
		return mediator.Message("Workout deleted"), nil
	})
}

// RegisterRoutes registers workout routes on an authenticated router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/my-workout", h.Mine)
	rg.GET("/user/:userId", h.ForUser)
	rg.GET("/stats/:userId", h.Stats)
	rg.GET("/users/all-progress", h.AllProgress)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.PATCH("/:id/toggle-completion", h.ToggleCompletion)
	rg.DELETE("/:id", h.Delete)
}
