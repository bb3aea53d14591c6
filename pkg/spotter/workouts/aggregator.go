// Package workouts manages member workouts and derives progress statistics from them.
//
// Statistics are recomputed from the live workout rows on every call; there is no
// cached aggregate to invalidate.
package workouts

import (
	"context"
	"math"
	"strings"

	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"github.com/mikepea/spotter/pkg/spotter/database"
	"github.com/mikepea/spotter/pkg/spotter/identity"
	"github.com/mikepea/spotter/pkg/spotter/metrics"
	"github.com/mikepea/spotter/pkg/spotter/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// DefaultConcurrency bounds the number of snapshots computed at once by AllProgress.
const DefaultConcurrency = 8

// Members is the part of the user store the aggregator needs.
type Members interface {
	RequireMember(ctx context.Context, id uint) (*models.User, error)
	ListMembers(ctx context.Context) ([]models.User, error)
}

// Aggregator owns workouts and their derived progress.
type Aggregator struct {
	store       *database.Store
	members     Members
	concurrency int
}

// NewAggregator creates an Aggregator. concurrency below 1 uses DefaultConcurrency.
func NewAggregator(store *database.Store, members Members, concurrency int) *Aggregator {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{store: store, members: members, concurrency: concurrency}
}

// Plan is a workout assignment.
type Plan struct {
	UserID     uint
	EventTitle string
	Sets       int
	RepsOrSecs int
	RestTime   int
}

func (p Plan) validate() error {
	switch {
	case strings.TrimSpace(p.EventTitle) == "":
		return apperr.New(apperr.KindInvalidInput, "event title is required")
	case p.Sets < 1:
		return apperr.New(apperr.KindInvalidInput, "sets must be at least 1")
	case p.RepsOrSecs < 1:
		return apperr.New(apperr.KindInvalidInput, "reps or seconds must be at least 1")
	case p.RestTime < 0:
		return apperr.New(apperr.KindInvalidInput, "rest time cannot be negative")
	}
	return nil
}

// Changes is a partial workout edit. Nil fields are left alone.
type Changes struct {
	EventTitle *string
	Sets       *int
	RepsOrSecs *int
	RestTime   *int
}

func (c Changes) columns() (map[string]interface{}, error) {
	cols := map[string]interface{}{}
	if c.EventTitle != nil {
		if strings.TrimSpace(*c.EventTitle) == "" {
			return nil, apperr.New(apperr.KindInvalidInput, "event title cannot be blank")
		}
		cols["event_title"] = strings.TrimSpace(*c.EventTitle)
	}
	if c.Sets != nil {
		if *c.Sets < 1 {
			return nil, apperr.New(apperr.KindInvalidInput, "sets must be at least 1")
		}
		cols["sets"] = *c.Sets
	}
	if c.RepsOrSecs != nil {
		if *c.RepsOrSecs < 1 {
			return nil, apperr.New(apperr.KindInvalidInput, "reps or seconds must be at least 1")
		}
		cols["reps_or_secs"] = *c.RepsOrSecs
	}
	if c.RestTime != nil {
		if *c.RestTime < 0 {
			return nil, apperr.New(apperr.KindInvalidInput, "rest time cannot be negative")
		}
		cols["rest_time"] = *c.RestTime
	}
	if len(cols) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "no fields to update")
	}
	return cols, nil
}

// Create assigns a workout to a member.
func (a *Aggregator) Create(ctx context.Context, p Plan) (*models.Workout, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := a.requireMember(ctx, p.UserID); err != nil {
		return nil, err
	}

	workout := models.Workout{
		UserID:     p.UserID,
		EventTitle: strings.TrimSpace(p.EventTitle),
		Sets:       p.Sets,
		RepsOrSecs: p.RepsOrSecs,
		RestTime:   p.RestTime,
	}
	if err := a.store.Create(ctx, &workout); err != nil {
		return nil, err
	}
	return &workout, nil
}

// requireMember rejects targets that are not members as bad input.
func (a *Aggregator) requireMember(ctx context.Context, userID uint) error {
	if _, err := a.members.RequireMember(ctx, userID); err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.Wrap(apperr.KindInvalidInput, "workouts belong to members only", err)
		}
		return err
	}
	return nil
}

// List returns every workout, newest first.
func (a *Aggregator) List(ctx context.Context) ([]models.Workout, error) {
	var workouts []models.Workout
	if err := a.store.List(ctx, &workouts, "created_at DESC, id DESC"); err != nil {
		return nil, err
	}
	return workouts, nil
}

// ListForUser returns the workouts owned by userID, newest first.
func (a *Aggregator) ListForUser(ctx context.Context, userID uint) ([]models.Workout, error) {
	var workouts []models.Workout
	if err := a.store.List(ctx, &workouts, "created_at DESC, id DESC", database.Where("user_id = ?", userID)); err != nil {
		return nil, err
	}
	return workouts, nil
}

// ListForMember is ListForUser for an admin looking at a specific member.
func (a *Aggregator) ListForMember(ctx context.Context, userID uint) ([]models.Workout, error) {
	if err := a.requireMember(ctx, userID); err != nil {
		return nil, err
	}
	return a.ListForUser(ctx, userID)
}

// Get returns one workout. Members only see their own.
func (a *Aggregator) Get(ctx context.Context, actor identity.Identity, workoutID uint) (*models.Workout, error) {
	var workout models.Workout
	if err := a.store.Get(ctx, &workout, workoutID); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && workout.UserID != actor.SubjectID {
		return nil, apperr.Newf(apperr.KindForbidden, "workout %d belongs to user %d", workoutID, workout.UserID)
	}
	return &workout, nil
}

// Update edits a workout. A member's edit only applies to a workout they own;
// the owner check and the write are one conditional update.
func (a *Aggregator) Update(ctx context.Context, actor identity.Identity, workoutID uint, c Changes) (*models.Workout, error) {
	cols, err := c.columns()
	if err != nil {
		return nil, err
	}

	if actor.IsAdmin() {
		if err := a.store.Update(ctx, &models.Workout{}, workoutID, cols); err != nil {
			return nil, err
		}
	} else if err := a.updateOwned(ctx, workoutID, actor.SubjectID, cols); err != nil {
		return nil, err
	}

	var workout models.Workout
	if err := a.store.Get(ctx, &workout, workoutID); err != nil {
		return nil, err
	}
	return &workout, nil
}

// Delete removes a workout.
func (a *Aggregator) Delete(ctx context.Context, workoutID uint) error {
	return a.store.Delete(ctx, &models.Workout{}, workoutID)
}

// ToggleCompletion flips the completion flag of a workout owned by callerID.
func (a *Aggregator) ToggleCompletion(ctx context.Context, workoutID, callerID uint) (*models.Workout, error) {
	flip := map[string]interface{}{"is_completed": gorm.Expr("NOT is_completed")}

	err := a.updateOwned(ctx, workoutID, callerID, flip)
	if err != nil {
		metrics.RecordToggle(string(apperr.KindOf(err)))
		return nil, err
	}
	metrics.RecordToggle(metrics.OutcomeOK)

	var workout models.Workout
	if err := a.store.Get(ctx, &workout, workoutID); err != nil {
		return nil, err
	}
	return &workout, nil
}

// updateOwned applies cols only when ownerID owns the workout. When nothing was
// written it tells a missing workout apart from someone else's.
func (a *Aggregator) updateOwned(ctx context.Context, workoutID, ownerID uint, cols map[string]interface{}) error {
	applied, err := a.store.UpdateIf(ctx, &models.Workout{}, workoutID, database.Where("user_id = ?", ownerID), cols)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	var workout models.Workout
	if err := a.store.Get(ctx, &workout, workoutID); err != nil {
		return err
	}
	return apperr.Newf(apperr.KindForbidden, "workout %d belongs to user %d, not %d", workoutID, workout.UserID, ownerID)
}

// ProgressSnapshot is derived from a user's workouts at the time of the call.
// Averages and the completion rate (a percentage) are rounded to two decimals.
type ProgressSnapshot struct {
	UserID            uint    `json:"user_id"`
	TotalWorkouts     int     `json:"total_workouts"`
	CompletedWorkouts int     `json:"completed_workouts"`
	AverageSets       float64 `json:"average_sets"`
	AverageReps       float64 `json:"average_reps"`
	CompletionRate    float64 `json:"completion_rate"`
}

// Snapshot computes userID's progress from their live workouts.
func (a *Aggregator) Snapshot(ctx context.Context, userID uint) (ProgressSnapshot, error) {
	workouts, err := a.ListForUser(ctx, userID)
	if err != nil {
		return ProgressSnapshot{}, err
	}
	return summarize(userID, workouts), nil
}

func summarize(userID uint, workouts []models.Workout) ProgressSnapshot {
	snap := ProgressSnapshot{UserID: userID, TotalWorkouts: len(workouts)}
	if len(workouts) == 0 {
		return snap
	}

	var sets, reps int
	for _, w := range workouts {
		sets += w.Sets
		reps += w.RepsOrSecs
		if w.IsCompleted {
			snap.CompletedWorkouts++
		}
	}

	total := float64(len(workouts))
	snap.AverageSets = round2(float64(sets) / total)
	snap.AverageReps = round2(float64(reps) / total)
	snap.CompletionRate = round2(float64(snap.CompletedWorkouts) / total * 100)
	return snap
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MemberProgress is one row of the all-members progress listing.
type MemberProgress struct {
	UserID             uint    `json:"user_id"`
	Name               string  `json:"name"`
	Email              string  `json:"email"`
	TotalWorkouts      int     `json:"total_workouts"`
	CompletedWorkouts  int     `json:"completed_workouts"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// AllProgress snapshots every member, computing up to the configured number of
// snapshots at once. Rows keep the member listing order.
func (a *Aggregator) AllProgress(ctx context.Context) ([]MemberProgress, error) {
	members, err := a.members.ListMembers(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]MemberProgress, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, member := range members {
		i, member := i, member
		g.Go(func() error {
			snap, err := a.Snapshot(gctx, member.ID)
			if err != nil {
				return err
			}
			rows[i] = MemberProgress{
				UserID:             member.ID,
				Name:               member.Name,
				Email:              member.Email,
				TotalWorkouts:      snap.TotalWorkouts,
				CompletedWorkouts:  snap.CompletedWorkouts,
				ProgressPercentage: snap.CompletionRate,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}
