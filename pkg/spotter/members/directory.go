// Package members is the user store: lookups for identity resolution, member
// registration and the admin-side member lifecycle.
package members

import (
	"context"
	"errors"
	"strings"

	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"github.com/mikepea/spotter/pkg/spotter/database"
	"github.com/mikepea/spotter/pkg/spotter/models"
)

// Withdrawer removes a user from every event they joined, inside the caller's transaction.
type Withdrawer interface {
	WithdrawUser(ctx context.Context, tx *database.Store, userID uint) (int, error)
}

// Directory implements user lookups and member management over the record store.
type Directory struct {
	store    *database.Store
	withdraw Withdrawer
}

// NewDirectory creates a Directory. withdraw may be nil when members never join events.
func NewDirectory(store *database.Store, withdraw Withdrawer) *Directory {
	return &Directory{store: store, withdraw: withdraw}
}

// FindUserByID returns the live user with the given id.
func (d *Directory) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := d.store.Get(ctx, &user, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByEmail returns the live user with the given email.
func (d *Directory) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var users []models.User
	if err := d.store.List(ctx, &users, "", database.Where("email = ?", normalizeEmail(email))); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperr.Newf(apperr.KindNotFound, "no user with email %q", email)
	}
	return &users[0], nil
}

// CreateUser stores a new user. Registration always goes through here.
func (d *Directory) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = models.RoleMember
	}
	if err := d.store.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return apperr.Wrap(apperr.KindConflict, "email already registered", err)
		}
		return err
	}
	return nil
}

// ListMembers returns every user holding the member role, oldest first.
func (d *Directory) ListMembers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := d.store.List(ctx, &users, "created_at ASC, id ASC", database.Where("LOWER(role) = ?", string(models.RoleMember))); err != nil {
		return nil, err
	}
	return users, nil
}

// RequireMember returns the user with the given id, or NOT_FOUND unless it is a member.
func (d *Directory) RequireMember(ctx context.Context, id uint) (*models.User, error) {
	user, err := d.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role, _ := models.ParseRole(string(user.Role)); role != models.RoleMember {
		return nil, apperr.Newf(apperr.KindNotFound, "user %d is not a member", id)
	}
	return user, nil
}

// Removal summarizes what DeleteMember removed.
type Removal struct {
	UserID          uint `json:"user_id"`
	EventsLeft      int  `json:"events_left"`
	WorkoutsRemoved int  `json:"workouts_removed"`
}

// DeleteMember removes a member with everything they own in one transaction:
// their event seats are released, their workouts deleted, then the account purged.
// Admin accounts cannot be removed this way.
func (d *Directory) DeleteMember(ctx context.Context, actorID, userID uint) (*Removal, error) {
	if actorID == userID {
		return nil, apperr.New(apperr.KindForbidden, "admins cannot delete their own account")
	}

	removal := &Removal{UserID: userID}
	err := d.store.Transaction(ctx, func(tx *database.Store) error {
		var user models.User
		if err := tx.Get(ctx, &user, userID); err != nil {
			return err
		}
		if role, _ := models.ParseRole(string(user.Role)); role != models.RoleMember {
			return apperr.Newf(apperr.KindForbidden, "user %d is not a member", userID)
		}

		if d.withdraw != nil {
			left, err := d.withdraw.WithdrawUser(ctx, tx, userID)
			if err != nil {
				return err
			}
			removal.EventsLeft = left
		}

		removed, err := tx.DeleteWhere(ctx, &models.Workout{}, database.Where("user_id = ?", userID))
		if err != nil {
			return err
		}
		removal.WorkoutsRemoved = int(removed)

		return tx.Purge(ctx, &models.User{}, userID)
	})
	if err != nil {
		return nil, err
	}
	return removal, nil
}

// EnsureAdmin creates the given admin account when the store holds no admin yet.
// It reports whether an account was created.
func (d *Directory) EnsureAdmin(ctx context.Context, admin *models.User) (bool, error) {
	n, err := d.store.Count(ctx, &models.User{}, database.Where("LOWER(role) = ?", string(models.RoleAdmin)))
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	admin.Role = models.RoleAdmin
	if err := d.CreateUser(ctx, admin); err != nil {
		return false, err
	}
	return true, nil
}

// GymStats are gym-wide totals for the admin dashboard.
type GymStats struct {
	Members           int64 `json:"members"`
	Admins            int64 `json:"admins"`
	Events            int64 `json:"events"`
	Participations    int64 `json:"participations"`
	Workouts          int64 `json:"workouts"`
	CompletedWorkouts int64 `json:"completed_workouts"`
}

// Stats counts users, events and workouts.
func (d *Directory) Stats(ctx context.Context) (*GymStats, error) {
	var stats GymStats
	counts := []struct {
		dest  *int64
		model interface{}
		conds []database.Condition
	}{
		{&stats.Members, &models.User{}, []database.Condition{database.Where("LOWER(role) = ?", string(models.RoleMember))}},
		{&stats.Admins, &models.User{}, []database.Condition{database.Where("LOWER(role) = ?", string(models.RoleAdmin))}},
		{&stats.Events, &models.Event{}, nil},
		{&stats.Participations, &models.EventParticipation{}, nil},
		{&stats.Workouts, &models.Workout{}, nil},
		{&stats.CompletedWorkouts, &models.Workout{}, []database.Condition{database.Where("is_completed = ?", true)}},
	}
	for _, c := range counts {
		n, err := d.store.Count(ctx, c.model, c.conds...)
		if err != nil {
			return nil, err
		}
		*c.dest = n
	}
	return &stats, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
