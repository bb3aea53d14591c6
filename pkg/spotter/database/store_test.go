package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"github.com/mikepea/spotter/pkg/spotter/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestStore(t *testing.T) *Store {
	db, err := Connect(DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return NewStore(db)
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "whatever", nil)
	assert.Error(t, err)
}

func TestGetMissingRecordIsNotFound(t *testing.T) {
	store := setupTestStore(t)

	var event models.Event
	err := store.Get(context.Background(), &event, 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCreateDuplicateIsTranslated(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &models.User{Email: "a@example.com", Name: "A"}))
	err := store.Create(ctx, &models.User{Email: "a@example.com", Name: "B"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUpdateIf(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	event := models.Event{Title: "Yoga", Date: "2025-06-01", Time: "09:00", MaxParticipants: 1, CreatedByID: 1}
	require.NoError(t, store.Create(ctx, &event))

	seat := map[string]interface{}{"current_participants": gorm.Expr("current_participants + ?", 1)}
	hasRoom := Where("current_participants < max_participants")

	applied, err := store.UpdateIf(ctx, &models.Event{}, event.ID, hasRoom, seat)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.UpdateIf(ctx, &models.Event{}, event.ID, hasRoom, seat)
	require.NoError(t, err)
	assert.False(t, applied, "second seat must not be granted")

	var loaded models.Event
	require.NoError(t, store.Get(ctx, &loaded, event.ID))
	assert.Equal(t, 1, loaded.CurrentParticipants)
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.Update(ctx, &models.Workout{}, 99, map[string]interface{}{"sets": 4})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = store.Delete(ctx, &models.Workout{}, 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListAndCount(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &models.Workout{UserID: 1, EventTitle: "Row", Sets: 3, RepsOrSecs: 10}))
	require.NoError(t, store.Create(ctx, &models.Workout{UserID: 1, EventTitle: "Run", Sets: 1, RepsOrSecs: 600, IsCompleted: true}))
	require.NoError(t, store.Create(ctx, &models.Workout{UserID: 2, EventTitle: "Row", Sets: 3, RepsOrSecs: 10}))

	var workouts []models.Workout
	require.NoError(t, store.List(ctx, &workouts, "id", Where("user_id = ?", 1)))
	assert.Len(t, workouts, 2)
	assert.Equal(t, "Row", workouts[0].EventTitle)

	n, err := store.Count(ctx, &models.Workout{}, Where("is_completed = ?", true))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestTransactionRollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx *Store) error {
		if err := tx.Create(ctx, &models.Workout{UserID: 1, EventTitle: "Row", Sets: 3, RepsOrSecs: 10}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := store.Count(ctx, &models.Workout{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransactionHonoursCancelledContext(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Transaction(ctx, func(tx *Store) error {
		return tx.Create(ctx, &models.Workout{UserID: 1, EventTitle: "Row", Sets: 3, RepsOrSecs: 10})
	})
	assert.Error(t, err)

	n, err := store.Count(context.Background(), &models.Workout{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPurgeBypassesSoftDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := models.User{Email: "gone@example.com", Name: "Gone"}
	require.NoError(t, store.Create(ctx, &user))
	require.NoError(t, store.Purge(ctx, &models.User{}, user.ID))

	var remaining int64
	require.NoError(t, store.DB(ctx).Unscoped().Model(&models.User{}).Count(&remaining).Error)
	assert.Zero(t, remaining)

	// the email is free again
	require.NoError(t, store.Create(ctx, &models.User{Email: "gone@example.com", Name: "Back"}))

	err := store.Purge(ctx, &models.User{}, user.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExpectedMissesAreNotLoggedAsErrors(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	db, err := Connect(DriverSQLite, ":memory:", log)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	store := NewStore(db)
	ctx := context.Background()

	var event models.Event
	assert.ErrorIs(t, store.Get(ctx, &event, 7), apperr.ErrNotFound)

	require.NoError(t, store.Create(ctx, &models.User{Email: "dup@example.com", Name: "A"}))
	assert.ErrorIs(t, store.Create(ctx, &models.User{Email: "dup@example.com", Name: "B"}), ErrDuplicate)

	assert.NotContains(t, buf.String(), "level=ERROR")

	// real failures still reach the logger
	require.Error(t, store.DB(ctx).Exec("SELECT * FROM no_such_table").Error)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "no_such_table")
}
