// Package events manages gym events and keeps their participant counters
// consistent with the participation records.
package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"github.com/mikepea/spotter/pkg/spotter/database"
	"github.com/mikepea/spotter/pkg/spotter/metrics"
	"github.com/mikepea/spotter/pkg/spotter/models"
	"gorm.io/gorm"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var (
	hasSeat     = database.Where("current_participants < max_participants")
	hasOccupant = database.Where("current_participants > 0")
)

func seatDelta(n int) map[string]interface{} {
	return map[string]interface{}{"current_participants": gorm.Expr("current_participants + ?", n)}
}

// Manager owns events and their participations.
//
// Join and leave for one event run under a per-event lock, and the counter only
// moves through conditional updates, so capacity holds even across processes.
type Manager struct {
	store *database.Store
	locks *keyedMutex
}

// NewManager creates a Manager.
func NewManager(store *database.Store) *Manager {
	return &Manager{store: store, locks: newKeyedMutex()}
}

// Details are the admin-editable fields of an event.
type Details struct {
	Title           string
	Description     string
	Date            string
	Time            string
	Location        string
	MaxParticipants int
}

func (d Details) validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return apperr.New(apperr.KindInvalidInput, "title is required")
	}
	if _, err := time.Parse(dateLayout, d.Date); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "date must be YYYY-MM-DD", err)
	}
	if _, err := time.Parse(timeLayout, d.Time); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "time must be HH:MM", err)
	}
	if d.MaxParticipants < 1 {
		return apperr.New(apperr.KindInvalidInput, "max participants must be at least 1")
	}
	return nil
}

// Create stores a new event with no participants.
func (m *Manager) Create(ctx context.Context, createdBy uint, d Details) (*models.Event, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	event := models.Event{
		Title:           strings.TrimSpace(d.Title),
		Description:     d.Description,
		Date:            d.Date,
		Time:            d.Time,
		Location:        d.Location,
		MaxParticipants: d.MaxParticipants,
		CreatedByID:     createdBy,
	}
	if err := m.store.Create(ctx, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns all events in schedule order.
func (m *Manager) List(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := m.store.List(ctx, &events, "date ASC, time ASC, id ASC"); err != nil {
		return nil, err
	}
	return events, nil
}

// Get returns one event.
func (m *Manager) Get(ctx context.Context, eventID uint) (*models.Event, error) {
	var event models.Event
	if err := m.store.Get(ctx, &event, eventID); err != nil {
		return nil, err
	}
	return &event, nil
}

// Update replaces the editable fields of an event. Capacity cannot drop below
// the number of members already signed up.
func (m *Manager) Update(ctx context.Context, eventID uint, d Details) (*models.Event, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(eventID)
	defer unlock()

	changes := map[string]interface{}{
		"title":            strings.TrimSpace(d.Title),
		"description":      d.Description,
		"date":             d.Date,
		"time":             d.Time,
		"location":         d.Location,
		"max_participants": d.MaxParticipants,
	}

	var event models.Event
	err := m.store.Transaction(ctx, func(tx *database.Store) error {
		applied, err := tx.UpdateIf(ctx, &models.Event{}, eventID, database.Where("current_participants <= ?", d.MaxParticipants), changes)
		if err != nil {
			return err
		}
		if !applied {
			if err := tx.Get(ctx, &event, eventID); err != nil {
				return err
			}
			return apperr.Newf(apperr.KindInvalidInput, "event %d already has %d participants", eventID, event.CurrentParticipants)
		}
		return tx.Get(ctx, &event, eventID)
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Delete removes an event together with all of its participations.
func (m *Manager) Delete(ctx context.Context, eventID uint) error {
	unlock := m.locks.Lock(eventID)
	defer unlock()

	return m.store.Transaction(ctx, func(tx *database.Store) error {
		if _, err := tx.DeleteWhere(ctx, &models.EventParticipation{}, database.Where("event_id = ?", eventID)); err != nil {
			return err
		}
		return tx.Delete(ctx, &models.Event{}, eventID)
	})
}

// Join signs userID up for eventID.
func (m *Manager) Join(ctx context.Context, eventID, userID uint) (*models.EventParticipation, error) {
	unlock := m.locks.Lock(eventID)
	defer unlock()

	var participation models.EventParticipation
	err := m.store.Transaction(ctx, func(tx *database.Store) error {
		var event models.Event
		if err := tx.Get(ctx, &event, eventID); err != nil {
			return err
		}

		joined, err := tx.Count(ctx, &models.EventParticipation{}, database.Where("event_id = ? AND user_id = ?", eventID, userID))
		if err != nil {
			return err
		}
		if joined > 0 {
			return apperr.Newf(apperr.KindAlreadyJoined, "user %d already joined event %d", userID, eventID)
		}

		applied, err := tx.UpdateIf(ctx, &models.Event{}, eventID, hasSeat, seatDelta(1))
		if err != nil {
			return err
		}
		if !applied {
			return apperr.Newf(apperr.KindFull, "event %d is full", eventID)
		}

		participation = models.EventParticipation{EventID: eventID, UserID: userID, JoinedAt: time.Now().UTC()}
		if err := tx.Create(ctx, &participation); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return apperr.Wrap(apperr.KindAlreadyJoined, "concurrent join", err)
			}
			return err
		}
		return nil
	})
	metrics.RecordParticipation("join", outcome(err))
	if err != nil {
		return nil, err
	}
	return &participation, nil
}

// Leave removes userID from eventID.
func (m *Manager) Leave(ctx context.Context, eventID, userID uint) error {
	unlock := m.locks.Lock(eventID)
	defer unlock()

	err := m.store.Transaction(ctx, func(tx *database.Store) error {
		return release(ctx, tx, eventID, userID)
	})
	metrics.RecordParticipation("leave", outcome(err))
	return err
}

// WithdrawUser releases every seat held by userID inside tx and returns how many
// events were left. It takes no event locks; the conditional counter update keeps
// it safe next to concurrent joins.
func (m *Manager) WithdrawUser(ctx context.Context, tx *database.Store, userID uint) (int, error) {
	var participations []models.EventParticipation
	if err := tx.List(ctx, &participations, "id ASC", database.Where("user_id = ?", userID)); err != nil {
		return 0, err
	}
	for _, p := range participations {
		if err := release(ctx, tx, p.EventID, userID); err != nil {
			return 0, err
		}
	}
	return len(participations), nil
}

func release(ctx context.Context, tx *database.Store, eventID, userID uint) error {
	removed, err := tx.DeleteWhere(ctx, &models.EventParticipation{}, database.Where("event_id = ? AND user_id = ?", eventID, userID))
	if err != nil {
		return err
	}
	if removed == 0 {
		return apperr.Newf(apperr.KindNotFound, "user %d has not joined event %d", userID, eventID)
	}

	applied, err := tx.UpdateIf(ctx, &models.Event{}, eventID, hasOccupant, seatDelta(-1))
	if err != nil {
		return err
	}
	if !applied {
		return apperr.Newf(apperr.KindCapacityUnderflow, "event %d counter already at zero", eventID)
	}
	return nil
}

// Participant is a member signed up for an event.
type Participant struct {
	UserID   uint      `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

// Participants lists who joined eventID, in join order.
func (m *Manager) Participants(ctx context.Context, eventID uint) ([]Participant, error) {
	if _, err := m.Get(ctx, eventID); err != nil {
		return nil, err
	}

	var participants []Participant
	err := m.store.DB(ctx).
		Table("event_participations").
		Select("users.id AS user_id, users.name, users.email, event_participations.joined_at").
		Joins("JOIN users ON users.id = event_participations.user_id AND users.deleted_at IS NULL").
		Where("event_participations.event_id = ?", eventID).
		Order("event_participations.joined_at ASC, event_participations.id ASC").
		Scan(&participants).Error
	if err != nil {
		return nil, apperr.Internal("list participants", err)
	}
	return participants, nil
}

// JoinedBy returns the events userID has joined, in schedule order.
func (m *Manager) JoinedBy(ctx context.Context, userID uint) ([]models.Event, error) {
	var events []models.Event
	err := m.store.DB(ctx).
		Joins("JOIN event_participations ON event_participations.event_id = events.id").
		Where("event_participations.user_id = ?", userID).
		Order("events.date ASC, events.time ASC, events.id ASC").
		Find(&events).Error
	if err != nil {
		return nil, apperr.Internal("list joined events", err)
	}
	return events, nil
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	return string(apperr.KindOf(err))
}
