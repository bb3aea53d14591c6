package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"gorm.io/gorm"
)

// ErrDuplicate is returned when a write violates a unique index.
var ErrDuplicate = errors.New("duplicate record")

// Condition is a SQL predicate applied on top of the primary key match.
type Condition struct {
	Query string
	Args  []interface{}
}

// Where builds a Condition.
func Where(query string, args ...interface{}) Condition {
	return Condition{Query: query, Args: args}
}

// Store is the record store used by the domain layer.
// A Store returned from Transaction is bound to that transaction.
type Store struct {
	db *gorm.DB
}

// NewStore wraps a gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle scoped to ctx, for queries the Store does not cover.
func (s *Store) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Get loads the record with the given id into dest.
func (s *Store) Get(ctx context.Context, dest interface{}, id uint) error {
	if err := s.DB(ctx).First(dest, id).Error; err != nil {
		return translate(err, "get record")
	}
	return nil
}

// List loads all records matching conds into dest, ordered by order when set.
func (s *Store) List(ctx context.Context, dest interface{}, order string, conds ...Condition) error {
	query := s.DB(ctx)
	for _, c := range conds {
		query = query.Where(c.Query, c.Args...)
	}
	if order != "" {
		query = query.Order(order)
	}
	if err := query.Find(dest).Error; err != nil {
		return translate(err, "list records")
	}
	return nil
}

// Count counts records of model matching conds.
func (s *Store) Count(ctx context.Context, model interface{}, conds ...Condition) (int64, error) {
	var n int64
	query := s.DB(ctx).Model(model)
	for _, c := range conds {
		query = query.Where(c.Query, c.Args...)
	}
	if err := query.Count(&n).Error; err != nil {
		return 0, translate(err, "count records")
	}
	return n, nil
}

// Create inserts value.
func (s *Store) Create(ctx context.Context, value interface{}) error {
	if err := s.DB(ctx).Create(value).Error; err != nil {
		return translate(err, "create record")
	}
	return nil
}

// Update applies changes to the record of model with the given id.
func (s *Store) Update(ctx context.Context, model interface{}, id uint, changes map[string]interface{}) error {
	result := s.DB(ctx).Model(model).Where("id = ?", id).Updates(changes)
	if result.Error != nil {
		return translate(result.Error, "update record")
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "update record: no rows")
	}
	return nil
}

// UpdateIf applies changes only when the record with the given id also matches cond.
// It reports whether the update was applied; the check and the write are one statement.
func (s *Store) UpdateIf(ctx context.Context, model interface{}, id uint, cond Condition, changes map[string]interface{}) (bool, error) {
	result := s.DB(ctx).Model(model).Where("id = ?", id).Where(cond.Query, cond.Args...).Updates(changes)
	if result.Error != nil {
		return false, translate(result.Error, "conditional update")
	}
	return result.RowsAffected == 1, nil
}

// Delete removes the record of model with the given id.
func (s *Store) Delete(ctx context.Context, model interface{}, id uint) error {
	result := s.DB(ctx).Delete(model, id)
	if result.Error != nil {
		return translate(result.Error, "delete record")
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "delete record: no rows")
	}
	return nil
}

// Purge permanently removes the record of model with the given id, bypassing soft delete.
func (s *Store) Purge(ctx context.Context, model interface{}, id uint) error {
	result := s.DB(ctx).Unscoped().Delete(model, id)
	if result.Error != nil {
		return translate(result.Error, "purge record")
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "purge record: no rows")
	}
	return nil
}

// DeleteWhere removes every record of model matching cond and returns the count removed.
func (s *Store) DeleteWhere(ctx context.Context, model interface{}, cond Condition) (int64, error) {
	result := s.DB(ctx).Where(cond.Query, cond.Args...).Delete(model)
	if result.Error != nil {
		return 0, translate(result.Error, "delete records")
	}
	return result.RowsAffected, nil
}

// Transaction runs fn inside a transaction. fn must only use the Store it is given.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func translate(err error, op string) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.Wrap(apperr.KindNotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return apperr.Internal(op, err)
	}
}
