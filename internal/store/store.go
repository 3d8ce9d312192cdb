// Package store is the record store adapter: generic create/read/update/delete
// over gorm models with filter predicates, ordering, paging and counts.
//
// Every query runs unscoped. Soft-deleted rows are excluded only when the
// caller asks for it with IsNull("deleted_at"), and Delete always removes rows.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// Query narrows a Find. Limit <= 0 means no limit.
type Query struct {
	Filters []Filter
	OrderBy string
	Limit   int
	Offset  int
	Count   bool
}

type Store interface {
	// Find loads matching rows into dest (a pointer to a slice of models).
	// The returned total is the unpaged match count when q.Count is set.
	Find(ctx context.Context, dest interface{}, q Query) (int64, error)
	// FindOne loads the first matching row into dest or returns ErrNotFound.
	FindOne(ctx context.Context, dest interface{}, filters ...Filter) error
	// Insert creates one model or a slice of models, filling generated ids.
	Insert(ctx context.Context, rows interface{}) error
	// Update applies patch to every row of model's table matching filters.
	Update(ctx context.Context, model interface{}, patch map[string]interface{}, filters ...Filter) (int64, error)
	Delete(ctx context.Context, model interface{}, filters ...Filter) (int64, error)
	Count(ctx context.Context, model interface{}, filters ...Filter) (int64, error)
}

type gormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) scoped(ctx context.Context, model interface{}, filters []Filter) *gorm.DB {
	return applyFilters(s.db.WithContext(ctx).Unscoped().Model(model), filters)
}

func (s *gormStore) Find(ctx context.Context, dest interface{}, q Query) (int64, error) {
	var total int64
	if q.Count {
		if err := s.scoped(ctx, dest, q.Filters).Count(&total).Error; err != nil {
			return 0, err
		}
	}

	tx := s.scoped(ctx, dest, q.Filters)
	if q.OrderBy != "" {
		tx = tx.Order(q.OrderBy)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if err := tx.Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *gormStore) FindOne(ctx context.Context, dest interface{}, filters ...Filter) error {
	err := s.scoped(ctx, dest, filters).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *gormStore) Insert(ctx context.Context, rows interface{}) error {
	return s.db.WithContext(ctx).Create(rows).Error
}

func (s *gormStore) Update(ctx context.Context, model interface{}, patch map[string]interface{}, filters ...Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, gorm.ErrMissingWhereClause
	}
	res := s.scoped(ctx, model, filters).Updates(patch)
	return res.RowsAffected, res.Error
}

func (s *gormStore) Delete(ctx context.Context, model interface{}, filters ...Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, gorm.ErrMissingWhereClause
	}
	res := s.scoped(ctx, model, filters).Delete(model)
	return res.RowsAffected, res.Error
}

func (s *gormStore) Count(ctx context.Context, model interface{}, filters ...Filter) (int64, error) {
	var n int64
	err := s.scoped(ctx, model, filters).Count(&n).Error
	return n, err
}
