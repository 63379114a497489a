package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a keyed lookup matches no record.
var ErrNotFound = errors.New("store: record not found")

type Op int

const (
	// OpEqual matches records whose column equals the value.
	OpEqual Op = iota
	// OpArrayContains matches records whose text[] column contains the value.
	OpArrayContains
)

// Filter is a single predicate applied to Query or Count. Field is a column
// name supplied by calling code, never by clients.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// Contains builds an array-membership filter for text[] columns.
func Contains(field string, value any) Filter {
	return Filter{Field: field, Op: OpArrayContains, Value: value}
}

// Query describes a filtered, optionally ordered and limited scan.
type Query struct {
	Filters []Filter
	OrderBy string
	Limit   int
}

// Repository is the generic keyed-document store every domain entity goes
// through: Get, Query, Add, Update, Delete, Count over one GORM model.
type Repository[T any] struct {
	db *gorm.DB
}

func NewRepository[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

func (r *Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	var doc T
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *Repository[T]) Query(ctx context.Context, q Query) ([]T, error) {
	var docs []T
	tx := r.db.WithContext(ctx).Model(new(T))
	tx = applyFilters(tx, q.Filters)
	if q.OrderBy != "" {
		tx = tx.Order(q.OrderBy)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if err := tx.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *Repository[T]) Add(ctx context.Context, doc *T) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// Update applies a partial update to the record with the given id.
func (r *Repository[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(new(T)).Error
}

func (r *Repository[T]) Count(ctx context.Context, filters ...Filter) (int64, error) {
	var n int64
	tx := r.db.WithContext(ctx).Model(new(T))
	tx = applyFilters(tx, filters)
	if err := tx.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func applyFilters(tx *gorm.DB, filters []Filter) *gorm.DB {
	for _, f := range filters {
		switch f.Op {
		case OpArrayContains:
			tx = tx.Where(fmt.Sprintf("? = ANY(%s)", f.Field), f.Value)
		default:
			tx = tx.Where(fmt.Sprintf("%s = ?", f.Field), f.Value)
		}
	}
	return tx
}
