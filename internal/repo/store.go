package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-crm-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrValidation is returned when the store refuses input: a record whose
// Validate method fails, an unknown sort key, or an unknown field name.
var ErrValidation = errors.New("validation failed")

// validator is implemented by records that check their own invariants.
type validator interface {
	Validate() error
}

// Store is the record store for one record kind T. It exposes the narrow
// contract the CRM core relies on:
//
//   - List(ctx, sortKey)                     every record, ordered
//   - Filter(ctx, where, sortKey, limit)     exact-match conjunction
//   - Get(ctx, id)                           one record or ErrNotFound
//   - Create(ctx, rec)                       validates then inserts
//   - Update(ctx, id, patch, fields...)      partial update, returns fresh row
//   - Delete(ctx, id)                        removes the row
//
// Sort keys are attribute names optionally prefixed with "-" for descending
// order. Attribute names are the wire names from the kind's Schema.
type Store[T any] struct {
	db     *gorm.DB
	schema Schema
}

// NewStore returns a Store for T constrained by schema.
func NewStore[T any](db *gorm.DB, schema Schema) *Store[T] {
	return &Store[T]{db: db, schema: schema}
}

// DB exposes the underlying handle for callers that need raw queries
// (ETag stats, idempotency records).
func (s *Store[T]) DB() *gorm.DB { return s.db }

// List returns every record of the kind ordered by sortKey.
func (s *Store[T]) List(ctx context.Context, sortKey string) ([]T, error) {
	return s.Filter(ctx, nil, sortKey, 0)
}

// Filter returns the records matching every (field = value) pair in where,
// ordered by sortKey. A limit <= 0 means no limit.
func (s *Store[T]) Filter(ctx context.Context, where map[string]any, sortKey string, limit int) ([]T, error) {
	out, _, err := s.Page(ctx, where, sortKey, 0, limit, false)
	return out, err
}

// Page is Filter with an offset. When withTotal is set it also returns the
// number of matching rows ignoring offset and limit.
func (s *Store[T]) Page(ctx context.Context, where map[string]any, sortKey string, offset, limit int, withTotal bool) ([]T, int64, error) {
	q, err := s.where(s.db.WithContext(ctx).Model(new(T)), where)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if withTotal {
		if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return nil, 0, err
		}
	}

	order, err := s.order(sortKey)
	if err != nil {
		return nil, 0, err
	}
	q = q.Order(order)
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []T
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches a single record by primary key, or ErrNotFound.
func (s *Store[T]) Get(ctx context.Context, id string) (*T, error) {
	var rec T
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create validates rec (when T implements Validate) and inserts it.
// Validation failures wrap ErrValidation.
func (s *Store[T]) Create(ctx context.Context, rec *T) error {
	if v, ok := any(rec).(validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

// Update writes the named fields of patch onto the record identified by id
// and returns the record as stored afterwards. Fields are wire names from the
// Schema; zero values are written too. Returns ErrNotFound when no row has id.
func (s *Store[T]) Update(ctx context.Context, id string, patch *T, fields ...string) (*T, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty update", ErrValidation)
	}
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := s.schema.Fields[f]
		if !ok || col == "id" {
			return nil, fmt.Errorf("%w: field %q cannot be updated", ErrValidation, f)
		}
		cols = append(cols, col)
	}

	res := s.db.WithContext(ctx).Model(new(T)).
		Where("id = ?", id).
		Select(cols).
		Updates(patch)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes the record identified by id. Returns ErrNotFound when no
// row matched.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(new(T), "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store[T]) where(q *gorm.DB, where map[string]any) (*gorm.DB, error) {
	if len(where) == 0 {
		return q, nil
	}
	// Stable key order keeps generated SQL deterministic.
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		col, ok := s.schema.Fields[k]
		if !ok {
			return nil, fmt.Errorf("%w: unknown filter field %q", ErrValidation, k)
		}
		q = q.Where(clause.Eq{Column: clause.Column{Name: col}, Value: where[k]})
	}
	return q, nil
}

// order maps a wire sort key onto an ORDER BY clause. Ties break on id so
// repeated reads return the same order.
func (s *Store[T]) order(sortKey string) (clause.OrderBy, error) {
	key := strings.TrimSpace(sortKey)
	if key == "" {
		key = s.schema.DefaultSort
	}
	desc := strings.HasPrefix(key, "-")
	key = strings.TrimPrefix(key, "-")

	cols := []clause.OrderByColumn{{Column: clause.Column{Name: "id"}}}
	if key != "" {
		col, ok := s.schema.Sorts[key]
		if !ok {
			return clause.OrderBy{}, fmt.Errorf("%w: unknown sort key %q", ErrValidation, sortKey)
		}
		cols = append([]clause.OrderByColumn{{Column: clause.Column{Name: col}, Desc: desc}}, cols...)
	}
	return clause.OrderBy{Columns: cols}, nil
}

// Stores bundles one Store per CRM record kind.
type Stores struct {
	Contacts      *Store[domain.Contact]
	Interactions  *Store[domain.Interaction]
	Users         *Store[domain.User]
	Notifications *Store[domain.Notification]
}

// NewStores builds the four record stores over db.
func NewStores(db *gorm.DB) *Stores {
	return &Stores{
		Contacts:      NewStore[domain.Contact](db, ContactSchema),
		Interactions:  NewStore[domain.Interaction](db, InteractionSchema),
		Users:         NewStore[domain.User](db, UserSchema),
		Notifications: NewStore[domain.Notification](db, NotificationSchema),
	}
}
