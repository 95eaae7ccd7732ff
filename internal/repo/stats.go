package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-crm-backend/internal/domain"
)

// ContactsStats returns the number of contacts and the greatest updated_at.
// The HTTP layer derives a weak ETag from the pair. When there are no
// contacts the count is 0 and maxUpdatedAt is nil.
func ContactsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	return latest(db.WithContext(ctx).Model(&domain.Contact{}), "updated_at", &count)
}

// InteractionsStats returns the number of audit events for a contact and the
// most recent created_at among them. Events are immutable, so creation time
// is also their last modification time.
func InteractionsStats(ctx context.Context, db *gorm.DB, contactID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Interaction{}).Where("contact_id = ?", contactID)
	return latest(q, "created_at", &count)
}

func latest(q *gorm.DB, col string, count *int64) (int64, *time.Time, error) {
	if err := q.Session(&gorm.Session{}).Count(count).Error; err != nil {
		return 0, nil, err
	}
	if *count == 0 {
		return 0, nil, nil
	}

	// Avoid MAX() -> TEXT in SQLite.
	var row struct {
		At time.Time
	}
	if err := q.Select(col + " AS at").Order(col + " DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return *count, &row.At, nil
}
