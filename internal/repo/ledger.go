package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Ledger bundles the idempotency and stats helpers over one *gorm.DB for
// the HTTP layer.
type Ledger struct {
	DB *gorm.DB
	// TTL of new idempotency records. Default 24h.
	TTL time.Duration
}

// NewLedger returns a Ledger over db.
func NewLedger(db *gorm.DB, ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Ledger{DB: db, TTL: ttl}
}

// Lookup reports whether a non-expired record exists. It matches the
// middleware.IdempotencyLookup signature.
func (l *Ledger) Lookup(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
	_, err := GetIdempotency(ctx, l.DB, userID, scope, key, now)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Replay returns the resource recorded for (userID, scope, key).
func (l *Ledger) Replay(ctx context.Context, userID, scope, key string) (string, bool, error) {
	rec, err := GetIdempotency(ctx, l.DB, userID, scope, key, time.Now().UTC())
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.ResourceID, true, nil
}

// Remember records resourceID. A concurrent duplicate is not an error.
func (l *Ledger) Remember(ctx context.Context, userID, scope, key, resourceID string, status int) error {
	_, err := CreateIdempotency(ctx, l.DB, userID, scope, key, resourceID, status, l.TTL)
	if errors.Is(err, ErrDuplicate) {
		return nil
	}
	return err
}

// ContactsVersion returns the contact count and latest update time.
func (l *Ledger) ContactsVersion(ctx context.Context) (int64, *time.Time, error) {
	return ContactsStats(ctx, l.DB)
}

// InteractionsVersion returns the event count of contactID and the latest
// creation time.
func (l *Ledger) InteractionsVersion(ctx context.Context, contactID string) (int64, *time.Time, error) {
	return InteractionsStats(ctx, l.DB, contactID)
}

// Purge deletes expired idempotency records.
func (l *Ledger) Purge(ctx context.Context) (int64, error) {
	return PurgeIdempotency(ctx, l.DB, time.Now().UTC())
}
