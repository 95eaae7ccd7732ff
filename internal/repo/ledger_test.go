package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-crm-backend/internal/domain"
)

func TestLedger_RememberReplayLookup(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	l := NewLedger(db, 0)
	if l.TTL != 24*time.Hour {
		t.Fatalf("default TTL = %v", l.TTL)
	}
	ctx := context.Background()

	if id, found, err := l.Replay(ctx, "u1", "POST /contacts", "k1"); err != nil || found || id != "" {
		t.Fatalf("Replay before Remember = (%q, %v, %v)", id, found, err)
	}
	if hit, err := l.Lookup(ctx, "u1", "POST /contacts", "k1", time.Now().UTC()); err != nil || hit {
		t.Fatalf("Lookup before Remember = (%v, %v)", hit, err)
	}

	if err := l.Remember(ctx, "u1", "POST /contacts", "k1", "c-1", 201); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	// Second write of the same tuple is absorbed.
	if err := l.Remember(ctx, "u1", "POST /contacts", "k1", "c-2", 201); err != nil {
		t.Fatalf("duplicate Remember: %v", err)
	}

	id, found, err := l.Replay(ctx, "u1", "POST /contacts", "k1")
	if err != nil || !found || id != "c-1" {
		t.Fatalf("Replay = (%q, %v, %v); want c-1", id, found, err)
	}
	if hit, err := l.Lookup(ctx, "u1", "POST /contacts", "k1", time.Now().UTC()); err != nil || !hit {
		t.Fatalf("Lookup after Remember = (%v, %v)", hit, err)
	}
	// Keys are scoped per user.
	if _, found, _ := l.Replay(ctx, "u2", "POST /contacts", "k1"); found {
		t.Fatalf("key leaked across users")
	}
}

func TestLedger_PurgeAndVersions(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{}, &domain.Contact{}, &domain.Interaction{})
	l := NewLedger(db, time.Hour)
	ctx := context.Background()

	past := time.Now().UTC().Add(-2 * time.Hour)
	if err := db.Create(&domain.Idempotency{
		ID: "old", UserID: "u", Scope: "s", Key: "k", ResourceID: "r", Status: 201,
		CreatedAt: past, ExpiresAt: past.Add(time.Minute),
	}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n, err := l.Purge(ctx); err != nil || n != 1 {
		t.Fatalf("Purge = (%d, %v); want 1", n, err)
	}

	if n, ts, err := l.ContactsVersion(ctx); err != nil || n != 0 || ts != nil {
		t.Fatalf("empty ContactsVersion = (%d, %v, %v)", n, ts, err)
	}
	if err := db.Create(&domain.Contact{LastName: "Dupont", Stage: domain.StageProspect}).Error; err != nil {
		t.Fatalf("seed contact: %v", err)
	}
	if n, ts, err := l.ContactsVersion(ctx); err != nil || n != 1 || ts == nil {
		t.Fatalf("ContactsVersion = (%d, %v, %v)", n, ts, err)
	}
	if n, _, err := l.InteractionsVersion(ctx, "nobody"); err != nil || n != 0 {
		t.Fatalf("InteractionsVersion = (%d, %v)", n, err)
	}
}
