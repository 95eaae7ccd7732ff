package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-crm-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedContacts(t *testing.T, s *Store[domain.Contact]) []domain.Contact {
	t.Helper()
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	in := []domain.Contact{
		{LastName: "Alpha", Company: "Acme Corp", Stage: domain.StageProspect, UpdatedAt: base},
		{LastName: "Bravo", Company: "Other", Stage: domain.StageClient, UpdatedAt: base.Add(2 * time.Hour)},
		{LastName: "Charlie", Company: "Acme Corp", Stage: domain.StageProspect, UpdatedAt: base.Add(time.Hour)},
	}
	for i := range in {
		if err := s.Create(context.Background(), &in[i]); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
	return in
}

func names(cs []domain.Contact) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.LastName
	}
	return out
}

func TestStore_List_SortKeys(t *testing.T) {
	db := newTestDB(t, &domain.Contact{})
	s := NewStore[domain.Contact](db, ContactSchema)
	seedContacts(t, s)
	ctx := context.Background()

	tests := []struct {
		sort string
		want string
	}{
		{"-updated_date", "[Bravo Charlie Alpha]"},
		{"updated_date", "[Alpha Charlie Bravo]"},
		{"", "[Bravo Charlie Alpha]"}, // default
		{"nom", "[Alpha Bravo Charlie]"},
	}
	for _, tt := range tests {
		got, err := s.List(ctx, tt.sort)
		if err != nil {
			t.Fatalf("List(%q): %v", tt.sort, err)
		}
		if fmt.Sprint(names(got)) != tt.want {
			t.Fatalf("List(%q) = %v, want %s", tt.sort, names(got), tt.want)
		}
	}

	if _, err := s.List(ctx, "-password"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown sort key should be ErrValidation, got %v", err)
	}
}

func TestStore_Filter_ConjunctionAndLimit(t *testing.T) {
	db := newTestDB(t, &domain.Contact{})
	s := NewStore[domain.Contact](db, ContactSchema)
	seedContacts(t, s)
	ctx := context.Background()

	got, err := s.Filter(ctx, map[string]any{"societe": "Acme Corp", "statut": domain.StageProspect}, "-updated_date", 0)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if fmt.Sprint(names(got)) != "[Charlie Alpha]" {
		t.Fatalf("Filter = %v", names(got))
	}

	got, err = s.Filter(ctx, map[string]any{"societe": "Acme Corp"}, "-updated_date", 1)
	if err != nil || len(got) != 1 || got[0].LastName != "Charlie" {
		t.Fatalf("limited Filter = %v, %v", names(got), err)
	}

	if _, err := s.Filter(ctx, map[string]any{"1=1 OR nom": "x"}, "", 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown field should be ErrValidation, got %v", err)
	}
}

func TestStore_Page_Total(t *testing.T) {
	db := newTestDB(t, &domain.Contact{})
	s := NewStore[domain.Contact](db, ContactSchema)
	seedContacts(t, s)

	got, total, err := s.Page(context.Background(), nil, "nom", 1, 1, true)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if total != 3 || len(got) != 1 || got[0].LastName != "Bravo" {
		t.Fatalf("Page = %v total=%d", names(got), total)
	}
}

func TestStore_Create_Validates(t *testing.T) {
	db := newTestDB(t, &domain.Contact{})
	s := NewStore[domain.Contact](db, ContactSchema)

	err := s.Create(context.Background(), &domain.Contact{LastName: ""})
	if !errors.Is(err, ErrValidation) || !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStore_Update_PartialWritesZeroValues(t *testing.T) {
	db := newTestDB(t, &domain.Contact{})
	s := NewStore[domain.Contact](db, ContactSchema)
	ctx := context.Background()

	c := &domain.Contact{
		LastName:       "Delta",
		Company:        "Initech",
		Tags:           []string{"a"},
		EstimatedValue: decimal.NewNullDecimal(decimal.NewFromInt(100)),
	}
	if err := s.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	patch := &domain.Contact{Stage: domain.StageNegotiation, Company: "", Tags: []string{"b", "c"}}
	got, err := s.Update(ctx, c.ID, patch, "statut", "societe", "tags")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Stage != domain.StageNegotiation || got.Company != "" || fmt.Sprint(got.Tags) != "[b c]" {
		t.Fatalf("unexpected row after update: %+v", got)
	}
	if got.LastName != "Delta" || !got.Amount().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("untouched fields changed: %+v", got)
	}

	if _, err := s.Update(ctx, "missing", patch, "statut"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Update(ctx, c.ID, patch, "id"); !errors.Is(err, ErrValidation) {
		t.Fatalf("id must not be updatable, got %v", err)
	}
	if _, err := s.Update(ctx, c.ID, patch); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty update should be rejected, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	db := newTestDB(t, &domain.Contact{})
	s := NewStore[domain.Contact](db, ContactSchema)
	ctx := context.Background()
	in := seedContacts(t, s)

	if err := s.Delete(ctx, in[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, in[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, in[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestStore_Interactions_AppendOnly(t *testing.T) {
	db := newTestDB(t, &domain.Interaction{})
	s := NewStore[domain.Interaction](db, InteractionSchema)
	ctx := context.Background()

	ev := &domain.Interaction{ContactID: "c1", Type: domain.InteractionNote, Description: "contact created", OccurredAt: time.Now().UTC()}
	if err := s.Create(ctx, ev); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Update(ctx, ev.ID, &domain.Interaction{Type: domain.InteractionCall}, "type"); !errors.Is(err, domain.ErrImmutable) {
		t.Fatalf("update should be rejected, got %v", err)
	}
	if err := s.Delete(ctx, ev.ID); !errors.Is(err, domain.ErrImmutable) {
		t.Fatalf("delete should be rejected, got %v", err)
	}

	got, err := s.Filter(ctx, map[string]any{"contact_id": "c1"}, "-date_interaction", 20)
	if err != nil || len(got) != 1 || got[0].Type != domain.InteractionNote {
		t.Fatalf("Filter = %+v, %v", got, err)
	}
}

func TestNewStores_AllKinds(t *testing.T) {
	db := newTestDB(t, &domain.Contact{}, &domain.Interaction{}, &domain.User{}, &domain.Notification{})
	st := NewStores(db)
	ctx := context.Background()

	u := &domain.User{Email: "ana@example.com", FullName: "Ana"}
	if err := st.Users.Create(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Role != domain.RoleUser {
		t.Fatalf("default role = %q", u.Role)
	}
	n := &domain.Notification{UserID: u.ID, Title: "hi"}
	if err := st.Notifications.Create(ctx, n); err != nil {
		t.Fatalf("create notification: %v", err)
	}
	got, err := st.Notifications.Filter(ctx, map[string]any{"user_id": u.ID, "read": false}, "-created_date", 20)
	if err != nil || len(got) != 1 {
		t.Fatalf("unread filter = %+v, %v", got, err)
	}
	if _, err := st.Notifications.Update(ctx, n.ID, &domain.Notification{Read: true}, "read"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	got, _ = st.Notifications.Filter(ctx, map[string]any{"user_id": u.ID, "read": false}, "", 0)
	if len(got) != 0 {
		t.Fatalf("expected no unread, got %d", len(got))
	}
}
