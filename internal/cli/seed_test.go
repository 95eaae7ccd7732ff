package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-crm-backend/internal/domain"
	"github.com/tbourn/go-crm-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:cli_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

func loadFixture(t *testing.T) *SeedFile {
	t.Helper()
	f, err := os.Open("testdata/seed.yaml")
	require.NoError(t, err)
	defer f.Close()
	fixture, err := ParseSeed(f)
	require.NoError(t, err)
	return fixture
}

func TestParseSeed(t *testing.T) {
	fixture := loadFixture(t)
	require.Len(t, fixture.Users, 2)
	require.Len(t, fixture.Contacts, 2)
	require.Len(t, fixture.Notifications, 2)

	want := SeedContact{
		FirstName:   "Jeanne",
		LastName:    "Dupont",
		Company:     "Acme",
		Email:       "jeanne.dupont@acme.example",
		Source:      "LinkedIn",
		Stage:       "Négociation",
		Value:       "12500.00",
		Temperature: "Chaud",
		Tags:        []string{"vip", " Vip ", "export"},
	}
	if diff := cmp.Diff(want, fixture.Contacts[0]); diff != "" {
		t.Fatalf("first contact mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSeed_RejectsUnknownKeys(t *testing.T) {
	_, err := ParseSeed(strings.NewReader("contacts:\n  - nom: X\n    budget: 3\n"))
	require.Error(t, err)
}

func TestParseSeed_EmptyInput(t *testing.T) {
	f, err := ParseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Contacts)
}

func TestSeed_WritesEveryRecord(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	res, err := Seed(ctx, db, loadFixture(t))
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Users: 2, Contacts: 2, Notifications: 2}, res)

	var contacts []domain.Contact
	require.NoError(t, db.Order("nom").Find(&contacts).Error)
	require.Len(t, contacts, 2)

	dupont := contacts[0]
	assert.Equal(t, "Dupont", dupont.LastName)
	assert.Equal(t, domain.StageNegotiation, dupont.Stage)
	assert.Equal(t, []string{"vip", "export"}, dupont.Tags)
	require.True(t, dupont.EstimatedValue.Valid)
	assert.Equal(t, "12500", dupont.EstimatedValue.Decimal.String())
	assert.NotNil(t, dupont.LastInteraction)

	leroy := contacts[1]
	assert.Equal(t, domain.StageProspect, leroy.Stage)
	assert.False(t, leroy.EstimatedValue.Valid)

	// One creation event per contact.
	var events int64
	require.NoError(t, db.Model(&domain.Interaction{}).Count(&events).Error)
	assert.EqualValues(t, 2, events)

	var admin domain.User
	require.NoError(t, db.First(&admin, "id = ?", "u-admin").Error)
	assert.True(t, admin.IsAdmin())

	var unread int64
	require.NoError(t, db.Model(&domain.Notification{}).Where("user_id = ? AND read = ?", "u-sales", false).Count(&unread).Error)
	assert.EqualValues(t, 1, unread)
}

func TestSeed_StopsOnInvalidContact(t *testing.T) {
	db := newTestDB(t)
	f := &SeedFile{Contacts: []SeedContact{
		{LastName: "Ok"},
		{LastName: "Bad", Stage: "Gagné"},
	}}
	res, err := Seed(context.Background(), db, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact 1")
	assert.Equal(t, 1, res.Contacts)
}

func TestSeedContact_BadValue(t *testing.T) {
	_, err := SeedContact{LastName: "X", Value: "douze"}.contact()
	require.Error(t, err)
}
