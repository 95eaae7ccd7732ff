package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/tbourn/go-crm-backend/internal/domain"
	"github.com/tbourn/go-crm-backend/internal/repo"
	"github.com/tbourn/go-crm-backend/internal/services"
)

// SeedFile is the YAML fixture layout accepted by the seed command.
type SeedFile struct {
	Users         []SeedUser         `yaml:"users"`
	Contacts      []SeedContact      `yaml:"contacts"`
	Notifications []SeedNotification `yaml:"notifications"`
}

type SeedUser struct {
	ID         string `yaml:"id"`
	Email      string `yaml:"email"`
	FullName   string `yaml:"full_name"`
	Role       string `yaml:"role"`
	Department string `yaml:"department"`
	Phone      string `yaml:"phone"`
}

type SeedContact struct {
	FirstName   string   `yaml:"prenom"`
	LastName    string   `yaml:"nom"`
	Company     string   `yaml:"societe"`
	Email       string   `yaml:"email"`
	Phone       string   `yaml:"telephone"`
	Address     string   `yaml:"adresse"`
	Notes       string   `yaml:"notes"`
	Source      string   `yaml:"source"`
	Stage       string   `yaml:"statut"`
	Value       string   `yaml:"valeur_estimee"`
	Temperature string   `yaml:"temperature"`
	Tags        []string `yaml:"tags"`
}

type SeedNotification struct {
	UserID  string `yaml:"user_id"`
	Title   string `yaml:"title"`
	Message string `yaml:"message"`
	Type    string `yaml:"type"`
	Link    string `yaml:"link"`
	Read    bool   `yaml:"read"`
}

// SeedResult counts the records written.
type SeedResult struct {
	Users         int
	Contacts      int
	Notifications int
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, contacts and notifications from a YAML fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			fixture, err := ParseSeed(f)
			if err != nil {
				return err
			}
			db, closeDB, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			res, err := Seed(cmd.Context(), db, fixture)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d contacts, %d notifications\n",
				res.Users, res.Contacts, res.Notifications)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "fixture file")
	return cmd
}

// ParseSeed decodes a fixture. Unknown keys are rejected.
func ParseSeed(r io.Reader) (*SeedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f SeedFile
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	return &f, nil
}

// Seed writes the fixture. Contacts go through the contact service so each
// one gets its creation event.
func Seed(ctx context.Context, db *gorm.DB, f *SeedFile) (SeedResult, error) {
	var res SeedResult
	stores := repo.NewStores(db)

	for i, u := range f.Users {
		rec := domain.User{
			ID:         u.ID,
			Email:      u.Email,
			FullName:   u.FullName,
			Role:       u.Role,
			Department: u.Department,
			Phone:      u.Phone,
		}
		if err := stores.Users.Create(ctx, &rec); err != nil {
			return res, fmt.Errorf("seed: user %d: %w", i, err)
		}
		res.Users++
	}

	svc := services.NewContactService(stores.Contacts, stores.Interactions)
	for i, sc := range f.Contacts {
		c, err := sc.contact()
		if err != nil {
			return res, fmt.Errorf("seed: contact %d: %w", i, err)
		}
		created, err := svc.Create(ctx, c)
		switch {
		case services.IsPartial(err):
			log.Warn().Err(err).Str("contact_id", created.ID).Msg("contact seeded without creation event")
		case err != nil:
			return res, fmt.Errorf("seed: contact %d: %w", i, err)
		}
		res.Contacts++
	}

	for i, n := range f.Notifications {
		rec := domain.Notification{
			UserID:  n.UserID,
			Title:   n.Title,
			Message: n.Message,
			Type:    n.Type,
			Link:    n.Link,
			Read:    n.Read,
		}
		if err := stores.Notifications.Create(ctx, &rec); err != nil {
			return res, fmt.Errorf("seed: notification %d: %w", i, err)
		}
		res.Notifications++
	}
	return res, nil
}

func (sc SeedContact) contact() (domain.Contact, error) {
	c := domain.Contact{
		FirstName:   sc.FirstName,
		LastName:    sc.LastName,
		Company:     sc.Company,
		Email:       sc.Email,
		Phone:       sc.Phone,
		Address:     sc.Address,
		Notes:       sc.Notes,
		Source:      domain.Source(sc.Source),
		Stage:       domain.Stage(sc.Stage),
		Temperature: domain.Temperature(sc.Temperature),
		Tags:        sc.Tags,
	}
	if v := strings.TrimSpace(sc.Value); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return c, fmt.Errorf("valeur_estimee %q: %w", sc.Value, err)
		}
		c.EstimatedValue = decimal.NewNullDecimal(d)
	}
	return c, nil
}
