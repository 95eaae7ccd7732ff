// Package columns stores which contact attributes a client displays, in
// which order and at which width. A configuration is always replaced as a
// whole; there is no per-column merge.
package columns

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tbourn/go-crm-backend/internal/services"
)

// Key is the preference key under which the contacts table layout is kept.
const Key = "contacts-columns"

// Column describes one column of the contacts table.
type Column struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Visible bool   `json:"visible"`
	Width   string `json:"width"`
	Type    string `json:"type"`
}

var defaults = []Column{
	{ID: "prenom", Label: "Prénom", Visible: true, Width: "150px", Type: "text"},
	{ID: "nom", Label: "Nom", Visible: true, Width: "150px", Type: "text"},
	{ID: "societe", Label: "Société", Visible: true, Width: "180px", Type: "text"},
	{ID: "email", Label: "Email", Visible: true, Width: "220px", Type: "email"},
	{ID: "telephone", Label: "Téléphone", Visible: true, Width: "150px", Type: "text"},
	{ID: "source", Label: "Source", Visible: true, Width: "120px", Type: "select"},
	{ID: "statut", Label: "Statut", Visible: true, Width: "120px", Type: "select"},
	{ID: "derniere_interaction", Label: "Dernière interaction", Visible: false, Width: "150px", Type: "date"},
	{ID: "valeur_estimee", Label: "Valeur estimée", Visible: false, Width: "130px", Type: "number"},
	{ID: "temperature", Label: "Température", Visible: true, Width: "120px", Type: "select"},
	{ID: "adresse", Label: "Adresse", Visible: false, Width: "200px", Type: "text"},
	{ID: "notes", Label: "Notes", Visible: false, Width: "150px", Type: "text"},
}

// Defaults returns a fresh copy of the default layout.
func Defaults() []Column {
	out := make([]Column, len(defaults))
	copy(out, defaults)
	return out
}

// Validate checks that every column has a non-blank id and that ids are
// unique.
func Validate(cols []Column) error {
	seen := make(map[string]int, len(cols))
	var errs []services.FieldError
	for i, c := range cols {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			errs = append(errs, services.FieldError{Field: fmt.Sprintf("columns[%d].id", i), Message: "must not be empty"})
			continue
		}
		if j, dup := seen[id]; dup {
			errs = append(errs, services.FieldError{
				Field:   fmt.Sprintf("columns[%d].id", i),
				Message: fmt.Sprintf("duplicate id %q (also at %d)", id, j),
			})
			continue
		}
		seen[id] = i
	}
	if len(errs) > 0 {
		return &services.ValidationError{Errors: errs}
	}
	return nil
}

// Store persists one configuration per client.
type Store interface {
	// Load returns the saved configuration and whether one exists.
	Load(ctx context.Context, client string) ([]Column, bool, error)
	Save(ctx context.Context, client string, cols []Column) error
	Delete(ctx context.Context, client string) error
}

// Manager serves column configurations. A successful SetColumns is visible
// to every later Columns call for the same client.
type Manager struct {
	store Store

	mu    sync.RWMutex
	cache map[string][]Column
}

// NewManager returns a Manager persisting through store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, cache: make(map[string][]Column)}
}

// Columns returns the configuration of client, or the defaults when none
// was saved.
func (m *Manager) Columns(ctx context.Context, client string) ([]Column, error) {
	m.mu.RLock()
	cols, ok := m.cache[client]
	m.mu.RUnlock()
	if ok {
		return clone(cols), nil
	}

	// Loaded under the write lock: a read from before a SetColumns or Reset
	// must never land in the cache after it.
	m.mu.Lock()
	defer m.mu.Unlock()
	if cols, ok := m.cache[client]; ok {
		return clone(cols), nil
	}
	cols, found, err := m.store.Load(ctx, client)
	if err != nil {
		return nil, &services.StoreError{Op: "load columns", Err: err}
	}
	if !found {
		cols = Defaults()
	}
	m.cache[client] = clone(cols)
	return cols, nil
}

// SetColumns validates cols and replaces the whole configuration of client.
func (m *Manager) SetColumns(ctx context.Context, client string, cols []Column) error {
	if err := Validate(cols); err != nil {
		return err
	}
	cols = clone(cols)
	for i := range cols {
		cols[i].ID = strings.TrimSpace(cols[i].ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Save(ctx, client, cols); err != nil {
		return &services.StoreError{Op: "save columns", Err: err}
	}
	m.cache[client] = cols
	return nil
}

// Reset drops the saved configuration of client so the defaults apply.
func (m *Manager) Reset(ctx context.Context, client string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(ctx, client); err != nil {
		return &services.StoreError{Op: "reset columns", Err: err}
	}
	delete(m.cache, client)
	return nil
}

func clone(cols []Column) []Column {
	out := make([]Column, len(cols))
	copy(out, cols)
	return out
}
