// Package filter derives the visible contact set from the full collection,
// a free-text search and categorical selections.
//
// Apply is pure and order-preserving: it never re-sorts its input and keeps
// no state between calls, so the caller recomputes whenever the collection
// or any selection changes.
package filter

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/tbourn/go-crm-backend/internal/domain"
)

// State is the ephemeral filter selection of one session.
// Stage, Source and Temperature use IsAll to mean "no restriction".
type State struct {
	Search      string
	Stage       string
	Source      string
	Temperature string
	// Tags keeps contacts carrying every listed tag.
	Tags []string
}

// IsAll reports whether a categorical selection means "no restriction".
// The empty string, "all" and "tous" are accepted.
func IsAll(sel string) bool {
	switch strings.ToLower(strings.TrimSpace(sel)) {
	case "", "all", "tous":
		return true
	}
	return false
}

// Active reports whether s restricts anything.
func (s State) Active() bool {
	return strings.TrimSpace(s.Search) != "" ||
		!IsAll(s.Stage) || !IsAll(s.Source) || !IsAll(s.Temperature) ||
		len(s.tags()) > 0
}

func (s State) tags() []string {
	out := make([]string, 0, len(s.Tags))
	for _, t := range s.Tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Apply returns the contacts matching every active criterion of s, in input
// order. An empty result is a valid outcome.
func Apply(contacts []domain.Contact, s State) []domain.Contact {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(s.Search))
	tags := s.tags()

	out := make([]domain.Contact, 0, len(contacts))
	for _, c := range contacts {
		if needle != "" && !matchesSearch(fold, c, needle) {
			continue
		}
		if !IsAll(s.Stage) && string(c.Stage) != s.Stage {
			continue
		}
		if !IsAll(s.Source) && string(c.Source) != s.Source {
			continue
		}
		if !IsAll(s.Temperature) && string(c.Temperature) != s.Temperature {
			continue
		}
		if !hasAllTags(c, tags) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// matchesSearch checks the full name, the company and the e-mail.
func matchesSearch(fold cases.Caser, c domain.Contact, needle string) bool {
	for _, hay := range [...]string{c.FullName(), c.Company, c.Email} {
		if hay != "" && strings.Contains(fold.String(hay), needle) {
			return true
		}
	}
	return false
}

func hasAllTags(c domain.Contact, tags []string) bool {
	for _, t := range tags {
		if !c.HasTag(t) {
			return false
		}
	}
	return true
}
