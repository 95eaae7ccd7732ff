// Package pipeline computes the aggregates shown over the visible contact
// set: per-stage counts and monetary totals across all seven stages, the
// global pipeline value, and the quick stats of the contacts header.
//
// Sums use exact decimal arithmetic, so the same visible set always yields
// byte-identical output.
package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-crm-backend/internal/domain"
)

// StageTotal is the aggregate of one stage.
type StageTotal struct {
	Stage domain.Stage    `json:"statut"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// QuickStats are the four header counters of the contacts list.
type QuickStats struct {
	Total         int `json:"total"`
	Prospects     int `json:"prospects"`
	Clients       int `json:"clients"`
	InNegotiation int `json:"in_negotiation"`
}

// Summary is the aggregate of a visible set.
type Summary struct {
	// Stages has one entry per pipeline stage, in board order, including
	// stages without members.
	Stages []StageTotal `json:"stages"`
	// GlobalValue sums every visible value except the Lost stage.
	GlobalValue  decimal.Decimal `json:"global_value"`
	VisibleCount int             `json:"visible_count"`
	Quick        QuickStats      `json:"quick"`
}

// Summarize aggregates visible. Absent values count as zero.
func Summarize(visible []domain.Contact) Summary {
	idx := make(map[domain.Stage]int, len(domain.Stages))
	stages := make([]StageTotal, len(domain.Stages))
	for i, st := range domain.Stages {
		idx[st] = i
		stages[i] = StageTotal{Stage: st, Total: decimal.Zero}
	}

	global := decimal.Zero
	for _, c := range visible {
		i, ok := idx[c.Stage]
		if !ok {
			// The store never yields one; skip rather than invent a bucket.
			continue
		}
		v := c.Amount()
		stages[i].Count++
		stages[i].Total = stages[i].Total.Add(v)
		if c.Stage != domain.StageLost {
			global = global.Add(v)
		}
	}

	return Summary{
		Stages:       stages,
		GlobalValue:  global,
		VisibleCount: len(visible),
		Quick: QuickStats{
			Total:         len(visible),
			Prospects:     stages[idx[domain.StageProspect]].Count,
			Clients:       stages[idx[domain.StageClient]].Count,
			InNegotiation: stages[idx[domain.StageNegotiation]].Count,
		},
	}
}

// Stage returns the aggregate of st, or a zero entry for an unknown stage.
func (s Summary) Stage(st domain.Stage) StageTotal {
	for _, t := range s.Stages {
		if t.Stage == st {
			return t
		}
	}
	return StageTotal{Stage: st, Total: decimal.Zero}
}

// Column is one lane of the pipeline board.
type Column struct {
	Stage    domain.Stage     `json:"statut"`
	Count    int              `json:"count"`
	Total    decimal.Decimal  `json:"total"`
	Contacts []domain.Contact `json:"contacts"`
}

// Board groups visible into one column per stage in board order. Contacts
// keep their relative input order inside a column.
func Board(visible []domain.Contact) []Column {
	sum := Summarize(visible)
	cols := make([]Column, len(sum.Stages))
	pos := make(map[domain.Stage]int, len(cols))
	for i, st := range sum.Stages {
		cols[i] = Column{Stage: st.Stage, Count: st.Count, Total: st.Total, Contacts: make([]domain.Contact, 0, st.Count)}
		pos[st.Stage] = i
	}
	for _, c := range visible {
		if i, ok := pos[c.Stage]; ok {
			cols[i].Contacts = append(cols[i].Contacts, c)
		}
	}
	return cols
}
