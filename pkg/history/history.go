// Package history keeps the bounded, newest-first log of check runs as an
// atomically-replaced JSON document.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/advertile/campwatch/pkg/campaign"
)

const DefaultMaxRuns = 30

// Record is one orchestrator pass.
type Record struct {
	Kind         string            `json:"kind"` // scheduled | manual | telegram | api
	TS           int64             `json:"ts"`
	DateFrom     string            `json:"date_from,omitempty"`
	DateTo       string            `json:"date_to,omitempty"`
	DaysLookback int               `json:"days_lookback,omitempty"`
	TotalChecked int               `json:"total_checked"`
	Failing      int               `json:"failing"`
	Error        string            `json:"error,omitempty"`
	Results      []campaign.Result `json:"results"`
}

// Document is the persisted run log, newest first.
type Document struct {
	Runs           []Record `json:"runs"`
	UpdatedAtEpoch int64    `json:"updated_at_epoch"`
}

// Store reads and appends run records at Path, keeping at most MaxRuns.
type Store struct {
	Path    string
	MaxRuns int
}

func NewStore(path string) *Store {
	return &Store{Path: path, MaxRuns: DefaultMaxRuns}
}

// Load reads the document. A missing file yields an empty document.
func (s *Store) Load() (Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, nil
		}
		return Document{}, fmt.Errorf("reading run history: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parsing run history %s: %w", s.Path, err)
	}
	return doc, nil
}

// Append prepends a run record, evicting the oldest past MaxRuns, and writes
// the document back atomically.
func (s *Store) Append(rec Record) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}

	max := s.MaxRuns
	if max <= 0 {
		max = DefaultMaxRuns
	}
	doc.Runs = append([]Record{rec}, doc.Runs...)
	if len(doc.Runs) > max {
		doc.Runs = doc.Runs[:max]
	}
	doc.UpdatedAtEpoch = time.Now().Unix()

	return s.save(doc)
}

func (s *Store) save(doc Document) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

// Summarize builds a Record from run results.
func Summarize(kind, dateFrom, dateTo string, daysLookback int, results []campaign.Result) Record {
	failing := 0
	for _, r := range results {
		if !r.OK() {
			failing++
		}
	}
	return Record{
		Kind:         kind,
		TS:           time.Now().Unix(),
		DateFrom:     dateFrom,
		DateTo:       dateTo,
		DaysLookback: daysLookback,
		TotalChecked: len(results),
		Failing:      failing,
		Results:      results,
	}
}
