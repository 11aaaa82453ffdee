// Package store persists per-file translation statistics.
//
// A resource has at most one record per file name; Create reports
// ErrConflict when that key is taken so callers can retry as an update.
package store

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/minios-linux/potstats/stats"
)

var (
	// ErrConflict is returned by Create when a record for the same
	// (resource, file name) already exists.
	ErrConflict = errors.New("stat record already exists")
	// ErrNotFound is returned by Save for a record that was never created.
	ErrNotFound = errors.New("stat record not found")
)

// Record is the persisted statistics of one translation file.
type Record struct {
	ID           uuid.UUID `json:"id"`
	ResourceID   string    `json:"resource_id"`
	FileName     string    `json:"file_name"`
	LanguageCode string    `json:"language_code"`
	// Language is the registry code the identifier resolved to, nil when
	// the registry did not know it.
	Language     *string   `json:"language,omitempty"`
	Translated   int       `json:"translated"`
	Fuzzy        int       `json:"fuzzy"`
	Untranslated int       `json:"untranslated"`
	Total        int       `json:"total"`
	Percent      int       `json:"percent"`
	HadError     bool      `json:"had_error"`
	Merged       bool      `json:"merged"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SetStats copies s into the record, including the derived total and
// percentage.
func (r *Record) SetStats(s stats.Stats) {
	r.Translated = s.Translated
	r.Fuzzy = s.Fuzzy
	r.Untranslated = s.Untranslated
	r.Total = s.Total()
	r.Percent = s.Percent()
	r.HadError = s.HadError
	r.Merged = s.Merged
}

// Stats returns the counters of the record.
func (r *Record) Stats() stats.Stats {
	return stats.Stats{
		Translated:   r.Translated,
		Fuzzy:        r.Fuzzy,
		Untranslated: r.Untranslated,
		HadError:     r.HadError,
		Merged:       r.Merged,
	}
}

func (r *Record) clone() *Record {
	c := *r
	if r.Language != nil {
		lang := *r.Language
		c.Language = &lang
	}
	return &c
}

// Repository is the storage contract the statistics manager relies on.
type Repository interface {
	// FindOne returns nil, nil when no record exists for the key.
	FindOne(ctx context.Context, resourceID, fileName string) (*Record, error)
	// Create inserts rec, assigning an ID when it has none.
	Create(ctx context.Context, rec *Record) error
	// Save updates a record previously returned by FindOne or Create.
	Save(ctx context.Context, rec *Record) error
	DeleteAllFor(ctx context.Context, resourceID string) error
	// ListOrderedByCompleteness returns records most complete first.
	ListOrderedByCompleteness(ctx context.Context, resourceID string) ([]*Record, error)
}

// SortByCompleteness orders records by Percent descending, then
// LanguageCode and FileName ascending.
func SortByCompleteness(recs []*Record) {
	slices.SortStableFunc(recs, func(a, b *Record) int {
		if c := cmp.Compare(b.Percent, a.Percent); c != 0 {
			return c
		}
		if c := cmp.Compare(a.LanguageCode, b.LanguageCode); c != 0 {
			return c
		}
		return cmp.Compare(a.FileName, b.FileName)
	})
}

func prepare(rec *Record) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.UpdatedAt = time.Now().UTC().Truncate(time.Second)
}
