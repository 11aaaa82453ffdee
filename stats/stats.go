// Package stats scores translation catalogs.
package stats

import (
	po "github.com/minios-linux/potstats/pofile"
)

// Stats are the per-language counters of one catalog. HadError means the
// catalog could not be read; all counters are then zero, which says
// "unknown", not "nothing translated".
type Stats struct {
	Translated   int
	Fuzzy        int
	Untranslated int
	HadError     bool
	// Merged tells whether the scored file had been reconciled with the
	// current template.
	Merged bool
}

// Total is the number of live messages.
func (s Stats) Total() int {
	return s.Translated + s.Fuzzy + s.Untranslated
}

// Percent is the share of translated messages, rounded down. An empty
// catalog is 0% complete.
func (s Stats) Percent() int {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return s.Translated * 100 / total
}

// Failed returns the stats of a catalog that could not be scored.
func Failed(merged bool) Stats {
	return Stats{HadError: true, Merged: merged}
}

// Score parses the catalog at path and counts its messages. merged is
// carried into the result as is. On failure the returned Stats are
// Failed(merged) and the error says why; it is meant for logging, callers
// still get a usable result.
func Score(path string, merged bool) (Stats, error) {
	f, err := po.ParseFile(path)
	if err != nil {
		return Failed(merged), err
	}
	c := f.Count()
	return Stats{
		Translated:   c.Translated,
		Fuzzy:        c.Fuzzy,
		Untranslated: c.Untranslated,
		Merged:       merged,
	}, nil
}
