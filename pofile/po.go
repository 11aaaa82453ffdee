// Package pofile reads and writes gettext PO/POT catalogs and classifies
// their entries as translated, fuzzy or untranslated.
package pofile

import (
	"strings"
)

// Entry is a single message of a PO catalog.
type Entry struct {
	// TranslatorComments are "# " lines.
	TranslatorComments []string
	// ExtractedComments are "#." lines.
	ExtractedComments []string
	// References are "#:" source locations.
	References []string
	// Flags are the comma separated "#," values (fuzzy, c-format, ...).
	Flags []string
	// PreviousMsgID is the "#| msgid" of a fuzzy match.
	PreviousMsgID string

	MsgCtxt      string
	MsgID        string
	MsgIDPlural  string
	MsgStr       string
	MsgStrPlural map[int]string

	// Obsolete marks "#~" entries.
	Obsolete bool
}

// IsHeader reports whether the entry is the catalog metadata entry.
func (e *Entry) IsHeader() bool {
	return e.MsgID == "" && e.MsgCtxt == "" && !e.Obsolete
}

// IsFuzzy reports whether the entry carries the fuzzy flag.
func (e *Entry) IsFuzzy() bool {
	return e.HasFlag("fuzzy")
}

// HasFlag reports whether flag is present on the entry.
func (e *Entry) HasFlag(flag string) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// HasTranslation reports whether every msgstr form is non-empty.
// The fuzzy flag is not considered.
func (e *Entry) HasTranslation() bool {
	if e.MsgIDPlural != "" {
		if len(e.MsgStrPlural) == 0 {
			return false
		}
		for _, v := range e.MsgStrPlural {
			if v == "" {
				return false
			}
		}
		return true
	}
	return e.MsgStr != ""
}

// IsTranslated reports whether the entry is translated and not fuzzy.
func (e *Entry) IsTranslated() bool {
	if e.MsgID == "" {
		return false
	}
	return !e.IsFuzzy() && e.HasTranslation()
}

// Key identifies an entry within a catalog: msgctxt and msgid joined by EOT,
// the same separator gettext uses in compiled catalogs.
func (e *Entry) Key() string {
	if e.MsgCtxt == "" {
		return e.MsgID
	}
	return e.MsgCtxt + "\x04" + e.MsgID
}

// File is a parsed PO or POT catalog.
type File struct {
	// Header is the metadata entry (msgid "").
	Header  *Entry
	Entries []*Entry
}

// NewFile returns an empty catalog with an empty header.
func NewFile() *File {
	return &File{
		Header:  &Entry{},
		Entries: make([]*Entry, 0),
	}
}

// HeaderField returns the value of a header field, matched case-insensitively.
func (f *File) HeaderField(name string) string {
	if f.Header == nil {
		return ""
	}
	for _, line := range strings.Split(f.Header.MsgStr, "\n") {
		if idx := strings.Index(line, ":"); idx > 0 {
			if strings.EqualFold(strings.TrimSpace(line[:idx]), name) {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return ""
}

// SetHeaderField replaces or appends a header field.
func (f *File) SetHeaderField(name, value string) {
	if f.Header == nil {
		f.Header = &Entry{}
	}

	lines := strings.Split(f.Header.MsgStr, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, ":"); idx > 0 {
			if strings.EqualFold(strings.TrimSpace(line[:idx]), name) {
				lines[i] = name + ": " + value
				f.Header.MsgStr = strings.Join(lines, "\n")
				return
			}
		}
	}
	// Keep the trailing newline of a well-formed header.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = append(lines[:n-1], name+": "+value, "")
	} else {
		lines = append(lines, name+": "+value)
	}
	f.Header.MsgStr = strings.Join(lines, "\n")
}

// Lookup finds a live (non-obsolete) entry by msgctxt and msgid.
func (f *File) Lookup(msgctxt, msgid string) *Entry {
	for _, e := range f.Entries {
		if !e.Obsolete && e.MsgCtxt == msgctxt && e.MsgID == msgid {
			return e
		}
	}
	return nil
}

// Counts holds per-status entry totals of a catalog.
type Counts struct {
	Translated   int
	Fuzzy        int
	Untranslated int
	Obsolete     int
}

// Total is the number of live messages.
func (c Counts) Total() int {
	return c.Translated + c.Fuzzy + c.Untranslated
}

// Count classifies every live message. A fuzzy entry counts as fuzzy
// whatever its msgstr holds; the header is skipped and obsolete entries are
// only tallied in Obsolete.
func (f *File) Count() Counts {
	var c Counts
	for _, e := range f.Entries {
		if e.Obsolete {
			c.Obsolete++
		}
	}
	for _, e := range f.Live() {
		switch {
		case e.IsFuzzy():
			c.Fuzzy++
		case e.IsTranslated():
			c.Translated++
		default:
			c.Untranslated++
		}
	}
	return c
}

// Live returns the entries that are neither obsolete nor the header.
func (f *File) Live() []*Entry {
	var out []*Entry
	for _, e := range f.Entries {
		if e.Obsolete || e.MsgID == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}
