// Package merge brings translation catalogs up to date with their POT
// template and stages the result for scoring.
package merge

import (
	po "github.com/minios-linux/potstats/pofile"
)

// Merge updates a PO catalog with the messages of a POT template, the way
// msgmerge does without fuzzy matching:
//   - messages still in the template keep their translation and flags,
//     and take comments and references from the template;
//   - messages new in the template are added untranslated;
//   - messages gone from the template become obsolete.
//
// Messages are matched by msgctxt and msgid. Neither input is modified.
func Merge(poFile, potFile *po.File) *po.File {
	result := po.NewFile()

	switch {
	case poFile.Header != nil:
		header := *poFile.Header
		result.Header = &header
	case potFile.Header != nil:
		header := *potFile.Header
		result.Header = &header
	}
	if date := potFile.HeaderField("POT-Creation-Date"); date != "" {
		result.SetHeaderField("POT-Creation-Date", date)
	}

	existing := make(map[string]*po.Entry, len(poFile.Entries))
	retired := make(map[string]*po.Entry)
	for _, e := range poFile.Entries {
		switch {
		case e.MsgID == "":
		case e.Obsolete:
			retired[e.Key()] = e
		default:
			existing[e.Key()] = e
		}
	}

	matched := make(map[string]bool, len(potFile.Entries))
	for _, tmpl := range potFile.Entries {
		if tmpl.MsgID == "" || tmpl.Obsolete {
			continue
		}
		key := tmpl.Key()
		if old, ok := existing[key]; ok {
			result.Entries = append(result.Entries, &po.Entry{
				TranslatorComments: old.TranslatorComments,
				ExtractedComments:  tmpl.ExtractedComments,
				References:         tmpl.References,
				Flags:              mergeFlags(old.Flags, tmpl.Flags),
				PreviousMsgID:      old.PreviousMsgID,
				MsgCtxt:            tmpl.MsgCtxt,
				MsgID:              tmpl.MsgID,
				MsgIDPlural:        tmpl.MsgIDPlural,
				MsgStr:             old.MsgStr,
				MsgStrPlural:       copyPlural(old.MsgStrPlural),
			})
			matched[key] = true
			continue
		}
		if old, ok := retired[key]; ok && old.HasTranslation() {
			// A message back from the dead keeps its old translation but
			// needs review.
			revived := &po.Entry{
				TranslatorComments: old.TranslatorComments,
				ExtractedComments:  tmpl.ExtractedComments,
				References:         tmpl.References,
				Flags:              mergeFlags(append([]string{"fuzzy"}, old.Flags...), tmpl.Flags),
				MsgCtxt:            tmpl.MsgCtxt,
				MsgID:              tmpl.MsgID,
				MsgIDPlural:        tmpl.MsgIDPlural,
				MsgStr:             old.MsgStr,
				MsgStrPlural:       copyPlural(old.MsgStrPlural),
			}
			result.Entries = append(result.Entries, revived)
			matched[key] = true
			continue
		}
		result.Entries = append(result.Entries, &po.Entry{
			ExtractedComments: tmpl.ExtractedComments,
			References:        tmpl.References,
			Flags:             withoutFuzzy(tmpl.Flags),
			MsgCtxt:           tmpl.MsgCtxt,
			MsgID:             tmpl.MsgID,
			MsgIDPlural:       tmpl.MsgIDPlural,
			MsgStrPlural:      make(map[int]string),
		})
	}

	for _, e := range poFile.Entries {
		if e.MsgID == "" || e.Obsolete || matched[e.Key()] {
			continue
		}
		obsolete := *e
		obsolete.Obsolete = true
		obsolete.References = nil
		obsolete.MsgStrPlural = copyPlural(e.MsgStrPlural)
		result.Entries = append(result.Entries, &obsolete)
	}
	// Already-obsolete messages are carried over last unless the template
	// brought them back.
	for _, e := range poFile.Entries {
		if e.Obsolete && !matched[e.Key()] && !inTemplate(potFile, e) {
			old := *e
			result.Entries = append(result.Entries, &old)
		}
	}

	return result
}

// mergeFlags keeps "fuzzy" first, then the template's flags in template
// order, then any remaining translation-side flags. The result is
// deterministic and free of duplicates.
func mergeFlags(poFlags, potFlags []string) []string {
	seen := make(map[string]bool, len(poFlags)+len(potFlags))
	var out []string
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}

	for _, f := range poFlags {
		if f == "fuzzy" {
			add(f)
		}
	}
	for _, f := range potFlags {
		if f != "fuzzy" {
			add(f)
		}
	}
	for _, f := range poFlags {
		add(f)
	}
	return out
}

func inTemplate(potFile *po.File, e *po.Entry) bool {
	return potFile.Lookup(e.MsgCtxt, e.MsgID) != nil
}

func withoutFuzzy(flags []string) []string {
	var out []string
	for _, f := range flags {
		if f != "fuzzy" {
			out = append(out, f)
		}
	}
	return out
}

func copyPlural(m map[int]string) map[int]string {
	out := make(map[int]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
