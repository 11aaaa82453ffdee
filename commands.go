package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minios-linux/potstats/i18n"
	"github.com/minios-linux/potstats/langmeta"
	"github.com/minios-linux/potstats/lockfile"
	"github.com/minios-linux/potstats/stats"
	"github.com/minios-linux/potstats/store"
)

// ---------------------------------------------------------------------------
// languages (read-only: languages, files, conflicts)
// ---------------------------------------------------------------------------

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: i18n.T("List languages and their files"),
		Long: i18n.T(`List the languages of each resource with the file that backs them.

Warns about languages with several files (the first in sorted order is
used), file names that do not yield a language code, and resources with
no or several templates. Does not modify any files.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			for _, r := range a.resources {
				printResourceHeader(w, r)
				conflicts := r.mgr.Conflicts()
				conv := a.cfg.Convention
				for _, lang := range r.mgr.Languages() {
					file, _ := r.mgr.TranslationFileFor(lang)
					meta := langmeta.Resolve(lang)
					marker := ""
					if lang == r.mgr.SourceLang() {
						marker = " " + i18n.T("(source)")
					}
					fmt.Fprintf(w, "  %-10s %-4s %-24s %s%s\n", lang, meta.Flag, meta.Name, file, marker)
					if err := conv.Check(lang); err != nil {
						logWarning(i18n.T("%s: file name does not yield a language code"), file)
					}
					if paths, ok := conflicts[lang]; ok {
						logWarning(i18n.T("%s: several files, using %s (ignored: %s)"),
							lang, paths[0], strings.Join(paths[1:], ", "))
					}
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}

func printResourceHeader(w io.Writer, r resourceManager) {
	fmt.Fprintf(w, "%s\n", heading(r.Name))
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "  %-10s %s\n", i18n.T("Root:"), r.root)
	tmpls := r.mgr.Templates()
	switch len(tmpls) {
	case 0:
		fmt.Fprintf(w, "  %-10s %s\n", i18n.T("Template:"), i18n.T("none"))
		logWarning(i18n.T("%s: no POT template found"), r.Name)
	case 1:
		fmt.Fprintf(w, "  %-10s %s\n", i18n.T("Template:"), tmpls[0])
	default:
		fmt.Fprintf(w, "  %-10s %s\n", i18n.T("Template:"), tmpls[0])
		logWarning(i18n.T("%s: several templates, using %s"), r.Name, tmpls[0])
	}
	fmt.Fprintln(w)
}

// ---------------------------------------------------------------------------
// stats (compute without storing)
// ---------------------------------------------------------------------------

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [lang...]",
		Short: i18n.T("Compute statistics without storing them"),
		Long: i18n.T(`Merge each language's PO file against the template in the staging area
and show translated, fuzzy and untranslated counts. Nothing is stored.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			for _, r := range a.resources {
				langs := args
				if len(langs) == 0 {
					langs = r.mgr.Languages()
				}
				var rows []*store.Record
				for _, lang := range langs {
					s, err := r.mgr.ComputeStats(cmd.Context(), lang)
					if err != nil {
						logWarning("%s/%s: %v", r.Name, lang, err)
						continue
					}
					file, _ := r.mgr.TranslationFileFor(lang)
					rec := &store.Record{ResourceID: r.Name, FileName: file, LanguageCode: lang}
					rec.SetStats(s)
					rows = append(rows, rec)
				}
				store.SortByCompleteness(rows)
				printStatsTable(w, r.Name, rows)
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// record (compute and store)
// ---------------------------------------------------------------------------

func newRecordCmd() *cobra.Command {
	var changedOnly bool
	cmd := &cobra.Command{
		Use:   "record [lang...]",
		Short: i18n.T("Compute and store statistics"),
		Long: i18n.T(`Compute statistics and store one record per PO file, creating it on first
use and updating it afterwards.

With --changed, files whose contents and template are unchanged since the
last recorded run (per potstats.lock in the staging root) are skipped.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			lock, err := a.loadLock()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			wanted := make(map[string]bool, len(args))
			for _, l := range args {
				wanted[l] = true
			}

			total := 0
			for _, r := range a.resources {
				tmpl, _ := r.mgr.SourceTemplate()
				sums := make(map[string]string)
				var keys []string
				filter := func(lang, file string) bool {
					if len(wanted) > 0 && !wanted[lang] {
						return false
					}
					key := lockfile.FileKey(file)
					keys = append(keys, key)
					paths := []string{filepath.Join(r.root, file)}
					if tmpl != "" {
						paths = append(paths, filepath.Join(r.root, tmpl))
					}
					sum, err := lockfile.HashFiles(paths...)
					if err != nil {
						a.log.Warn().Err(err).Str("file", file).Msg("cannot hash")
						return true
					}
					sums[key] = sum
					if changedOnly && !lock.IsChanged(r.Name, key, sum) {
						logInfo(i18n.T("%s/%s: unchanged, skipped"), r.Name, lang)
						return false
					}
					return true
				}

				recs, err := r.mgr.RecordAll(ctx, filter)
				for _, rec := range recs {
					if !rec.HadError {
						if sum, ok := sums[lockfile.FileKey(rec.FileName)]; ok {
							lock.Update(r.Name, lockfile.FileKey(rec.FileName), sum)
						}
					}
				}
				total += len(recs)
				if err != nil {
					_ = lock.Save()
					return err
				}
				if len(wanted) == 0 {
					lock.Clean(r.Name, keys)
				}
			}

			if err := lock.Save(); err != nil {
				return err
			}
			a.log.Info().Str("lock", lock.Summary()).Msg("lock file updated")
			logSuccess(i18n.N("Recorded %d file", "Recorded %d files", total), total)
			return nil
		},
	}
	cmd.Flags().BoolVar(&changedOnly, "changed", false, i18n.T("Skip files unchanged since the last run"))
	return cmd
}

// ---------------------------------------------------------------------------
// list (stored statistics)
// ---------------------------------------------------------------------------

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: i18n.T("Show stored statistics, most complete first"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			for _, r := range a.resources {
				recs, err := r.mgr.AllStats(cmd.Context())
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					logInfo(i18n.T("%s: nothing recorded yet. Run 'potstats record'."), r.Name)
					continue
				}
				printStatsTable(w, r.Name, recs)
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// purge (delete stored statistics)
// ---------------------------------------------------------------------------

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: i18n.T("Delete stored statistics"),
		Long:  i18n.T("Delete every stored record of the selected resources and forget their checksums."),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			lock, err := a.loadLock()
			if err != nil {
				return err
			}
			for _, r := range a.resources {
				if err := r.mgr.PurgeStats(cmd.Context()); err != nil {
					return err
				}
				lock.RemoveResource(r.Name)
				logSuccess(i18n.T("%s: statistics deleted"), r.Name)
			}
			return lock.Save()
		},
	}
}

// ---------------------------------------------------------------------------
// Output helpers
// ---------------------------------------------------------------------------

func printStatsTable(w io.Writer, resource string, recs []*store.Record) {
	fmt.Fprintf(w, "%s\n", heading(resource))
	fmt.Fprintln(w, strings.Repeat("─", 72))
	fmt.Fprintf(w, "%-10s %-24s %7s %7s %7s  %s\n",
		i18n.T("Lang"), i18n.T("Name"), i18n.T("Trans."), i18n.T("Fuzzy"), i18n.T("Untr."), i18n.T("Progress"))
	fmt.Fprintln(w, strings.Repeat("─", 72))
	for _, rec := range recs {
		name := langmeta.Resolve(rec.LanguageCode).Name
		fmt.Fprintf(w, "%-10s %-24s %7d %7d %7d  %s%s\n",
			rec.LanguageCode, name, rec.Translated, rec.Fuzzy, rec.Untranslated,
			progressBar(rec.Percent, 20), statusNote(rec.Stats()))
	}
	fmt.Fprintln(w)
}

// progressBar renders percent as a bar of width cells plus the number.
func progressBar(percent, width int) string {
	percent = max(0, min(100, percent))
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	c := colorGreen
	switch {
	case percent < 50:
		c = colorRed
	case percent < 80:
		c = colorYellow
	}
	return c.Sprint(bar) + fmt.Sprintf(" %3d%%", percent)
}

// statusNote flags rows whose numbers need a caveat.
func statusNote(s stats.Stats) string {
	switch {
	case s.HadError:
		return "  " + errorNote.Sprint(i18n.T("unreadable"))
	case !s.Merged:
		return "  " + warnNote.Sprint(i18n.T("not merged"))
	}
	return ""
}
