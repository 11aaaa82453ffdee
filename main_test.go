package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/minios-linux/potstats/stats"
)

func TestProgressBar(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })

	tests := []struct {
		name    string
		percent int
		width   int
		want    string
	}{
		{
			name:    "clamps below zero",
			percent: -10,
			width:   4,
			want:    "░░░░   0%",
		},
		{
			name:    "mid range",
			percent: 50,
			width:   4,
			want:    "██░░  50%",
		},
		{
			name:    "clamps above hundred",
			percent: 120,
			width:   4,
			want:    "████ 100%",
		},
	}

	for _, tc := range tests {
		if got := progressBar(tc.percent, tc.width); got != tc.want {
			t.Fatalf("%s: progressBar() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestStatusNote(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })

	if got := statusNote(stats.Stats{Translated: 1, Merged: true}); got != "" {
		t.Fatalf("statusNote(merged) = %q, want empty", got)
	}
	if got := statusNote(stats.Failed(true)); !strings.Contains(got, "unreadable") {
		t.Fatalf("statusNote(failed) = %q", got)
	}
	if got := statusNote(stats.Stats{Translated: 1}); !strings.Contains(got, "not merged") {
		t.Fatalf("statusNote(unmerged) = %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(&buf, "INFO")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("log output = %q", out)
	}

	if _, err := newLogger(&buf, "chatty"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		".potstats.yaml": "merge:\n  tool: builtin\nresources:\n  - name: app\n",
		"po/app.pot":     "msgid \"\"\nmsgstr \"\"\n\nmsgid \"a\"\nmsgstr \"\"\n\nmsgid \"b\"\nmsgstr \"\"\n",
		"po/de.po":       "msgid \"a\"\nmsgstr \"A\"\n\nmsgid \"b\"\nmsgstr \"B\"\n",
		"po/ru.po":       "msgid \"a\"\nmsgstr \"А\"\n",
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	for _, key := range []string{"POTSTATS_STAGING_ROOT", "POTSTATS_MERGE_TOOL", "POTSTATS_DB_DRIVER", "POTSTATS_DB_DSN", "POTSTATS_REDIS_URL"} {
		t.Setenv(key, "")
	}
	return dir
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("potstats %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestRecordThenList(t *testing.T) {
	dir := writeProject(t)

	execute(t, "--root", dir, "record")
	if _, err := os.Stat(filepath.Join(dir, ".potstats", "stats.db")); err != nil {
		t.Fatalf("database not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".potstats", "staging", "potstats.lock")); err != nil {
		t.Fatalf("lock file not created: %v", err)
	}

	out := execute(t, "--root", dir, "list")
	de := strings.Index(out, "Deutsch")
	ru := strings.Index(out, "Русский")
	if de < 0 || ru < 0 || de > ru {
		t.Fatalf("list output not ordered by completeness:\n%s", out)
	}
	if !strings.Contains(out, "100%") || !strings.Contains(out, " 50%") {
		t.Fatalf("list output lacks percentages:\n%s", out)
	}

	execute(t, "--root", dir, "purge")
	out = execute(t, "--root", dir, "list")
	if strings.Contains(out, "Deutsch") {
		t.Fatalf("list after purge:\n%s", out)
	}
}

func TestRecordChangedSkipsUnchanged(t *testing.T) {
	dir := writeProject(t)
	execute(t, "--root", dir, "record")

	// Nothing changed: a --changed run records nothing, list still works.
	execute(t, "--root", dir, "record", "--changed")
	out := execute(t, "--root", dir, "list")
	if !strings.Contains(out, "Русский") {
		t.Fatalf("list output:\n%s", out)
	}
}

func TestStatsAndLanguages(t *testing.T) {
	dir := writeProject(t)

	out := execute(t, "--root", dir, "stats", "ru")
	if !strings.Contains(out, "Русский") || strings.Contains(out, "Deutsch") {
		t.Fatalf("stats ru output:\n%s", out)
	}

	out = execute(t, "--root", dir, "languages")
	for _, want := range []string{"po/app.pot", "po/de.po", "po/ru.po"} {
		if !strings.Contains(out, want) {
			t.Fatalf("languages output lacks %s:\n%s", want, out)
		}
	}
}

func TestUnknownResource(t *testing.T) {
	dir := writeProject(t)
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--root", dir, "--resource", "missing", "list"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown resource") {
		t.Fatalf("Execute error = %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	out := execute(t, "version")
	if !strings.Contains(out, "potstats version dev") {
		t.Fatalf("version output = %q", out)
	}
}
