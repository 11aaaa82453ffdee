// Command potstats reports translation completeness of gettext resources.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/minios-linux/potstats/i18n"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	infoLabel    = color.New(color.FgBlue).Sprint("[INFO]")
	successLabel = color.New(color.FgGreen).Sprint("[OK]")
	warnLabel    = color.New(color.FgYellow, color.Bold).Sprint("[WARN]")
	errorLabel   = color.New(color.FgRed).Sprint("[ERROR]")
	heading      = color.New(color.FgBlue).SprintFunc()

	colorRed    = color.New(color.FgRed)
	colorYellow = color.New(color.FgYellow)
	colorGreen  = color.New(color.FgGreen)
	errorNote   = color.New(color.FgRed)
	warnNote    = color.New(color.FgYellow)
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, infoLabel+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, successLabel+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, warnLabel+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, errorLabel+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir      string
	resourceName string
	logLevel     string
)

// newLogger returns the diagnostic logger: human-readable on w, filtered
// by level.
func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: color.NoColor}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "potstats",
		Short: i18n.T("Translation statistics for gettext resources"),
		Long: i18n.T(`potstats reports translation statistics for gettext resources.

Finds the PO files of each resource declared in .potstats.yaml, merges them
against the resource's POT template in a staging area, counts translated,
fuzzy and untranslated messages, and stores the results ordered by
completeness.

Commands:
  languages   List languages and their files
  stats       Compute statistics without storing them
  record      Compute and store statistics
  list        Show stored statistics, most complete first
  purge       Delete stored statistics`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", i18n.T("Project root directory"))
	root.PersistentFlags().StringVarP(&resourceName, "resource", "r", "", i18n.T("Only this resource (default: all)"))
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", i18n.T("Diagnostic log level (debug, info, warn, error)"))

	root.AddCommand(
		newLanguagesCmd(),
		newStatsCmd(),
		newRecordCmd(),
		newListCmd(),
		newPurgeCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  i18n.T("Display version, commit hash, and build date."),
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "potstats version %s\n", version)
			fmt.Fprintf(w, "  commit:    %s\n", commit)
			fmt.Fprintf(w, "  built:     %s\n", date)
		},
	}
}
