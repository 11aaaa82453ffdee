package merge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/otiai10/copy"
	"github.com/rs/zerolog"

	po "github.com/minios-linux/potstats/pofile"
)

// DefaultTimeout bounds a single merge tool invocation.
const DefaultTimeout = 30 * time.Second

// Config holds the process-wide settings of an Engine.
type Config struct {
	// StagingRoot is the directory merged copies are written under, one
	// subdirectory per resource.
	StagingRoot string
	// Timeout bounds each tool run. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Outcome reports where the staged copy of a translation file is and
// whether it was reconciled with the template. Merged=false means the
// staged file is a verbatim copy of the original.
type Outcome struct {
	Merged     bool
	OutputPath string
}

// Tool reconciles a translation file with a template, writing the result
// to output.
type Tool interface {
	Run(ctx context.Context, output, translation, template string) error
}

// ToolFunc adapts a function to the Tool interface.
type ToolFunc func(ctx context.Context, output, translation, template string) error

// Run calls f.
func (f ToolFunc) Run(ctx context.Context, output, translation, template string) error {
	return f(ctx, output, translation, template)
}

// Msgmerge runs GNU msgmerge.
type Msgmerge struct {
	// Path is the msgmerge binary; empty means "msgmerge" from PATH.
	Path string
	// NoFuzzy disables msgmerge's fuzzy matching of new messages.
	NoFuzzy bool
}

// Run implements Tool.
func (m Msgmerge) Run(ctx context.Context, output, translation, template string) error {
	bin := m.Path
	if bin == "" {
		bin = "msgmerge"
	}
	binPath, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("%s not found; install gettext: %w", bin, err)
	}

	args := []string{"--quiet", "--output-file=" + output}
	if m.NoFuzzy {
		args = append(args, "--no-fuzzy-matching")
	}
	args = append(args, translation, template)

	cmd := exec.CommandContext(ctx, binPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("msgmerge failed: %w: %s", err, msg)
		}
		return fmt.Errorf("msgmerge failed: %w", err)
	}
	return nil
}

// Builtin reconciles catalogs in-process with Merge.
type Builtin struct{}

// Run implements Tool.
func (Builtin) Run(ctx context.Context, output, translation, template string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	poFile, err := po.ParseFile(translation)
	if err != nil {
		return err
	}
	potFile, err := po.ParseFile(template)
	if err != nil {
		return err
	}
	return Merge(poFile, potFile).WriteFile(output)
}

// Engine stages merged copies of translation files. It holds no mutable
// state and is safe for concurrent use; two merges of the same file race
// on the staged copy and the last writer wins.
type Engine struct {
	cfg  Config
	tool Tool
	log  zerolog.Logger
}

// NewEngine returns an Engine that merges with tool.
func NewEngine(cfg Config, tool Tool, log zerolog.Logger) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Engine{cfg: cfg, tool: tool, log: log}
}

// StagingPath returns where the staged copy of rel, a path inside resource,
// is written. Both components are confined below the staging root.
func (e *Engine) StagingPath(resource, rel string) string {
	return filepath.Join(e.cfg.StagingRoot, confine(resource), confine(rel))
}

func confine(p string) string {
	cleaned := filepath.Clean(string(filepath.Separator) + filepath.FromSlash(p))
	return strings.TrimLeft(cleaned, string(filepath.Separator))
}

// Merge stages translation, reconciled against template, for the file rel
// of resource. A failing tool never surfaces as an error: the original file
// is copied instead and Merged is false.
func (e *Engine) Merge(ctx context.Context, resource, rel, translation, template string) Outcome {
	out := Outcome{OutputPath: e.StagingPath(resource, rel)}
	log := e.log.With().Str("resource", resource).Str("file", rel).Logger()

	// A copy left by an earlier run must not be scored in place of this one.
	if err := os.Remove(out.OutputPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("removing previous staged copy")
	}

	err := e.run(ctx, out.OutputPath, translation, template)
	if err == nil {
		log.Debug().Str("output", out.OutputPath).Msg("merged against template")
		out.Merged = true
		return out
	}

	log.Warn().Err(err).Msg("merge failed, staging unmerged copy")
	if cerr := copy.Copy(translation, out.OutputPath); cerr != nil {
		log.Error().Err(cerr).Msg("staging unmerged copy")
		if rerr := os.Remove(out.OutputPath); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			log.Error().Err(rerr).Msg("removing partial staged copy")
		}
	}
	return out
}

func (e *Engine) run(ctx context.Context, output, translation, template string) error {
	// MkdirAll treats an existing directory as success, including one a
	// concurrent merge just created.
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	if e.tool == nil {
		return errors.New("no merge tool configured")
	}
	if template == "" {
		return errors.New("no template")
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	return e.tool.Run(ctx, output, translation, template)
}
