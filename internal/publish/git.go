// Package publish ships the written predictions artifact to places other
// than the local disk.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"shootcast/internal/report"
)

// Runner executes git with args inside dir and returns combined output.
type Runner func(ctx context.Context, dir string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

type GitConfig struct {
	Dir     string
	Message string
	Push    bool
}

// Git commits the artifact into the repository at Dir and optionally pushes.
type Git struct {
	cfg GitConfig
	run Runner
}

func NewGit(cfg GitConfig) *Git {
	return &Git{cfg: cfg, run: execRunner}
}

// WithRunner replaces the git executor.
func (g *Git) WithRunner(r Runner) *Git {
	g.run = r
	return g
}

func (g *Git) Name() string {
	return "git"
}

// Publish stages and commits the artifact. An unchanged artifact is neither
// committed nor pushed.
func (g *Git) Publish(ctx context.Context, a report.Artifact) error {
	path := g.relPath(a.Path)

	if out, err := g.run(ctx, g.cfg.Dir, "add", "--", path); err != nil {
		return gitErr("add", out, err)
	}

	out, err := g.run(ctx, g.cfg.Dir, "diff", "--cached", "--quiet", "--", path)
	if err == nil {
		return nil
	}
	var exitErr interface{ ExitCode() int }
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		return gitErr("diff", out, err)
	}

	message := g.cfg.Message
	if message == "" {
		message = "Update predictions"
	}
	if out, err := g.run(ctx, g.cfg.Dir, "commit", "-m", message, "--", path); err != nil {
		return gitErr("commit", out, err)
	}

	if !g.cfg.Push {
		return nil
	}
	if out, err := g.run(ctx, g.cfg.Dir, "push"); err != nil {
		return gitErr("push", out, err)
	}
	return nil
}

func (g *Git) relPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	dir, err := filepath.Abs(g.cfg.Dir)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return rel
}

func gitErr(step string, out []byte, err error) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return fmt.Errorf("git %s failed: %w", step, err)
	}
	return fmt.Errorf("git %s failed: %w: %s", step, err, msg)
}
