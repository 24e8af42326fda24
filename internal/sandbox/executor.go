// Package sandbox stages, finalizes and runs candidate deck scripts as
// isolated child processes. Isolation here means a dedicated working
// directory and a hard wall-clock deadline; anything stronger is delegated
// to the environment. The executor never retries — retry policy belongs to
// the orchestrator.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"slidesmith/internal/deckscript"
	"slidesmith/internal/workspace"
)

// ErrDependencyUnavailable is returned when the script runner binary cannot
// be located or built. Fatal to the attempt; never retried.
var ErrDependencyUnavailable = errors.New("script runner unavailable")

// Record captures everything observed about one execution.
type Record struct {
	ExitCode     int
	Stdout       string
	Stderr       string
	ArtifactPath string // empty when the artifact was not produced
	Elapsed      time.Duration
	TimedOut     bool
}

// Config tunes the executor.
type Config struct {
	// RunnerPath is the deckrun binary. When empty, PATH is searched for
	// "deckrun"; when that fails and RunnerSourceDir is set, a one-time
	// bounded `go build` is attempted.
	RunnerPath      string
	RunnerSourceDir string
	// Timeout is the wall-clock deadline for the child process.
	Timeout time.Duration
	// InstallTimeout bounds the one-time runner build.
	InstallTimeout time.Duration
	// MaxOutputBytes caps captured stdout and stderr individually.
	MaxOutputBytes int64
}

// DefaultConfig returns the executor defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:        2 * time.Minute,
		InstallTimeout: 2 * time.Minute,
		MaxOutputBytes: 1 << 20,
	}
}

// Executor runs candidate scripts.
type Executor struct {
	cfg    Config
	logger *zap.Logger

	ensureOnce sync.Once
	runnerPath string
	ensureErr  error
}

// New creates an Executor. A nil logger is replaced with a no-op logger.
func New(cfg Config, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.InstallTimeout <= 0 {
		cfg.InstallTimeout = DefaultConfig().InstallTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = DefaultConfig().MaxOutputBytes
	}
	return &Executor{cfg: cfg, logger: logger}
}

// EnsureRunner verifies the runtime dependency needed to execute scripts.
// The check (and, when needed, the bounded build) happens once per Executor;
// subsequent calls return the memoized result.
func (e *Executor) EnsureRunner(ctx context.Context) error {
	e.ensureOnce.Do(func() {
		e.runnerPath, e.ensureErr = e.locateOrInstall(ctx)
	})
	return e.ensureErr
}

func (e *Executor) locateOrInstall(ctx context.Context) (string, error) {
	if e.cfg.RunnerPath != "" {
		if _, err := os.Stat(e.cfg.RunnerPath); err == nil {
			return e.cfg.RunnerPath, nil
		}
	}

	if path, err := exec.LookPath("deckrun"); err == nil {
		e.logger.Debug("script runner found on PATH", zap.String("path", path))
		return path, nil
	}

	if e.cfg.RunnerSourceDir == "" {
		return "", fmt.Errorf("%w: deckrun not found and no source dir configured", ErrDependencyUnavailable)
	}

	// One-time bounded installation, mirroring a missing interpreter
	// dependency being installed on demand.
	dest := e.cfg.RunnerPath
	if dest == "" {
		dest = filepath.Join(os.TempDir(), "slidesmith", "deckrun")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	buildCtx, cancel := context.WithTimeout(ctx, e.cfg.InstallTimeout)
	defer cancel()

	e.logger.Info("building script runner", zap.String("dest", dest))
	cmd := exec.CommandContext(buildCtx, "go", "build", "-o", dest, "./cmd/deckrun")
	cmd.Dir = e.cfg.RunnerSourceDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		if buildCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: runner build timed out after %s", ErrDependencyUnavailable, e.cfg.InstallTimeout)
		}
		return "", fmt.Errorf("%w: runner build failed: %v: %s", ErrDependencyUnavailable, err, bytes.TrimSpace(out))
	}
	return dest, nil
}

var savePattern = regexp.MustCompile(`:save\s*\(`)

// EnforceArtifact pins the script's save destination to destPath. The path
// is injected structurally: a prelude configures the design system with the
// enforced output, which overrides whatever path the script's own save call
// passes. When the script has no save call at all, one is appended, assuming
// the contract variable name `deck`. Idempotent.
func EnforceArtifact(source, destPath string) string {
	dest := filepath.ToSlash(destPath)
	prelude := fmt.Sprintf("require(%q).set_output(%q)\n", deckscript.ModuleName, dest)
	if strings.HasPrefix(source, prelude) {
		return source
	}

	out := prelude + source
	if !savePattern.MatchString(source) {
		out = strings.TrimRight(out, "\n") + fmt.Sprintf("\n\ndeck:save(%q)\n", dest)
	}
	return out
}

// Execute finalizes and runs one candidate script inside the workspace.
//  1. The save destination is pinned to <ws>/output/<artifactFilename>.
//  2. The design-system module is staged next to the script.
//  3. The finalized script is written under <ws>/code/.
//  4. deckrun executes it with the workspace root as working directory,
//     stdout/stderr captured, and a hard deadline; on expiry the process is
//     killed and the record is marked TimedOut.
//
// A non-nil error means the infrastructure failed, not the script; script
// failures are reported inside the Record.
func (e *Executor) Execute(ctx context.Context, source string, ws *workspace.Workspace, artifactFilename string) (*Record, error) {
	if err := e.EnsureRunner(ctx); err != nil {
		return nil, err
	}
	if artifactFilename == "" {
		artifactFilename = deckscript.DefaultArtifactName
	}

	artifactPath := ws.OutputPath(artifactFilename)
	finalized := EnforceArtifact(source, artifactPath)

	codeDir := filepath.Join(ws.Root, workspace.CodeDir)
	if _, err := deckscript.Stage(codeDir); err != nil {
		return nil, err
	}

	scriptPath := ws.CodePath(deckscript.ScriptFile)
	if err := os.WriteFile(scriptPath, []byte(finalized), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write script: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, e.runnerPath, scriptPath)
	cmd.Dir = ws.Root
	cmd.Env = minimalEnvironment()
	// Do not let an inherited pipe keep Wait alive after the kill.
	cmd.WaitDelay = 5 * time.Second

	var stdoutBuf, stderrBuf bytes.Buffer
	stdout := &limitedWriter{w: &stdoutBuf, max: e.cfg.MaxOutputBytes}
	stderr := &limitedWriter{w: &stderrBuf, max: e.cfg.MaxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	e.logger.Info("executing deck script",
		zap.String("script", scriptPath),
		zap.String("workspace", ws.Root),
		zap.Duration("timeout", e.cfg.Timeout))

	started := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(started)

	rec := &Record{
		Stdout:  stdoutBuf.String(),
		Stderr:  stderrBuf.String(),
		Elapsed: elapsed,
	}

	switch {
	case execCtx.Err() == context.DeadlineExceeded:
		rec.TimedOut = true
		rec.ExitCode = -1
		e.logger.Warn("script killed on deadline", zap.Duration("elapsed", elapsed))
		e.cleanPartialOutput(artifactPath)
		return rec, nil
	case runErr != nil:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			rec.ExitCode = exitErr.ExitCode()
			e.logger.Debug("script exited non-zero", zap.Int("exit_code", rec.ExitCode))
			return rec, nil
		}
		return nil, fmt.Errorf("failed to run script: %w", runErr)
	}

	rec.ExitCode = 0
	if _, err := os.Stat(artifactPath); err == nil {
		rec.ArtifactPath = artifactPath
		e.logger.Info("artifact produced", zap.String("artifact", artifactPath), zap.Duration("elapsed", elapsed))
	} else {
		e.logger.Warn("script exited clean but produced no artifact", zap.String("expected", artifactPath))
	}
	return rec, nil
}

// cleanPartialOutput removes a half-written artifact left behind by a killed
// process so that a later attempt cannot mistake it for a real result.
func (e *Executor) cleanPartialOutput(artifactPath string) {
	if err := os.Remove(artifactPath); err != nil && !os.IsNotExist(err) {
		e.logger.Warn("failed to remove partial artifact", zap.String("path", artifactPath), zap.Error(err))
	}
}

// minimalEnvironment passes through only what a Lua script runner needs.
func minimalEnvironment() []string {
	env := make([]string, 0, 4)
	for _, key := range []string{"PATH", "HOME", "TMPDIR", "TEMP"} {
		if val := os.Getenv(key); val != "" {
			env = append(env, key+"="+val)
		}
	}
	return env
}
