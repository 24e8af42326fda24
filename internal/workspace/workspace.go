// Package workspace allocates the isolated per-request directory tree that
// every pipeline stage writes into. Each request gets exactly one workspace,
// identified by a collision-resistant unique id, and never shares it.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Subdirectory names inside every workspace root.
const (
	CodeDir   = "code"
	OutputDir = "output"
	AssetsDir = "assets"
	LogsDir   = "logs"
)

// Workspace is an isolated directory tree owned by a single request.
type Workspace struct {
	ID   string
	Root string
}

// IOError wraps filesystem failures during workspace creation. It is fatal
// to the request; the orchestrator never retries it.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("workspace io error at %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Manager creates workspaces under a fixed base directory.
type Manager struct {
	baseDir string
}

// NewManager returns a Manager rooted at baseDir. The base directory is
// created lazily on the first Create call.
func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

// Create builds a new workspace for the given topic. The directory name
// combines a slug of the topic, a timestamp and an 8-character unique id,
// so two concurrent requests can never collide.
func (m *Manager) Create(topic string) (*Workspace, error) {
	id := uuid.NewString()[:8]
	name := fmt.Sprintf("deck_%s_%s_%s", slugify(topic), time.Now().Format("20060102_150405"), id)
	root := filepath.Join(m.baseDir, name)

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &IOError{Path: root, Err: err}
	}

	for _, sub := range []string{CodeDir, OutputDir, AssetsDir, LogsDir} {
		dir := filepath.Join(root, sub)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &IOError{Path: dir, Err: err}
		}
	}

	return &Workspace{ID: id, Root: root}, nil
}

// CodePath returns the absolute path of a file under code/.
func (w *Workspace) CodePath(name string) string {
	return filepath.Join(w.Root, CodeDir, name)
}

// OutputPath returns the absolute path of a file under output/.
func (w *Workspace) OutputPath(name string) string {
	return filepath.Join(w.Root, OutputDir, name)
}

// AssetPath returns the absolute path of a file under assets/.
func (w *Workspace) AssetPath(name string) string {
	return filepath.Join(w.Root, AssetsDir, name)
}

// LogPath returns the absolute path of a file under logs/.
func (w *Workspace) LogPath(name string) string {
	return filepath.Join(w.Root, LogsDir, name)
}

// slugify lowercases the topic and collapses anything that is not a letter
// or digit into single underscores, keeping directory names portable.
func slugify(topic string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(topic)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		s = "topic"
	}
	if len(s) > 40 {
		s = s[:40]
	}
	return strings.Trim(s, "_")
}
