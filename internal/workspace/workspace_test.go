package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreate_BuildsFixedLayout(t *testing.T) {
	m := NewManager(t.TempDir())

	ws, err := m.Create("Solar Energy")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if len(ws.ID) != 8 {
		t.Errorf("expected 8-char id, got %q", ws.ID)
	}
	if !strings.Contains(filepath.Base(ws.Root), "solar_energy") {
		t.Errorf("expected topic slug in root name, got %s", ws.Root)
	}

	for _, sub := range []string{CodeDir, OutputDir, AssetsDir, LogsDir} {
		info, err := os.Stat(filepath.Join(ws.Root, sub))
		if err != nil {
			t.Fatalf("missing subdirectory %s: %v", sub, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", sub)
		}
	}
}

func TestCreate_DistinctRequestsNeverShareRoots(t *testing.T) {
	m := NewManager(t.TempDir())

	a, err := m.Create("same topic")
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	b, err := m.Create("same topic")
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}

	if a.Root == b.Root {
		t.Fatalf("two requests share a workspace root: %s", a.Root)
	}
	if a.ID == b.ID {
		t.Errorf("two requests share a workspace id: %s", a.ID)
	}

	// Writes into one workspace must not be visible in the other.
	if err := os.WriteFile(a.OutputPath("deck.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := os.Stat(b.OutputPath("deck.json")); !os.IsNotExist(err) {
		t.Errorf("artifact leaked across workspaces")
	}
}

func TestCreate_FailsOnUnwritableBase(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks are meaningless as root")
	}
	base := filepath.Join(t.TempDir(), "ro")
	if err := os.MkdirAll(base, 0o555); err != nil {
		t.Fatal(err)
	}

	m := NewManager(filepath.Join(base, "nested"))
	_, err := m.Create("topic")
	if err == nil {
		t.Fatal("expected IOError on unwritable base dir")
	}
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("expected *IOError, got %T: %v", err, err)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Solar Energy":           "solar_energy",
		"  AI & ML: a survey  ":  "ai_ml_a_survey",
		"":                       "topic",
		"---":                    "topic",
		"Quantum/Computing 2025": "quantum_computing_2025",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
