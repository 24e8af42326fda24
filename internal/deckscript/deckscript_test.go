package deckscript

import (
	"os"
	"strings"
	"testing"
)

func TestStage_WritesModule(t *testing.T) {
	dir := t.TempDir()

	dest, err := Stage(dir)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("staged module unreadable: %v", err)
	}
	if !strings.Contains(string(data), "function decktheme.create_template") {
		t.Errorf("staged module missing factory function")
	}

	// Staging twice must not fail.
	if _, err := Stage(dir); err != nil {
		t.Errorf("second Stage failed: %v", err)
	}
}

func TestSource_EmbedsEveryContractTheme(t *testing.T) {
	src := string(Source())
	for _, theme := range Themes {
		if !strings.Contains(src, theme) {
			t.Errorf("embedded module missing theme %q", theme)
		}
	}
	for _, method := range SlideMethods {
		if !strings.Contains(src, method) {
			t.Errorf("embedded module missing slide method %q", method)
		}
	}
}
