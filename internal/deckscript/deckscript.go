// Package deckscript ships the embedded design-system module that generated
// scripts must build decks through, and names the contract the validator
// enforces against candidate sources.
package deckscript

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed decktheme.lua
var moduleSource []byte

// ModuleName is the require() name of the design-system module.
const ModuleName = "decktheme"

// ModuleFile is the filename the module is staged under.
const ModuleFile = "decktheme.lua"

// ScriptFile is the filename the finalized generated script is written to.
const ScriptFile = "generate_deck.lua"

// DefaultArtifactName is the deck document produced by a save call.
const DefaultArtifactName = "presentation.deck.json"

// Themes enumerates the design-system themes accepted by create_template.
var Themes = []string{"business", "tech", "creative", "corporate"}

// SlideMethods lists the recognized content-construction calls.
var SlideMethods = []string{
	"add_title_slide",
	"add_content_slide",
	"add_section_slide",
	"add_comparison_slide",
	"add_conclusion_slide",
	"add_thank_you_slide",
	"add_image_slide",
	"add_image_content_slide",
}

// Source returns the embedded module source.
func Source() []byte {
	out := make([]byte, len(moduleSource))
	copy(out, moduleSource)
	return out
}

// Stage copies the design-system module into dir so that a script running
// with that directory on its require path resolves the import locally,
// independent of where the orchestrator itself is installed. Staging is
// idempotent: an existing copy is overwritten.
func Stage(dir string) (string, error) {
	dest := filepath.Join(dir, ModuleFile)
	if err := os.WriteFile(dest, moduleSource, 0o644); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", ModuleFile, err)
	}
	return dest, nil
}
