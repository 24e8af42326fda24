package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidesmith/internal/deckscript"
)

// stageScript writes the design-system module and a deck script into a temp
// dir, returning the script path.
func stageScript(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	_, err := deckscript.Stage(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "generate_deck.lua")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))
	return path
}

func TestRun_ProducesDeckDocument(t *testing.T) {
	out := filepath.Join(t.TempDir(), "presentation.deck.json")
	script := `local decktheme = require("decktheme")
local deck = decktheme.create_template("tech")
deck:add_title_slide("Solar Energy", "An overview")
deck:add_content_slide("Basics", {"Photovoltaic panels", "Solar thermal collectors"})
deck:add_thank_you_slide()
deck:save("` + filepath.ToSlash(out) + `")`

	require.NoError(t, run(stageScript(t, script)))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var doc struct {
		Version    int    `json:"version"`
		Theme      string `json:"theme"`
		SlideCount int    `json:"slide_count"`
		Slides     []struct {
			Kind  string `json:"kind"`
			Title string `json:"title"`
		} `json:"slides"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, "tech", doc.Theme)
	assert.Equal(t, 3, doc.SlideCount)
	require.Len(t, doc.Slides, 3)
	assert.Equal(t, "Solar Energy", doc.Slides[0].Title)
}

func TestRun_EnforcedOutputOverridesScriptPath(t *testing.T) {
	out := filepath.Join(t.TempDir(), "enforced.deck.json")
	stray := filepath.Join(t.TempDir(), "stray.deck.json")
	script := `require("decktheme").set_output("` + filepath.ToSlash(out) + `")
local decktheme = require("decktheme")
local deck = decktheme.create_template("business")
deck:add_title_slide("Q3 Review")
deck:save("` + filepath.ToSlash(stray) + `")`

	require.NoError(t, run(stageScript(t, script)))

	_, err := os.Stat(out)
	assert.NoError(t, err, "enforced destination not written")
	_, err = os.Stat(stray)
	assert.True(t, os.IsNotExist(err), "script's own path must be ignored")
}

func TestRun_ScriptErrorSurfaces(t *testing.T) {
	err := run(stageScript(t, `error("deliberate failure")`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliberate failure")
}

func TestRun_UnknownThemeRejected(t *testing.T) {
	script := `local decktheme = require("decktheme")
local deck = decktheme.create_template("vaporwave")`
	err := run(stageScript(t, script))
	assert.Error(t, err)
}

func TestRun_OSLibraryUnavailable(t *testing.T) {
	err := run(stageScript(t, `os.getenv("HOME")`))
	assert.Error(t, err)
}

func TestRun_DynamicLoadingRemoved(t *testing.T) {
	err := run(stageScript(t, `load("return 1")()`))
	assert.Error(t, err)
}

func TestRun_RequireConfinedToScriptDir(t *testing.T) {
	err := run(stageScript(t, `require("socket")`))
	assert.Error(t, err)
}
