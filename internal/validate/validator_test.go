package validate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScript = `local decktheme = require("decktheme")

local deck = decktheme.create_template("business")
deck:add_title_slide("Solar Energy", "A market overview")
deck:add_content_slide("Key drivers", {
  "Falling panel costs",
  "Policy incentives",
})
deck:add_conclusion_slide("Takeaways", { "Solar keeps growing" })
deck:add_thank_you_slide("Questions?")
deck:save("presentation.deck.json")
`

func findingCodes(r Report) []string {
	codes := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		codes = append(codes, f.Code)
	}
	return codes
}

func TestValidate_CleanScriptPasses(t *testing.T) {
	report := New().Validate(validScript)

	assert.True(t, report.Pass())
	assert.Empty(t, report.Findings, "clean script should produce no findings")
}

func TestValidate_MissingImportIsBlocking(t *testing.T) {
	source := `local deck = create_template("tech")
deck:add_title_slide("t", "s")
deck:save("out.json")
`
	report := New().Validate(source)

	require.False(t, report.Pass())
	assert.Contains(t, findingCodes(report), CodeMissingImport)
}

func TestValidate_SyntaxErrorShortCircuits(t *testing.T) {
	source := `local decktheme = require("decktheme"
deck:add_title_slide(`
	report := New().Validate(source)

	require.Len(t, report.Findings, 1, "syntax failure must be the only finding")
	assert.Equal(t, CodeSyntaxInvalid, report.Findings[0].Code)
	assert.Equal(t, SeverityBlocking, report.Findings[0].Severity)
	assert.False(t, report.Pass())
}

func TestValidate_RawConstructionIsBlocking(t *testing.T) {
	source := `local decktheme = require("decktheme")
local deck = decktheme.create_template("business")
local f = io.open("deck.json", "w")
f:write("{}")
f:close()
`
	report := New().Validate(source)

	require.False(t, report.Pass())
	assert.Contains(t, findingCodes(report), CodeRawConstruction)
}

func TestValidate_MissingThemeAndSaveAreWarningsOnly(t *testing.T) {
	source := `local decktheme = require("decktheme")
local theme = "busi" .. "ness"
local deck = decktheme.create_template(theme)
deck:add_title_slide("t", "s")
`
	report := New().Validate(source)

	assert.True(t, report.Pass(), "warnings must not block execution")
	codes := findingCodes(report)
	assert.Contains(t, codes, CodeThemeUnselected)
	assert.Contains(t, codes, CodeMissingSave)
}

func TestValidate_NoSlideCallsWarns(t *testing.T) {
	source := `local decktheme = require("decktheme")
local deck = decktheme.create_template("corporate")
deck:save("out.json")
`
	report := New().Validate(source)

	assert.True(t, report.Pass())
	assert.Contains(t, findingCodes(report), CodeNoSlideCalls)
}

func TestValidate_AssetReferenceLeakageWarns(t *testing.T) {
	source := `local decktheme = require("decktheme")
local deck = decktheme.create_template("creative")
deck:add_content_slide("Overview", {
  "Visual note: see assets/solar_panel.jpg",
  "supporting image on the right",
})
deck:save("out.json")
`
	report := New().Validate(source)

	assert.True(t, report.Pass(), "leakage heuristic must never block")
	count := 0
	for _, f := range report.Findings {
		if f.Code == CodeAssetReference {
			count++
			assert.Equal(t, SeverityWarning, f.Severity)
		}
	}
	assert.GreaterOrEqual(t, count, 3, "expected findings for .jpg, assets/ and phrase patterns")
}

func TestValidate_LeakageIgnoredWithoutContentSlides(t *testing.T) {
	source := `local decktheme = require("decktheme")
local deck = decktheme.create_template("business")
deck:add_image_slide("Panels", "assets/solar_panel.jpg", "A field of panels")
deck:save("out.json")
`
	report := New().Validate(source)

	assert.NotContains(t, findingCodes(report), CodeAssetReference,
		"image slide arguments are the correct place for asset paths")
}

func TestValidate_Idempotent(t *testing.T) {
	v := New()
	for _, source := range []string{validScript, "local x = (", "print('hi')"} {
		first := v.Validate(source)
		second := v.Validate(source)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("validate not idempotent for %q (-first +second):\n%s", source, diff)
		}
	}
}
