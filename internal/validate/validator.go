// Package validate implements the static rule engine that scores candidate
// deck scripts against the generation contract. Validation is a pure function
// of the source text: no I/O, no interpreter state, deterministic output.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/gopher-lua/parse"

	"slidesmith/internal/deckscript"
)

// Severity classifies a finding. Blocking findings stop the pipeline from
// advancing to execution; warnings are advisory.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityWarning  Severity = "warning"
)

// Finding codes.
const (
	CodeSyntaxInvalid   = "syntax-invalid"
	CodeMissingImport   = "missing-design-import"
	CodeMissingFactory  = "missing-factory-call"
	CodeRawConstruction = "raw-deck-construction"
	CodeThemeUnselected = "theme-not-selected"
	CodeMissingSave     = "missing-save-call"
	CodeNoSlideCalls    = "no-slide-calls"
	CodeAssetReference  = "asset-reference-in-text"
)

// Finding is a single validation issue.
type Finding struct {
	Severity Severity
	Code     string
	Message  string
}

// Report is the ordered result of validating one source text.
type Report struct {
	Findings []Finding
}

// Pass reports whether the source may advance to execution: true when no
// blocking finding is present.
func (r Report) Pass() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityBlocking {
			return false
		}
	}
	return true
}

// Blocking returns the blocking findings in report order.
func (r Report) Blocking() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == SeverityBlocking {
			out = append(out, f)
		}
	}
	return out
}

// Summary renders the report as corrective feedback for the generation stage.
func (r Report) Summary() string {
	if len(r.Findings) == 0 {
		return "validation passed with no findings"
	}
	var b strings.Builder
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "[%s] %s: %s\n", f.Severity, f.Code, f.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Raw deck construction bypassing the design system. io.open is included:
// only decktheme's save method may touch the filesystem.
var rawConstructionPatterns = []string{
	"Deck.new(",
	`require("deck")`,
	`require('deck')`,
	"io.open(",
}

// Substrings that indicate an image reference leaked into bullet text instead
// of going through an image slide method. Free-text pattern matching is
// fallible, so every hit is a warning, never blocking.
var assetReferencePatterns = []string{
	".jpg",
	".png",
	"assets/",
	"Visual note:",
	"Image suggestion:",
	"image located at",
	"supporting image",
}

// Validator checks candidate sources against the generation contract.
type Validator struct{}

// New returns a Validator.
func New() *Validator {
	return &Validator{}
}

// Validate runs the contract checks in a fixed order. A syntax failure
// short-circuits: the report then carries exactly one blocking finding.
func (v *Validator) Validate(source string) Report {
	var report Report

	if _, err := parse.Parse(strings.NewReader(source), deckscript.ScriptFile); err != nil {
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityBlocking,
			Code:     CodeSyntaxInvalid,
			Message:  syntaxMessage(err),
		})
		return report
	}

	if !hasRequire(source, deckscript.ModuleName) {
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityBlocking,
			Code:     CodeMissingImport,
			Message:  `missing design-system import: script must call require("decktheme")`,
		})
	}

	if !strings.Contains(source, "create_template(") {
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityBlocking,
			Code:     CodeMissingFactory,
			Message:  `missing factory call: script must instantiate the design system via create_template("<theme>")`,
		})
	}

	for _, pattern := range rawConstructionPatterns {
		if strings.Contains(source, pattern) {
			report.Findings = append(report.Findings, Finding{
				Severity: SeverityBlocking,
				Code:     CodeRawConstruction,
				Message:  fmt.Sprintf("raw deck construction detected (%s): use the design system only", strings.TrimSuffix(pattern, "(")),
			})
			break
		}
	}

	if !themeSelected(source) {
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityWarning,
			Code:     CodeThemeUnselected,
			Message:  "template theme not clearly selected: use one of " + strings.Join(deckscript.Themes, ", "),
		})
	}

	if !strings.Contains(source, ":save(") {
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityWarning,
			Code:     CodeMissingSave,
			Message:  "no save call found: the executor will append one targeting the workspace output",
		})
	}

	if !hasSlideCall(source) {
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityWarning,
			Code:     CodeNoSlideCalls,
			Message:  "no recognized slide-construction calls found",
		})
	}

	report.Findings = append(report.Findings, assetReferenceFindings(source)...)

	return report
}

func syntaxMessage(err error) string {
	var perr *parse.Error
	if errors.As(err, &perr) {
		return fmt.Sprintf("syntax error at line %d: %s", perr.Pos.Line, perr.Message)
	}
	return fmt.Sprintf("syntax error: %v", err)
}

func hasRequire(source, module string) bool {
	return strings.Contains(source, `require("`+module+`")`) ||
		strings.Contains(source, `require('`+module+`')`)
}

func themeSelected(source string) bool {
	for _, theme := range deckscript.Themes {
		if strings.Contains(source, `create_template("`+theme+`")`) ||
			strings.Contains(source, `create_template('`+theme+`')`) {
			return true
		}
	}
	return false
}

func hasSlideCall(source string) bool {
	for _, method := range deckscript.SlideMethods {
		if strings.Contains(source, method+"(") {
			return true
		}
	}
	return false
}

// assetReferenceFindings scans for image references embedded in textual
// content. The heuristic only fires when the script uses a generic content
// slide, mirroring the mistake it exists to catch: describing an image in
// bullet text instead of placing it with an image slide method.
func assetReferenceFindings(source string) []Finding {
	if !strings.Contains(source, "add_content_slide(") &&
		!strings.Contains(source, "add_conclusion_slide(") {
		return nil
	}
	var out []Finding
	for _, pattern := range assetReferencePatterns {
		if n := strings.Count(source, pattern); n > 0 {
			out = append(out, Finding{
				Severity: SeverityWarning,
				Code:     CodeAssetReference,
				Message: fmt.Sprintf("found %q %d time(s) in script text: images belong in image slide methods, not bullet content",
					pattern, n),
			})
		}
	}
	return out
}
