// SPDX-License-Identifier: MPL-2.0

// Package report renders the post-run HTML document (C9): a single
// self-contained file with a summary block and one expandable card per
// test, plus client-side search and expand/collapse affordances.
package report

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/invowk/kiln/internal/outcome"
	"github.com/invowk/kiln/internal/registry"
)

//go:embed report.html.tmpl
var templateFS embed.FS

// Summary is the header/summary block's counts.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Card is one test's rendered row: everything §4.10 requires on the card.
type Card struct {
	Name       string
	Tags       []string
	TimeLimit  *time.Duration
	Status     string
	Duration   time.Duration
	FailureFmt string
	SkipReason string
}

// document is the root data value handed to the template.
type document struct {
	GeneratedAt time.Time
	Summary     Summary
	Cards       []Card
}

// Build computes the Summary and per-test Cards from a drained, terminal
// test list. It is a pure function of its input: it never mutates any
// TestCase's Result (spec.md §4.10).
func Build(tests []*registry.TestCase, duration time.Duration) (Summary, []Card) {
	summary := Summary{Total: len(tests), Duration: duration}
	cards := make([]Card, 0, len(tests))

	for _, tc := range tests {
		switch tc.Result.Status {
		case outcome.Passed:
			summary.Passed++
		case outcome.Failed:
			summary.Failed++
		case outcome.Skipped:
			summary.Skipped++
		}

		card := Card{
			Name:      tc.Name,
			Tags:      tc.Tags,
			TimeLimit: tc.TimeLimit,
			Status:    tc.Result.Status.String(),
			Duration:  tc.Result.Duration,
		}
		if tc.Result.Failure != nil {
			card.FailureFmt = tc.Result.Failure.String()
		}
		if tc.Result.Status == outcome.Skipped {
			card.SkipReason = string(tc.Result.SkipReason)
		}
		cards = append(cards, card)
	}

	return summary, cards
}

// Render executes the embedded template against the built summary/cards and
// returns the complete HTML document as bytes.
func Render(summary Summary, cards []Card, generatedAt time.Time) ([]byte, error) {
	tmpl, err := template.New("report.html.tmpl").
		Funcs(sprig.FuncMap()).
		ParseFS(templateFS, "report.html.tmpl")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	doc := document{GeneratedAt: generatedAt, Summary: summary, Cards: cards}
	if err := tmpl.Execute(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders the report and writes it to path, creating parent
// directories as needed. Filesystem failures are logged and swallowed: per
// spec.md §4.10/§7, report I/O never affects the run's exit status.
func WriteFile(tests []*registry.TestCase, duration time.Duration, path string, logger *slog.Logger) {
	summary, cards := Build(tests, duration)
	html, err := Render(summary, cards, time.Now())
	if err != nil {
		logger.Warn("report rendering failed", "error", err)
		return
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Warn("report output directory creation failed", "path", dir, "error", err)
			return
		}
	}

	if err := os.WriteFile(path, html, 0o644); err != nil {
		logger.Warn("report write failed", "path", path, "error", err)
		return
	}

	logger.Info("report written", "path", path, "passed", summary.Passed, "failed", summary.Failed, "skipped", summary.Skipped)
}
