// Package corpus concatenates the extracted text of a course's documents
// into one bounded corpus with per-document provenance markers.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"quizforge/internal/extract"
	"quizforge/internal/model"
)

const (
	// MaxCorpusChars caps the combined corpus. Truncation is silent and
	// head-first: later documents lose text first.
	MaxCorpusChars = 50_000

	// extractWorkers bounds concurrent document fetches. Results are
	// slotted by input index, so provenance order stays deterministic
	// regardless of completion order.
	extractWorkers = 4
)

// Assembler builds a corpus from a course's documents.
type Assembler struct {
	extractor *extract.Extractor
}

// NewAssembler creates an Assembler around the given extractor.
func NewAssembler(e *extract.Extractor) *Assembler {
	return &Assembler{extractor: e}
}

// Assemble extracts every document independently and concatenates the
// successful results in input order, each prefixed with its source
// marker. A failed document is tallied and skipped, never fatal.
func (a *Assembler) Assemble(ctx context.Context, docs []model.CourseDocument) model.Corpus {
	contents := make([]model.ExtractedContent, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(extractWorkers)
	for i, doc := range docs {
		g.Go(func() error {
			contents[i] = a.extractor.Extract(gctx, doc)
			return nil
		})
	}
	// Workers only record per-slot results and never return errors.
	_ = g.Wait()

	var sb strings.Builder
	extracted, failed := 0, 0
	for i, c := range contents {
		if !c.Extracted {
			failed++
			continue
		}
		extracted++
		sb.WriteString(fmt.Sprintf("\n--- Content from %s ---\n", docs[i].Name))
		sb.WriteString(c.Text)
	}

	text := truncateRunes(sb.String(), MaxCorpusChars)
	substantial := utf8.RuneCountInString(strings.TrimSpace(text)) > extract.MinSubstantialChars

	slog.Debug("corpus assembled",
		"documents", len(docs),
		"extracted", extracted,
		"failed", failed,
		"chars", utf8.RuneCountInString(text),
		"substantial", substantial,
	)

	return model.Corpus{
		Text:          text,
		Substantial:   substantial,
		ExtractedDocs: extracted,
		FailedDocs:    failed,
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
