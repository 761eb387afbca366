// Package extract turns heterogeneous course documents into best-effort
// plain text. Extraction never fails hard: anything unreadable comes
// back with Extracted=false so the rest of the pipeline can degrade.
package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"quizforge/internal/model"
)

const (
	// MinSubstantialChars is the substance threshold: extracted text
	// below this length is treated as no content at all. A thin real
	// document failing extraction is preferred over garbage passing
	// as content.
	MinSubstantialChars = 100

	maxPlainTextChars = 10_000
	maxPDFTextChars   = 50_000

	// maxFetchBytes bounds how much of a document is downloaded.
	maxFetchBytes = 20 << 20
)

type docFormat int

const (
	formatUnsupported docFormat = iota
	formatPlainText
	formatPDF
)

// Extractor fetches document bytes and produces plain text.
type Extractor struct {
	client *http.Client
}

// New creates an Extractor. A nil client gets a default with a bounded
// timeout.
func New(client *http.Client) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Extractor{client: client}
}

// Extract pulls the document's bytes and returns best-effort text.
// Network, decode, and format failures all come back as Extracted=false;
// one bad document must not abort a whole corpus.
func (e *Extractor) Extract(ctx context.Context, doc model.CourseDocument) model.ExtractedContent {
	format := classify(doc)
	if format == formatUnsupported {
		slog.Debug("document format not parsed", "document", doc.Name, "mime_type", doc.MimeType)
		return notExtracted(doc.ID)
	}

	data, err := e.fetch(ctx, doc.URL)
	if err != nil {
		slog.Warn("document fetch failed", "document", doc.Name, "error", err)
		return notExtracted(doc.ID)
	}

	var text string
	switch format {
	case formatPlainText:
		text = truncateRunes(decodeBytes(data), maxPlainTextChars)
	case formatPDF:
		text = scrapePDFText(data)
	}

	charCount := utf8.RuneCountInString(text)
	if charCount < MinSubstantialChars {
		slog.Debug("extracted text below substance threshold",
			"document", doc.Name, "chars", charCount)
		return notExtracted(doc.ID)
	}

	return model.ExtractedContent{
		DocumentID: doc.ID,
		Text:       text,
		CharCount:  charCount,
		Extracted:  true,
	}
}

func notExtracted(docID string) model.ExtractedContent {
	return model.ExtractedContent{DocumentID: docID}
}

// classify decides the extraction path from the MIME type, falling back
// to the URL or name suffix. Word documents, images, and archives are
// deliberately unsupported.
func classify(doc model.CourseDocument) docFormat {
	mime := strings.ToLower(doc.MimeType)
	switch {
	case strings.HasPrefix(mime, "text/"):
		return formatPlainText
	case mime == "application/pdf":
		return formatPDF
	case mime != "":
		return formatUnsupported
	}

	name := doc.Name
	if doc.URL != "" {
		// Query strings and fragments are not part of the extension.
		if u, err := url.Parse(doc.URL); err == nil && u.Path != "" {
			name = u.Path
		}
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".txt", ".md", ".markdown", ".csv", ".text":
		return formatPlainText
	case ".pdf":
		return formatPDF
	default:
		return formatUnsupported
	}
}

func (e *Extractor) fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("document has no URL")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch document: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("read document body: %w", err)
	}
	return data, nil
}
