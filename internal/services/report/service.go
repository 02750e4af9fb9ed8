package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Service renders analysis reports
type Service struct {
	markdown goldmark.Markdown
	logger   arbor.ILogger
}

// NewService creates a report service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithXHTML()),
		),
		logger: logger,
	}
}

// Markdown renders record as markdown.
func (s *Service) Markdown(record *models.AnalysisRecord) string {
	return Markdown(record)
}

// HTML renders record as an HTML fragment.
func (s *Service) HTML(record *models.AnalysisRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(Markdown(record)), &buf); err != nil {
		return nil, fmt.Errorf("failed to render report HTML: %w", err)
	}
	return buf.Bytes(), nil
}

// PDF renders record as an A4 PDF document.
func (s *Service) PDF(record *models.AnalysisRecord) ([]byte, error) {
	source := []byte(Markdown(record))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Research report "+record.ID, true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont(baseFont, "", baseSize)

	w := &pdfWriter{
		pdf:       pdf,
		source:    source,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
	doc := s.markdown.Parser().Parse(text.NewReader(source))
	if err := w.render(doc); err != nil {
		s.logger.Error().Err(err).Str("analysis_id", record.ID).Msg("Failed to render report PDF")
		return nil, fmt.Errorf("failed to render report PDF: %w", err)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render report PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write report PDF: %w", err)
	}

	s.logger.Debug().
		Str("analysis_id", record.ID).
		Int("pdf_size", buf.Len()).
		Msg("Report PDF generated")
	return buf.Bytes(), nil
}
