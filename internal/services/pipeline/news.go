package pipeline

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/tickerchat/internal/eodhd"
	"github.com/ternarybob/tickerchat/internal/models"
)

const (
	snippetLength = 280
	// Markdown per article handed to synthesis.
	articleLength = 1200
)

var whitespace = regexp.MustCompile(`\s+`)

// plainText returns the visible text of an HTML fragment with whitespace
// collapsed. Plain text input passes through unchanged.
func plainText(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return strings.TrimSpace(whitespace.ReplaceAllString(content, " "))
	}
	doc.Find("script, style, noscript, iframe").Remove()
	return strings.TrimSpace(whitespace.ReplaceAllString(doc.Text(), " "))
}

// articleMarkdown converts an article body to markdown for the synthesis
// prompt, falling back to plain text when conversion fails.
func articleMarkdown(content, link string) string {
	converter := md.NewConverter(link, true, nil)
	converted, err := converter.ConvertString(content)
	if err != nil || strings.TrimSpace(converted) == "" {
		return truncate(plainText(content), articleLength)
	}
	return truncate(strings.TrimSpace(converted), articleLength)
}

// truncate cuts s to at most n bytes on a word boundary, never inside a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	end := n
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	cut := s[:end]
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "..."
}

// newsSources converts articles to sources, skipping ones without a link.
func newsSources(news eodhd.NewsResponse, fetchedAt time.Time) []models.SourceInfo {
	sources := make([]models.SourceInfo, 0, len(news))
	seen := make(map[string]bool, len(news))
	for _, item := range news {
		if item.Link == "" || seen[item.Link] {
			continue
		}
		seen[item.Link] = true

		source := models.SourceInfo{
			URL:       item.Link,
			Title:     strings.TrimSpace(item.Title),
			FetchedAt: fetchedAt,
			Snippet:   truncate(plainText(item.Content), snippetLength),
		}
		if !item.Date.IsZero() {
			published := item.Date
			source.PublishedAt = &published
		}
		sources = append(sources, source)
	}
	return sources
}

// averagePolarity is the mean sentiment over articles that carry one.
func averagePolarity(news eodhd.NewsResponse) (float64, bool) {
	sum, n := 0.0, 0
	for _, item := range news {
		if item.Sentiment != nil {
			sum += item.Sentiment.Polarity
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
