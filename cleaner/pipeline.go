package cleaner

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/cascade/models"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatText     = "text"
)

// Extraction modes.
const (
	ModeReadability = "readability"
	ModeRaw         = "raw"
)

// Options select what Clean produces.
type Options struct {
	// Format is one of FormatMarkdown (default), FormatHTML or FormatText.
	Format string

	// Mode is ModeReadability (default) or ModeRaw.
	Mode string

	// Selector, when set, keeps only the matching elements.
	Selector string
}

// Output is the cleaned form of a page.
type Output struct {
	Content  string
	Metadata models.Metadata
	Tokens   models.TokenInfo
}

// Cleaner turns fetched HTML into compact content. The Markdown converter
// is shared by all calls.
type Cleaner struct {
	md *converter.Converter
}

// NewCleaner creates a Cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{md: newMarkdownConverter()}
}

// Clean narrows rawHTML with the selector, extracts the main content and
// converts it to the requested format.
func (c *Cleaner) Clean(rawHTML, sourceURL string, opts Options) (*Output, error) {
	source, err := url.Parse(sourceURL)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid source URL", err)
	}
	originalTokens := EstimateTokens(rawHTML)

	if opts.Selector != "" {
		rawHTML, err = ApplyCSSSelector(rawHTML, opts.Selector)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
				fmt.Sprintf("invalid css selector %q", opts.Selector), err)
		}
	}

	out := &Output{Metadata: models.Metadata{SourceURL: sourceURL}}

	content, text := rawHTML, ""
	if opts.Mode != ModeRaw {
		article, _ := extractArticle(rawHTML, source)
		content, text = article.Content, article.TextContent
		out.Metadata.Title = article.Title
		out.Metadata.Description = article.Excerpt
		out.Metadata.SiteName = article.SiteName
		out.Metadata.Author = article.Byline
		out.Metadata.Language = article.Language
	}

	switch opts.Format {
	case FormatHTML:
		out.Content = content
	case FormatText:
		if text == "" {
			text = stripTags(content)
		}
		out.Content = text
	default:
		out.Content, err = toMarkdown(c.md, content, source.Scheme+"://"+source.Host)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeInternal, "markdown conversion failed", err)
		}
	}

	cleaned := EstimateTokens(out.Content)
	out.Tokens = models.TokenInfo{OriginalEstimate: originalTokens, CleanedEstimate: cleaned}
	if originalTokens > 0 {
		pct := float64(originalTokens-cleaned) / float64(originalTokens) * 100
		out.Tokens.SavingsPercent = math.Round(pct*100) / 100
	}
	return out, nil
}

// stripTags returns the visible text of an HTML fragment.
func stripTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}
