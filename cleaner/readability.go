package cleaner

import (
	"log/slog"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the shortest readability text accepted as the main
// content of a page.
const minContentLength = 50

// extractArticle runs Mozilla Readability on rawHTML. When the algorithm
// fails or finds almost nothing, the raw HTML is returned as the article
// and ok is false.
func extractArticle(rawHTML string, source *url.URL) (article readability.Article, ok bool) {
	article, err := readability.FromReader(strings.NewReader(rawHTML), source)
	switch {
	case err != nil:
		slog.Warn("readability failed, using raw HTML", "url", source.String(), "error", err)
	case len(strings.TrimSpace(article.TextContent)) < minContentLength:
		slog.Debug("readability content too short, using raw HTML",
			"url", source.String(), "length", len(article.TextContent))
	default:
		return article, true
	}
	return readability.Article{Content: rawHTML, TextContent: stripTags(rawHTML)}, false
}
