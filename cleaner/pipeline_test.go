package cleaner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cascade/models"
)

const articleHTML = `<html><head><title>Release notes</title></head><body>
<nav><a href="/">Home</a><a href="/blog">Blog</a></nav>
<article>
<h1>Release notes</h1>
<p>The cascade now falls back from the network transport to a real browser whenever the fetched page turns out to be an empty JavaScript shell.</p>
<p>Retries use exponential backoff by default and honour the retriable status list. See <a href="/docs/retry">the retry docs</a>.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func TestCleanMarkdown(t *testing.T) {
	c := NewCleaner()
	out, err := c.Clean(articleHTML, "https://example.com/blog/release", Options{})
	require.NoError(t, err)

	assert.Contains(t, out.Content, "falls back from the network transport")
	assert.Contains(t, out.Content, "https://example.com/docs/retry")
	assert.NotContains(t, out.Content, "<p>")
	assert.Equal(t, "https://example.com/blog/release", out.Metadata.SourceURL)
	assert.Positive(t, out.Tokens.OriginalEstimate)
	assert.Less(t, out.Tokens.CleanedEstimate, out.Tokens.OriginalEstimate)
}

func TestCleanFormats(t *testing.T) {
	c := NewCleaner()

	text, err := c.Clean(articleHTML, "https://example.com/", Options{Format: FormatText})
	require.NoError(t, err)
	assert.NotContains(t, text.Content, "<")

	raw, err := c.Clean(articleHTML, "https://example.com/", Options{Format: FormatHTML, Mode: ModeRaw})
	require.NoError(t, err)
	assert.Equal(t, articleHTML, raw.Content)
	assert.Empty(t, raw.Metadata.Title)
}

func TestCleanSelector(t *testing.T) {
	c := NewCleaner()
	out, err := c.Clean(articleHTML, "https://example.com/", Options{Format: FormatHTML, Mode: ModeRaw, Selector: "footer"})
	require.NoError(t, err)
	assert.Equal(t, "<footer>Copyright</footer>", strings.TrimSpace(out.Content))

	_, err = c.Clean(articleHTML, "https://example.com/", Options{Selector: "[[["})
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
}

func TestApplyCSSSelectorNoMatch(t *testing.T) {
	got, err := ApplyCSSSelector("<p>hi</p>", "table")
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", got)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("ab"))
	assert.Equal(t, 3, EstimateTokens("abcdefghi"))
}
