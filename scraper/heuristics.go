package scraper

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/use-agent/cascade/engine"
	"github.com/use-agent/cascade/models"
	"golang.org/x/net/html"
)

var reNoscript = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

// RequireRenderedContent is a validator that rejects network responses that
// look like an unrendered JavaScript shell, so the cascade moves on to a
// browser strategy. Responses of other mechanisms are accepted.
func RequireRenderedContent(_ context.Context, in models.ValidationInput) (bool, error) {
	nr, ok := in.Response.(*engine.NetworkResult)
	if !ok {
		return true, nil
	}
	return !needsBrowser(nr.Body), nil
}

// ChainValidators accepts a response only when every validator accepts it.
// nil validators are skipped.
func ChainValidators(validators ...models.Validator) models.Validator {
	return func(ctx context.Context, in models.ValidationInput) (bool, error) {
		for _, v := range validators {
			if v == nil {
				continue
			}
			ok, err := v(ctx, in)
			if err != nil || !ok {
				return ok, err
			}
		}
		return true, nil
	}
}

// needsBrowser uses heuristics to decide if the HTTP-fetched HTML likely needs
// JS rendering (SPA shell, heavy JS dependency, noscript warnings).
func needsBrowser(body []byte) bool {
	bodyText := extractVisibleText(body)

	// Very little visible text in <body>: likely an SPA shell.
	if len(bodyText) < 200 {
		return true
	}

	lower := strings.ToLower(string(body))
	for _, root := range []string{`<div id="root"></div>`, `<div id="app"></div>`, `<div id="__next"></div>`} {
		if strings.Contains(lower, root) {
			return true
		}
	}

	if reNoscript.MatchString(lower) {
		return true
	}

	// Many scripts and little text.
	return strings.Count(lower, "<script") > 10 && len(bodyText) < 500
}

// extractTitle extracts the <title> content from raw HTML bytes.
func extractTitle(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}

// extractVisibleText returns the text inside <body> without script, style
// and noscript content.
func extractVisibleText(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "body":
				inBody = true
			case "script", "style", "noscript":
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
