package cleaner

import (
	"bytes"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ApplyCSSSelector returns the outer HTML of every element of rawHTML that
// matches selector. When nothing matches, rawHTML is returned unchanged.
func ApplyCSSSelector(rawHTML, selector string) (string, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return "", err
	}
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	nodes := cascadia.QueryAll(root, sel)
	if len(nodes) == 0 {
		return rawHTML, nil
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
