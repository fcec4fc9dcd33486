package infobox

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const nbsp = "\u00a0"

// strippedStrings returns every descendant text node trimmed of surrounding
// whitespace, with whitespace-only fragments dropped.
func strippedStrings(sel *goquery.Selection) []string {
	var out []string
	for _, n := range sel.Nodes {
		walkText(n, func(data string) {
			if s := strings.TrimSpace(data); s != "" {
				out = append(out, s)
			}
		})
	}
	return out
}

// joinedText is strippedStrings joined by a single space.
func joinedText(sel *goquery.Selection) string {
	return strings.Join(strippedStrings(sel), " ")
}

func walkText(n *html.Node, fn func(string)) {
	if n.Type == html.TextNode {
		fn(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, fn)
	}
}

func replaceNBSP(s string) string {
	return strings.ReplaceAll(s, nbsp, " ")
}
