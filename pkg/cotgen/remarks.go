package cotgen

import (
	"strings"

	"golang.org/x/net/html"

	types "github.com/stronnag/kml2cot/pkg/types"
)

var breakTags = map[string]bool{"br": true, "p": true, "div": true, "li": true, "tr": true}

// StripHTML reduces an HTML description to its text. Block elements and
// <br> become line breaks.
func StripHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tidyLines(sb.String())
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if breakTags[string(name)] {
				sb.WriteByte('\n')
			}
		}
	}
}

func tidyLines(s string) string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

// Remarks joins the description and the extended data, one "key: value"
// per line in insertion order.
func Remarks(description string, ed types.ExtendedData, strip bool) string {
	var lines []string
	d := description
	if strip {
		d = StripHTML(d)
	}
	if strings.TrimSpace(d) != "" {
		lines = append(lines, d)
	}
	for _, kv := range ed {
		lines = append(lines, kv.Key+": "+kv.Value)
	}
	return strings.Join(lines, "\n")
}
