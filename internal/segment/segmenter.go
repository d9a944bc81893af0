// Package segment splits raw statute text into articles.
//
// Consolidated statute texts delimit articles with "Art. <number>." anchors,
// where the number may carry a letter suffix ("Art. 15a."). Everything from
// one anchor up to the next belongs to the article opened by that anchor.
package segment

import (
	"regexp"
	"strings"
)

// anchorPattern matches an article anchor: the literal "Art." followed by
// optional whitespace, digits, an optional letter suffix and a period.
var anchorPattern = regexp.MustCompile(`Art\.\s?\d+[a-zA-Z]*\.`)

// ArticleText is one segmented article: the anchor token verbatim and the
// full text span it opens.
type ArticleText struct {
	Number string
	Text   string
}

// Segment splits raw text into articles in textual order.
//
// Each article's span runs from its anchor to the next anchor (or end of
// text), trimmed of surrounding whitespace; text before the first anchor is
// discarded. Zero anchors yield a nil slice, which callers treat as
// "nothing to ingest", not an error.
func Segment(raw string) []ArticleText {
	locs := anchorPattern.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		return nil
	}

	articles := make([]ArticleText, 0, len(locs))
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		articles = append(articles, ArticleText{
			Number: strings.TrimSpace(raw[loc[0]:loc[1]]),
			Text:   strings.TrimSpace(raw[loc[0]:end]),
		})
	}
	return articles
}
