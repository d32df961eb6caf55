package relay

import (
	"strings"
	"unicode/utf8"
)

// minimum accumulated length for a generation to be billable
const minSubstantialLength = 200

// structural and content HTML elements that mark real generated markup
var markupTags = []string{
	"html", "body", "div", "section", "header", "footer", "main", "nav",
	"article", "aside", "form", "table", "ul", "ol", "h1", "h2", "p",
	"span", "img", "a", "button",
}

// decides whether accumulated output is substantial generated markup
// worth a credit, as opposed to a refusal, clarification question, or
// near-empty response. Heuristic on purpose: no HTML parse needed.
func Substantial(text string) bool {
	// threshold is in characters, not bytes; generated copy is often
	// multibyte (accented text, typographic quotes)
	if utf8.RuneCountInString(text) < minSubstantialLength {
		return false
	}

	if strings.Contains(text, "```") {
		return true
	}

	lower := strings.ToLower(text)

	for _, tag := range markupTags {
		if strings.Contains(lower, "<"+tag+">") || strings.Contains(lower, "<"+tag+" ") {
			return true
		}
	}

	return false
}
