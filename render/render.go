package render

import (
	"strings"

	"github.com/ProducerMatt/stampy-chat/client"
)

// ruleMarker is the corpus convention for a section break inside block text:
// a line holding exactly five periods.
const ruleMarker = "....."

// LinkLabel is the fixed label of every entry's footer link.
const LinkLabel = "Read more"

type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockRule
)

// Block is one body element of a rendered entry: a paragraph carrying its
// original line, or a horizontal rule.
type Block struct {
	Kind BlockKind
	Text string
}

type Link struct {
	Label  string
	Target string
}

// RenderedEntry is the displayable form of one search hit. Title and byline
// are independent header fields; the body preserves source order.
type RenderedEntry struct {
	Title  string
	Byline string
	Body   []Block
	Link   Link
}

// Entry transforms one search hit into its displayable form. The transform
// is pure. Lines are classified on trimmed copies while paragraphs keep the
// original untrimmed text; blank lines produce nothing; a line whose trimmed
// form is the rule marker becomes a rule.
func Entry(e client.ResultEntry) RenderedEntry {
	lines := strings.Split(e.Text, "\n")

	body := make([]Block, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case trimmed == ruleMarker:
			body = append(body, Block{Kind: BlockRule})
		default:
			body = append(body, Block{Kind: BlockParagraph, Text: line})
		}
	}

	return RenderedEntry{
		Title:  e.Title,
		Byline: e.Author + " - " + e.Date,
		Body:   body,
		Link:   Link{Label: LinkLabel, Target: e.URL},
	}
}
