// Package sections converts semi-structured markdown-like text into an
// ordered list of titled sections. A section starts at a title marker:
// a run of characters wrapped in double asterisks, optionally followed by
// additional plain text on the same line. Text before the first marker is
// front matter and is discarded.
package sections

import (
	"regexp"
	"strings"
)

// Section is a parsed unit of content: a title and its body text.
// Page placement is stamped by the caller after parsing.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TitleSeparator joins the titles of collapsed empty sections.
const TitleSeparator = " - "

var markerPattern = regexp.MustCompile(`\*\*([^*]+?)\*\*([^\n]*)`)

// Parse extracts titled sections from raw text in input order.
//
// A run of consecutive titles whose content is empty does not produce
// standalone empty sections; the run is collapsed into the first following
// title that has content, with all titles joined by TitleSeparator. Empty
// titles at the end of the input, with no populated title after them, are
// emitted individually with empty content.
func Parse(text string) []Section {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	// Split yields one leading front-matter segment plus one content
	// segment per marker.
	segments := markerPattern.Split(text, -1)

	titles := make([]string, len(matches))
	contents := make([]string, len(matches))
	for i, m := range matches {
		title := strings.TrimSpace(m[1])
		if trailing := strings.TrimSpace(m[2]); trailing != "" {
			title += " " + trailing
		}
		titles[i] = title
		contents[i] = strings.TrimSpace(segments[i+1])
	}

	var out []Section
	var pending []string

	for i := range titles {
		if contents[i] == "" {
			pending = append(pending, titles[i])
			continue
		}

		title := titles[i]
		if len(pending) > 0 {
			title = strings.Join(append(pending, titles[i]), TitleSeparator)
			pending = nil
		}
		out = append(out, Section{Title: title, Content: contents[i]})
	}

	// Empty titles with no populated title after them.
	for _, title := range pending {
		out = append(out, Section{Title: title})
	}

	return out
}
