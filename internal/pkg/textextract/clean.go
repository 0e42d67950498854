package textextract

import (
	"regexp"
	"strings"
)

var (
	blankLineRun = regexp.MustCompile(`\n\s*\n\s*\n+`)
	spaceRun     = regexp.MustCompile(`[ \t]{2,}`)
)

// Clean normalizes extracted text: collapses runs of blank lines and spaces,
// trims each line and drops empty ones.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	text = spaceRun.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// SourceSeparator joins the text of different files before chunking
const SourceSeparator = "\n\n---\n\n"

// Source is the cleaned text of one file
type Source struct {
	Filename string
	Text     string
}

// Combine labels each source with its file name and joins them
func Combine(sources []Source) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, "Source: "+s.Filename+"\n\n"+s.Text)
	}
	return strings.Join(parts, SourceSeparator)
}
