package voice

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Reading modes decide how much of a reply is spoken
const (
	ModeFullText   = "full_text"
	ModeFirstLine  = "first_line"
	ModeLineLimit  = "line_limit"
	ModeAfterFirst = "after_first"
	ModeCharLimit  = "char_limit"
)

// ReadingOptions configures PrepareText
type ReadingOptions struct {
	Mode     string `mapstructure:"reading_mode" json:"readingMode"`
	MaxChars int    `mapstructure:"max_chars" json:"maxChars"`
	MaxLines int    `mapstructure:"max_lines" json:"maxLines"`
}

// DefaultReadingOptions speaks the whole reply, capped at 500 characters
func DefaultReadingOptions() ReadingOptions {
	return ReadingOptions{Mode: ModeCharLimit, MaxChars: 500, MaxLines: 3}
}

var (
	mdCodeBlock  = regexp.MustCompile("(?s)```.*?```")
	mdInlineCode = regexp.MustCompile("`([^`]*)`")
	mdImage      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdEmphasis   = regexp.MustCompile(`(\*\*|__|\*|_|~~)(\S(?:.*?\S)?)(\*\*|__|\*|_|~~)`)
	mdHeading    = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	mdListMarker = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	mdQuote      = regexp.MustCompile(`(?m)^\s*>\s?`)
	spaces       = regexp.MustCompile(`[ \t]+`)
)

// StripMarkdown removes markdown syntax the model tends to emit so the
// synthesizer does not read symbols aloud. Code blocks are dropped.
func StripMarkdown(text string) string {
	text = mdCodeBlock.ReplaceAllString(text, "")
	text = mdImage.ReplaceAllString(text, "$1")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdInlineCode.ReplaceAllString(text, "$1")
	text = mdEmphasis.ReplaceAllString(text, "$2")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdListMarker.ReplaceAllString(text, "")
	text = mdQuote.ReplaceAllString(text, "")
	text = spaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// PrepareText strips markdown and applies the reading mode
func PrepareText(text string, opts ReadingOptions) string {
	text = StripMarkdown(text)

	switch opts.Mode {
	case ModeFirstLine:
		if idx := strings.Index(text, "\n"); idx != -1 {
			text = text[:idx]
		}

	case ModeLineLimit:
		lines := strings.Split(text, "\n")
		if opts.MaxLines > 0 && len(lines) > opts.MaxLines {
			lines = lines[:opts.MaxLines]
		}
		text = strings.Join(lines, " ")

	case ModeAfterFirst:
		if idx := strings.Index(text, "\n"); idx != -1 && idx < len(text)-1 {
			text = text[idx+1:]
		}

	case ModeCharLimit:
		runes := []rune(text)
		if opts.MaxChars > 0 && len(runes) > opts.MaxChars {
			text = string(runes[:opts.MaxChars])
		}
	}

	text = strings.Join(strings.Fields(text), " ")

	log.Debug().
		Str("mode", opts.Mode).
		Int("length", len(text)).
		Msg("Prepared text for speech")

	return text
}
