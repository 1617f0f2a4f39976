package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"emphasis", "This is **really** _nice_", "This is really nice"},
		{"heading", "## Summary\nAll good", "Summary\nAll good"},
		{"link", "See [the docs](https://example.com) now", "See the docs now"},
		{"inline code", "Run `go test` please", "Run go test please"},
		{"code block", "Try this:\n```go\nfmt.Println(1)\n```\nDone", "Try this:\n\nDone"},
		{"list", "- one\n- two\n1. three", "one\ntwo\nthree"},
		{"quote", "> quoted", "quoted"},
		{"plain", "nothing to strip", "nothing to strip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripMarkdown(tt.input))
		})
	}
}

func TestPrepareText(t *testing.T) {
	text := "First line\nSecond line\nThird line\nFourth line"

	tests := []struct {
		name     string
		opts     ReadingOptions
		expected string
	}{
		{"full text", ReadingOptions{Mode: ModeFullText}, "First line Second line Third line Fourth line"},
		{"first line", ReadingOptions{Mode: ModeFirstLine}, "First line"},
		{"line limit", ReadingOptions{Mode: ModeLineLimit, MaxLines: 2}, "First line Second line"},
		{"after first", ReadingOptions{Mode: ModeAfterFirst}, "Second line Third line Fourth line"},
		{"char limit", ReadingOptions{Mode: ModeCharLimit, MaxChars: 10}, "First line"},
		{"char limit counts runes", ReadingOptions{Mode: ModeCharLimit, MaxChars: 3}, "Fir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PrepareText(text, tt.opts))
		})
	}

	assert.Equal(t, "こんにち", PrepareText("こんにちは", ReadingOptions{Mode: ModeCharLimit, MaxChars: 4}))
}
