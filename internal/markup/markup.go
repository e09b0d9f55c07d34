// Package markup sanitizes the inline formatting carried by annotation
// sentences and turns it into terminal-friendly spans.
package markup

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Span is a run of text sharing the same inert formatting.
type Span struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
	Mark      bool
}

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "sup", "sub", "mark", "span", "br")
	return p
}

// Sanitize removes executable and unknown markup, keeping inert formatting
// elements only. Control characters are dropped as well; in a terminal they
// are as live as a script tag.
func Sanitize(s string) string {
	return Printable(policy.Sanitize(Printable(s)))
}

// Printable drops control characters (escape sequences, bell, C1 codes) and
// turns tabs and line breaks into spaces. Use it for any record text shown
// on screen.
func Printable(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r', '\f', '\v':
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// Spans sanitizes s and splits it into styled text runs. Line breaks become
// spaces so a sentence always fits one table row.
func Spans(s string) []Span {
	z := html.NewTokenizer(strings.NewReader(Sanitize(s)))
	var (
		spans                         []Span
		bold, italic, underline, mark int
	)
	push := func(text string) {
		if text == "" {
			return
		}
		span := Span{Text: text, Bold: bold > 0, Italic: italic > 0, Underline: underline > 0, Mark: mark > 0}
		if n := len(spans); n > 0 && sameStyle(spans[n-1], span) {
			spans[n-1].Text += text
			return
		}
		spans = append(spans, span)
	}
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF ends a well-formed fragment; anything else is truncated input.
			return spans
		case html.TextToken:
			// Text is entity-decoded here, so filter again.
			push(collapseSpace(Printable(string(z.Text()))))
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				push(" ")
			}
		case html.StartTagToken, html.EndTagToken:
			name, _ := z.TagName()
			delta := 1
			if tt == html.EndTagToken {
				delta = -1
			}
			switch string(name) {
			case "b", "strong":
				bold = clampDepth(bold + delta)
			case "i", "em":
				italic = clampDepth(italic + delta)
			case "u":
				underline = clampDepth(underline + delta)
			case "mark":
				mark = clampDepth(mark + delta)
			case "br":
				push(" ")
			}
		}
	}
}

// Plain returns the sanitized text without any formatting.
func Plain(s string) string {
	var b strings.Builder
	for _, span := range Spans(s) {
		b.WriteString(span.Text)
	}
	return strings.TrimSpace(b.String())
}

func sameStyle(a, b Span) bool {
	return a.Bold == b.Bold && a.Italic == b.Italic && a.Underline == b.Underline && a.Mark == b.Mark
}

func clampDepth(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func collapseSpace(s string) string {
	if s == "" {
		return s
	}
	fields := strings.Fields(s)
	out := strings.Join(fields, " ")
	if len(fields) == 0 {
		return " "
	}
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r' || c == '\f'
}
