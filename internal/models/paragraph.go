package models

import (
	"encoding/json"
	"strings"
)

// Span is one inline run of a paragraph: plain text, or a link when Href is set.
type Span struct {
	Text string `json:"text"`
	Href string `json:"href,omitempty"`
}

// IsLink reports whether the span was an anchor.
func (s Span) IsLink() bool {
	return s.Href != ""
}

// Paragraph is an ordered sequence of spans captured at parse time.
type Paragraph struct {
	spans []Span
}

// NewParagraph copies spans into a new Paragraph.
func NewParagraph(spans ...Span) Paragraph {
	return Paragraph{spans: append([]Span(nil), spans...)}
}

// TextSpan builds a plain text span.
func TextSpan(text string) Span {
	return Span{Text: text}
}

// LinkSpan builds a link span.
func LinkSpan(href, text string) Span {
	return Span{Href: href, Text: text}
}

// Spans returns a copy of the paragraph's spans.
func (p Paragraph) Spans() []Span {
	return append([]Span(nil), p.spans...)
}

// Text concatenates the text of every span.
func (p Paragraph) Text() string {
	var sb strings.Builder
	for _, s := range p.spans {
		sb.WriteString(s.Text)
	}

	return sb.String()
}

// HTML renders link spans as <a href="...">text</a> and text spans literally.
func (p Paragraph) HTML() string {
	var sb strings.Builder

	for _, s := range p.spans {
		if !s.IsLink() {
			sb.WriteString(s.Text)

			continue
		}

		sb.WriteString(`<a href="`)
		sb.WriteString(s.Href)
		sb.WriteString(`">`)
		sb.WriteString(s.Text)
		sb.WriteString(`</a>`)
	}

	return sb.String()
}

// MarshalJSON exposes the spans.
func (p Paragraph) MarshalJSON() ([]byte, error) {
	if p.spans == nil {
		return []byte("[]"), nil
	}

	return json.Marshal(p.spans)
}
