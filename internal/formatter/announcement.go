// Package formatter renders story clusters into Telegram HTML announcements.
package formatter

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"text/template"

	"allsidestg/internal/models"
)

// DateLayout is the calendar-date layout used in announcements.
const DateLayout = "2006-01-02"

// truncationMarker ends a paragraph the site cut short.
const truncationMarker = "..."

// ExcerptPolicy decides which side-article paragraphs make it into an announcement.
type ExcerptPolicy int

const (
	// ExcerptTakeWhile keeps paragraphs up to the first truncated one.
	ExcerptTakeWhile ExcerptPolicy = iota
	// ExcerptFilter drops truncated paragraphs and keeps the rest.
	ExcerptFilter
)

// ParseExcerptPolicy maps the config names "take_while" and "filter".
func ParseExcerptPolicy(s string) (ExcerptPolicy, error) {
	switch s {
	case "", "take_while":
		return ExcerptTakeWhile, nil
	case "filter":
		return ExcerptFilter, nil
	}

	return 0, fmt.Errorf("unknown excerpt policy %q", s)
}

// Excerpt joins the plain text of paragraphs with blank lines, applying policy.
func (p ExcerptPolicy) Excerpt(paragraphs []models.Paragraph) string {
	parts := make([]string, 0, len(paragraphs))

	for _, para := range paragraphs {
		text := para.Text()
		if strings.HasSuffix(text, truncationMarker) {
			if p == ExcerptTakeWhile {
				break
			}

			continue
		}

		parts = append(parts, text)
	}

	return strings.Join(parts, "\n\n")
}

const announcementTemplate = `<b>{{.Title}}</b>
{{.Date}}

{{.Content}}
{{range .Articles}}
{{.Emoji}} <a href="{{.URL}}">{{.Title}}</a> ({{.Source}})
{{- if .Excerpt}}
{{.Excerpt}}
{{- end}}
{{end}}
<a href="{{.URL}}">Full coverage on AllSides</a>`

type announcementView struct {
	Title    string
	URL      string
	Date     string
	Content  string
	Articles []articleView
}

type articleView struct {
	Emoji   string
	Title   string
	URL     string
	Source  string
	Excerpt string
}

// Formatter turns stories into announcement bodies.
type Formatter struct {
	tmpl   *template.Template
	policy ExcerptPolicy
}

// New creates a formatter using the built-in announcement template.
func New(policy ExcerptPolicy) *Formatter {
	return &Formatter{
		tmpl:   template.Must(template.New("announcement").Parse(announcementTemplate)),
		policy: policy,
	}
}

// NewWithTemplate creates a formatter from a custom text/template source.
// The template receives the same fields as the built-in one.
func NewWithTemplate(policy ExcerptPolicy, src string) (*Formatter, error) {
	tmpl, err := template.New("announcement").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse announcement template: %w", err)
	}

	return &Formatter{tmpl: tmpl, policy: policy}, nil
}

// Format renders story, published from teaser url, as Telegram HTML.
// Summary paragraphs keep their links; everything else is escaped text.
func (f *Formatter) Format(story *models.Story, url string) (string, error) {
	summary := make([]string, 0, len(story.Summary))
	for _, p := range story.Summary {
		summary = append(summary, paragraphHTML(p))
	}

	view := announcementView{
		Title:    html.EscapeString(story.Title),
		URL:      html.EscapeString(url),
		Date:     story.PublishedAt.Format(DateLayout),
		Content:  strings.Join(summary, "\n\n"),
		Articles: make([]articleView, 0, len(story.Articles)),
	}

	for _, a := range story.Articles {
		view.Articles = append(view.Articles, articleView{
			Emoji:   a.Side.Emoji(),
			Title:   html.EscapeString(a.Title),
			URL:     html.EscapeString(a.URL),
			Source:  html.EscapeString(a.Source),
			Excerpt: html.EscapeString(f.policy.Excerpt(a.Summary)),
		})
	}

	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render announcement: %w", err)
	}

	return buf.String(), nil
}

// paragraphHTML is Paragraph.HTML with span text and hrefs escaped, since the
// parser has already decoded entities such as &amp;.
func paragraphHTML(p models.Paragraph) string {
	var sb strings.Builder

	for _, s := range p.Spans() {
		if !s.IsLink() {
			sb.WriteString(html.EscapeString(s.Text))

			continue
		}

		sb.WriteString(`<a href="`)
		sb.WriteString(html.EscapeString(s.Href))
		sb.WriteString(`">`)
		sb.WriteString(html.EscapeString(s.Text))
		sb.WriteString(`</a>`)
	}

	return sb.String()
}
