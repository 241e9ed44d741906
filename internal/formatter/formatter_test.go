package formatter

import (
	"strings"
	"testing"
	"time"

	"allsidestg/internal/models"

	"github.com/mattn/go-runewidth"
)

func sampleStory(t *testing.T) *models.Story {
	t.Helper()

	publishedAt, err := time.Parse(time.RFC3339, "2020-12-16T00:45:00+00:00")
	if err != nil {
		t.Fatal(err)
	}

	return &models.Story{
		Title:       "A & B",
		PublishedAt: publishedAt,
		Summary: []models.Paragraph{
			models.NewParagraph(models.TextSpan("Hi "), models.LinkSpan("https://x", "there")),
		},
		Articles: []models.Article{
			{
				Side:   models.Left,
				Title:  "L",
				URL:    "https://l",
				Source: "CNN",
				Summary: []models.Paragraph{
					models.NewParagraph(models.TextSpan("one")),
					models.NewParagraph(models.TextSpan("two...")),
					models.NewParagraph(models.TextSpan("three")),
				},
			},
			{Side: models.Center, Title: "C", URL: "https://c", Source: "AP"},
		},
	}
}

func TestFormat_TakeWhile(t *testing.T) {
	got, err := New(ExcerptTakeWhile).Format(sampleStory(t), "https://www.allsides.com/story/a")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	want := "<b>A &amp; B</b>\n" +
		"2020-12-16\n" +
		"\n" +
		"Hi <a href=\"https://x\">there</a>\n" +
		"\n" +
		"🟦 <a href=\"https://l\">L</a> (CNN)\n" +
		"one\n" +
		"\n" +
		"🟣 <a href=\"https://c\">C</a> (AP)\n" +
		"\n" +
		"<a href=\"https://www.allsides.com/story/a\">Full coverage on AllSides</a>"

	if got != want {
		t.Errorf("Format() mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFormat_FilterKeepsLaterParagraphs(t *testing.T) {
	got, err := New(ExcerptFilter).Format(sampleStory(t), "https://www.allsides.com/story/a")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	if !strings.Contains(got, "(CNN)\none\n\nthree\n") {
		t.Errorf("expected filtered excerpt, got %q", got)
	}

	if strings.Contains(got, "two...") {
		t.Errorf("truncated paragraph leaked: %q", got)
	}
}

func TestFormat_EscapesSummaryText(t *testing.T) {
	story := sampleStory(t)
	story.Summary = []models.Paragraph{
		models.NewParagraph(
			models.TextSpan("AT&T says a < b "),
			models.LinkSpan("https://x/?a=1&b=2", "R&D"),
		),
	}

	got, err := New(ExcerptTakeWhile).Format(story, "u")
	if err != nil {
		t.Fatal(err)
	}

	want := "AT&amp;T says a &lt; b <a href=\"https://x/?a=1&amp;b=2\">R&amp;D</a>\n"
	if !strings.Contains(got, want) {
		t.Errorf("summary not escaped, got %q", got)
	}
}

func TestFormat_DateUsesOwnOffset(t *testing.T) {
	story := sampleStory(t)
	story.PublishedAt = time.Date(2020, 12, 15, 19, 45, 0, 0, time.FixedZone("EST", -5*3600))

	got, err := New(ExcerptTakeWhile).Format(story, "u")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(got, "\n2020-12-15\n") {
		t.Errorf("expected local calendar date, got %q", got)
	}
}

func TestExcerptPolicy_Excerpt(t *testing.T) {
	paras := func(texts ...string) []models.Paragraph {
		out := make([]models.Paragraph, 0, len(texts))
		for _, s := range texts {
			out = append(out, models.NewParagraph(models.TextSpan(s)))
		}

		return out
	}

	tests := []struct {
		name   string
		policy ExcerptPolicy
		in     []models.Paragraph
		want   string
	}{
		{"empty", ExcerptTakeWhile, nil, ""},
		{"all kept", ExcerptTakeWhile, paras("a", "b"), "a\n\nb"},
		{"first truncated", ExcerptTakeWhile, paras("a...", "b"), ""},
		{"stop at truncated", ExcerptTakeWhile, paras("a", "b...", "c"), "a"},
		{"filter skips truncated", ExcerptFilter, paras("a", "b...", "c"), "a\n\nc"},
		{"filter all truncated", ExcerptFilter, paras("a...", "b..."), ""},
		{"ellipsis mid-text kept", ExcerptTakeWhile, paras("a... b"), "a... b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Excerpt(tt.in); got != tt.want {
				t.Errorf("Excerpt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseExcerptPolicy(t *testing.T) {
	if p, err := ParseExcerptPolicy("filter"); err != nil || p != ExcerptFilter {
		t.Errorf("filter: got %v, %v", p, err)
	}

	if p, err := ParseExcerptPolicy(""); err != nil || p != ExcerptTakeWhile {
		t.Errorf("default: got %v, %v", p, err)
	}

	if _, err := ParseExcerptPolicy("all"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestNewWithTemplate(t *testing.T) {
	f, err := NewWithTemplate(ExcerptTakeWhile, "{{.Title}}|{{len .Articles}}")
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.Format(sampleStory(t), "u")
	if err != nil {
		t.Fatal(err)
	}

	if got != "A &amp; B|2" {
		t.Errorf("got %q", got)
	}

	if _, err := NewWithTemplate(ExcerptTakeWhile, "{{.Title"); err == nil {
		t.Error("expected parse error")
	}
}

func TestTeaserTable(t *testing.T) {
	got := TeaserTable([]TeaserRow{
		{Teaser: models.Teaser{Title: "Ab", URL: "u"}, Published: true},
		{Teaser: models.Teaser{Title: "Longer", URL: "https://x"}},
	})

	want := "| #   | Title  | Published | URL       |\n" +
		"| --- | ------ | --------- | --------- |\n" +
		"| 1   | Ab     | yes       | u         |\n" +
		"| 2   | Longer | no        | https://x |\n"

	if got != want {
		t.Errorf("TeaserTable mismatch\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestTeaserTable_WideRunes(t *testing.T) {
	got := TeaserTable([]TeaserRow{
		{Teaser: models.Teaser{Title: "日本のニュース", URL: "u"}},
		{Teaser: models.Teaser{Title: "ascii", URL: "u"}},
	})

	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")

	width := runewidth.StringWidth(lines[0])
	for _, l := range lines[1:] {
		if w := runewidth.StringWidth(l); w != width {
			t.Errorf("line %q has width %d, want %d", l, w, width)
		}
	}
}

func TestTeaserTable_CollapsesTitleWhitespace(t *testing.T) {
	got := TeaserTable([]TeaserRow{{Teaser: models.Teaser{Title: "Two\n   lines", URL: "u"}}})

	if !strings.Contains(got, "| Two lines |") {
		t.Errorf("title not collapsed:\n%s", got)
	}
}
