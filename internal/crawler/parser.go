// Package crawler fetches AllSides pages and extracts story clusters from their HTML.
package crawler

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"allsidestg/internal/apperr"
	"allsidestg/internal/models"
	"allsidestg/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Site constants.
const (
	SiteOrigin  = "https://www.allsides.com"
	MainPageURL = SiteOrigin + "/unbiased-balanced-news"
)

// Main page selectors.
const (
	selTeaserBlock = ".view-story-id-single-story"
	selTeaserTitle = ".story-title"
	selTeaserImage = ".story-id-image"
)

// Story page selectors.
const (
	selContent       = "#content"
	selHeading       = ".taxonomy-heading"
	selDate          = ".date-display-single"
	selDescription   = ".story-id-page-description"
	selThumbsWrapper = ".feature-thumbs-wrapper"
	selThumb         = ".feature-thumbs"
	selNewsTitle     = ".news-title"
	selReadMore      = ".read-more-story"
	selNewsSource    = ".news-source"
	selBiasImage     = ".bias-image"
	selNewsBody      = ".news-body"
)

// Parser errors.
var (
	ErrNoStories        = errors.New("the main page contains no stories")
	ErrEmptySummary     = errors.New("summary contains no paragraphs")
	ErrInvalidBias      = errors.New("unexpected bias format: expected '<any>: <affiliation>'")
	ErrInvalidTimestamp = errors.New("unexpected date-time format (not rfc3339)")
)

// Parser extracts teasers and stories from rendered AllSides HTML.
type Parser struct {
	origin string
}

// NewParser creates a parser resolving relative links against the AllSides origin.
func NewParser() *Parser {
	return &Parser{origin: SiteOrigin}
}

// NewParserWithOrigin creates a parser resolving relative links against origin.
func NewParserWithOrigin(origin string) *Parser {
	return &Parser{origin: origin}
}

// ParseMainPage extracts the teasers of the balanced-news page, oldest first.
func (p *Parser) ParseMainPage(content string) (*models.MainPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStructural, "read main page html", err)
	}

	var (
		teasers []models.Teaser
		blkErr  error
	)

	doc.Find(selTeaserBlock).EachWithBreak(func(_ int, block *goquery.Selection) bool {
		teaser, err := p.parseTeaser(block)
		if err != nil {
			blkErr = err

			return false
		}

		teasers = append(teasers, teaser)

		return true
	})

	if blkErr != nil {
		return nil, blkErr
	}

	// The site lists newest first.
	slices.Reverse(teasers)

	if len(teasers) == 0 {
		return nil, apperr.Wrap(apperr.KindStructural, selTeaserBlock, ErrNoStories)
	}

	return &models.MainPage{Teasers: teasers}, nil
}

func (p *Parser) parseTeaser(block *goquery.Selection) (models.Teaser, error) {
	href, ok := block.Find("a").First().Attr("href")
	if !ok {
		return models.Teaser{}, missing(selTeaserBlock + " > a[href]")
	}

	url, err := p.resolve(href)
	if err != nil {
		return models.Teaser{}, apperr.Wrap(apperr.KindDataFormat, selTeaserBlock+" > a[href]", err)
	}

	title := block.Find(selTeaserTitle).First()
	if title.Length() == 0 {
		return models.Teaser{}, missing(selTeaserBlock + " > " + selTeaserTitle)
	}

	src, ok := block.Find(selTeaserImage).First().Find("img").First().Attr("src")
	if !ok {
		return models.Teaser{}, missing(selTeaserBlock + " > " + selTeaserImage + " > img[src]")
	}

	imageURL, err := p.resolve(src)
	if err != nil {
		return models.Teaser{}, apperr.Wrap(apperr.KindDataFormat, selTeaserImage+" > img[src]", err)
	}

	return models.Teaser{
		Title:    strings.TrimSpace(title.Text()),
		URL:      url,
		ImageURL: imageURL,
	}, nil
}

// ParseStory extracts a story cluster from its detail page.
func (p *Parser) ParseStory(content string) (*models.Story, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStructural, "read story html", err)
	}

	body := doc.Find(selContent).First()
	if body.Length() == 0 {
		return nil, missing(selContent)
	}

	heading := body.Find(selHeading).First()
	if heading.Length() == 0 {
		return nil, missing(selContent + " " + selHeading)
	}

	raw, ok := body.Find(selDate).First().Attr("content")
	if !ok {
		return nil, missing(selContent + " " + selDate + "[content]")
	}

	publishedAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDataFormat, selDate+"[content]", fmt.Errorf("%w: %w", ErrInvalidTimestamp, err))
	}

	description := doc.Find(selDescription).First()
	if description.Length() == 0 {
		return nil, missing(selDescription)
	}

	summary := childParagraphs(description)
	if len(summary) == 0 {
		return nil, apperr.Wrap(apperr.KindDataFormat, selDescription+" > p", ErrEmptySummary)
	}

	wrapper := body.Find(selThumbsWrapper).First()
	if wrapper.Length() == 0 {
		return nil, missing(selContent + " " + selThumbsWrapper)
	}

	var (
		articles []models.Article
		artErr   error
	)

	wrapper.Find(selThumb).EachWithBreak(func(i int, node *goquery.Selection) bool {
		article, err := parseArticle(node)
		if err != nil {
			artErr = fmt.Errorf("linked article %d: %w", i, err)

			return false
		}

		articles = append(articles, article)

		return true
	})

	if artErr != nil {
		return nil, artErr
	}

	return &models.Story{
		Title:       strings.TrimSpace(heading.Text()),
		Summary:     summary,
		PublishedAt: publishedAt,
		Articles:    articles,
	}, nil
}

func parseArticle(node *goquery.Selection) (models.Article, error) {
	titleLink := node.Find(selNewsTitle).First().Find("a").First()
	if titleLink.Length() == 0 {
		return models.Article{}, missing(selNewsTitle + " > a")
	}

	url, ok := node.Find(selReadMore).First().Find("a").First().Attr("href")
	if !ok {
		return models.Article{}, missing(selReadMore + " > a[href]")
	}

	source := node.Find(selNewsSource).First()
	if source.Length() == 0 {
		return models.Article{}, missing(selNewsSource)
	}

	img := node.Find(selBiasImage).First().Children().First()

	bias, ok := img.Attr("title")
	if !ok || goquery.NodeName(img) != "img" {
		return models.Article{}, missing(selBiasImage + " > img[title]")
	}

	side, err := parseBias(bias)
	if err != nil {
		return models.Article{}, apperr.Wrap(apperr.KindDataFormat, selBiasImage+" > img[title]", err)
	}

	body := node.Find(selNewsBody).First()
	if body.Length() == 0 {
		return models.Article{}, missing(selNewsBody)
	}

	return models.Article{
		Side:    side,
		Source:  strings.TrimSpace(source.Text()),
		Title:   strings.TrimSpace(titleLink.Text()),
		URL:     url,
		Summary: childParagraphs(body),
	}, nil
}

// parseBias reads the side shorthand after the last colon, as in "AllSides Media Bias Rating: Lean Left".
func parseBias(bias string) (models.Side, error) {
	idx := strings.LastIndex(bias, ":")
	if idx < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBias, bias)
	}

	return models.ParseSide(strings.TrimSpace(bias[idx+1:]))
}

// childParagraphs maps the direct <p> children of sel to paragraphs.
func childParagraphs(sel *goquery.Selection) []models.Paragraph {
	var out []models.Paragraph

	sel.ChildrenFiltered("p").Each(func(_ int, p *goquery.Selection) {
		out = append(out, buildParagraph(p.Nodes[0]))
	})

	return out
}

// buildParagraph walks the immediate children of n: anchors become link spans, everything else text.
func buildParagraph(n *html.Node) models.Paragraph {
	var spans []models.Span

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "a" {
			if href, ok := attr(c, "href"); ok {
				spans = append(spans, models.LinkSpan(href, nodeText(c)))

				continue
			}
		}

		spans = append(spans, models.TextSpan(nodeText(c)))
	}

	return models.NewParagraph(spans...)
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return sb.String()
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}

	return "", false
}

func (p *Parser) resolve(ref string) (string, error) {
	return utils.ResolveURL(p.origin, ref)
}

func missing(path string) error {
	return apperr.New(apperr.KindStructural, "cannot query "+path)
}
