package crawler

import (
	"context"
	"fmt"

	"allsidestg/internal/models"
)

// Client pairs a PageFetcher with the Parser.
type Client struct {
	fetcher PageFetcher
	parser  *Parser
}

// NewClient creates a crawler client with the default parser.
func NewClient(fetcher PageFetcher) *Client {
	return &Client{
		fetcher: fetcher,
		parser:  NewParser(),
	}
}

// NewClientWithDeps creates a new crawler client with injected dependencies.
func NewClientWithDeps(fetcher PageFetcher, parser *Parser) *Client {
	return &Client{
		fetcher: fetcher,
		parser:  parser,
	}
}

// CrawlMainPage fetches and parses the balanced-news page.
func (c *Client) CrawlMainPage(ctx context.Context, url string) (*models.MainPage, error) {
	content, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch main page: %w", err)
	}

	page, err := c.parser.ParseMainPage(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse main page: %w", err)
	}

	return page, nil
}

// CrawlStory fetches and parses one story page.
func (c *Client) CrawlStory(ctx context.Context, url string) (*models.Story, error) {
	content, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch story: %w", err)
	}

	story, err := c.parser.ParseStory(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse story %s: %w", url, err)
	}

	return story, nil
}

// ParseMainPageFile parses a main page saved on disk.
func (c *Client) ParseMainPageFile(filePath string) (*models.MainPage, error) {
	content, err := ReadLocalFile(filePath)
	if err != nil {
		return nil, err
	}

	return c.parser.ParseMainPage(content)
}

// ParseStoryFile parses a story page saved on disk.
func (c *Client) ParseStoryFile(filePath string) (*models.Story, error) {
	content, err := ReadLocalFile(filePath)
	if err != nil {
		return nil, err
	}

	return c.parser.ParseStory(content)
}
