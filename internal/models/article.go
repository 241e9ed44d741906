// Package models defines data structures shared by the extractor, formatter and importer.
package models

import "time"

// Article is one sourced side-article linked from a story cluster.
type Article struct {
	Source  string      `json:"source"`
	Title   string      `json:"title"`
	URL     string      `json:"url"`
	Summary []Paragraph `json:"summary"`
	Side    Side        `json:"side"`
}

// Story is a cluster of same-topic coverage: a neutral summary plus side-articles.
type Story struct {
	PublishedAt time.Time   `json:"publishedAt"`
	Title       string      `json:"title"`
	Summary     []Paragraph `json:"summary"`
	Articles    []Article   `json:"articles"`
}

// Teaser is a main-page card linking to one story cluster.
type Teaser struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	ImageURL string `json:"imageUrl"`
}

// MainPage holds the teasers of the balanced-news page, oldest first.
type MainPage struct {
	Teasers []Teaser `json:"teasers"`
}
