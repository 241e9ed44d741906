package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"allsidestg/internal/apperr"
	"allsidestg/internal/config"
)

func fastRetry() *config.RetryPolicy {
	return &config.RetryPolicy{
		MaxAttempts:       3,
		InitialDelayMs:    1,
		MaxDelayMs:        5,
		BackoffMultiplier: 1.0,
		TimeoutSec:        5,
	}
}

func TestScraper_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("Expected a User-Agent header")
		}

		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	body, err := NewScraperWithConfig(fastRetry(), 64).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if body != "<html>ok</html>" {
		t.Errorf("Unexpected body %q", body)
	}

	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}

func TestScraper_PermanentStatusIsNetworkError(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewScraperWithConfig(fastRetry(), 64).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("Expected a network error, got %v", err)
	}

	if !errors.Is(err, ErrUnexpectedStatusCode) {
		t.Errorf("Expected ErrUnexpectedStatusCode in chain, got %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("Expected no retry on 404, got %d attempts", calls.Load())
	}
}

func TestScraper_OversizedBodyIsError(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(strings.Repeat("x", 1024+1)))
	}))
	defer srv.Close()

	_, err := NewScraperWithConfig(fastRetry(), 1).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrBodyTooLarge) || !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("Expected ErrBodyTooLarge as a network error, got %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("Expected no retry for an oversized body, got %d attempts", calls.Load())
	}
}

func TestScraper_BodyAtLimitIsKept(t *testing.T) {
	page := strings.Repeat("x", 1024)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	body, err := NewScraperWithConfig(fastRetry(), 1).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if body != page {
		t.Errorf("Expected %d bytes, got %d", len(page), len(body))
	}
}

func TestScraper_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScraperWithConfig(fastRetry(), 64).Fetch(ctx, "http://127.0.0.1:1/")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
}

func TestFileFetcher(t *testing.T) {
	f := NewFileFetcher("testdata")

	body, err := f.Fetch(context.Background(), "https://www.allsides.com/story/allsides-story")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if _, err := NewParser().ParseStory(body); err != nil {
		t.Errorf("Expected fixture to parse, got %v", err)
	}

	_, err = f.Fetch(context.Background(), "https://www.allsides.com/story/does-not-exist")
	if apperr.KindOf(err) != apperr.KindNetwork {
		t.Errorf("Expected network kind for missing file, got %v", err)
	}
}

func TestFileNameForURL(t *testing.T) {
	tests := map[string]string{
		"https://www.allsides.com/unbiased-balanced-news":  "unbiased-balanced-news.html",
		"https://www.allsides.com/story/some-story/":       "some-story.html",
		"https://www.allsides.com/story/some-story?page=2": "some-story.html",
	}

	for in, want := range tests {
		got, err := FileNameForURL(in)
		if err != nil {
			t.Errorf("FileNameForURL(%q) failed: %v", in, err)

			continue
		}

		if got != want {
			t.Errorf("FileNameForURL(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := FileNameForURL("https://www.allsides.com/"); err == nil {
		t.Error("Expected an error for a URL without a path segment")
	}
}

func TestClient_CrawlMainPage(t *testing.T) {
	client := NewClient(NewFileFetcher("testdata"))

	// FileFetcher maps the URL to testdata/allsides-main-page.html.
	page, err := client.CrawlMainPage(context.Background(), "https://www.allsides.com/allsides-main-page")
	if err != nil {
		t.Fatalf("CrawlMainPage failed: %v", err)
	}

	if len(page.Teasers) != 3 {
		t.Errorf("Expected 3 teasers, got %d", len(page.Teasers))
	}

	if _, err := client.ParseStoryFile("testdata/allsides-story.html"); err != nil {
		t.Errorf("ParseStoryFile failed: %v", err)
	}
}
