package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"allsidestg/internal/apperr"
	"allsidestg/internal/config"
	"allsidestg/pkg/utils"
)

// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// ErrBodyTooLarge indicates a response body beyond the configured buffer size.
var ErrBodyTooLarge = errors.New("response body exceeds buffer size")

// PageFetcher turns a URL into HTML. Implementations must return markup that is
// already rendered; AllSides materializes its story lists with scripts.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Scraper fetches pages over plain HTTP with config-driven retry logic.
// It does not execute scripts, so it only suits pre-rendered or cached pages.
type Scraper struct {
	client       *http.Client
	retryPolicy  *config.RetryPolicy
	bufferSizeKb int
}

// NewScraper creates a new scraper instance with default config.
func NewScraper() *Scraper {
	return NewScraperWithConfig(&config.RetryPolicy{
		MaxAttempts:       3,
		InitialDelayMs:    500,
		MaxDelayMs:        30000,
		BackoffMultiplier: 2.0,
		TimeoutSec:        30,
	}, 4096)
}

// NewScraperWithConfig creates a new scraper with custom retry policy.
func NewScraperWithConfig(retryPolicy *config.RetryPolicy, bufferSizeKb int) *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: retryPolicy.GetTimeout(),
		},
		retryPolicy:  retryPolicy,
		bufferSizeKb: bufferSizeKb,
	}
}

// Fetch implements PageFetcher.
func (s *Scraper) Fetch(ctx context.Context, url string) (string, error) {
	content, _, _, err := s.ScrapeWithMetrics(ctx, url)
	if err != nil {
		return "", apperr.Wrap(apperr.KindNetwork, "GET "+url, err)
	}

	return content, nil
}

// ScrapeWithMetrics returns (content, statusCode, duration, error).
func (s *Scraper) ScrapeWithMetrics(ctx context.Context, url string) (string, int, time.Duration, error) {
	var (
		lastErr        error
		lastStatusCode int
	)

	totalDuration := time.Duration(0)

	for attempt := 1; attempt <= s.retryPolicy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, s.retryPolicy.GetRetryDelay(attempt)); err != nil {
				return "", lastStatusCode, totalDuration, err
			}
		}

		startTime := time.Now()
		body, status, err := s.get(ctx, url)
		totalDuration += time.Since(startTime)
		lastStatusCode = status

		if err == nil {
			return body, status, totalDuration, nil
		}

		lastErr = fmt.Errorf("attempt %d/%d: %w", attempt, s.retryPolicy.MaxAttempts, err)

		if status != 0 && !isRetryableStatus(status) {
			break
		}
	}

	return "", lastStatusCode, totalDuration, lastErr
}

func (s *Scraper) get(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = utils.BuildHeaders(nil)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	// bufferSizeKb is in KB
	limit := int64(s.bufferSizeKb) * 1024

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	// A cut page would parse into fewer stories without complaint.
	if int64(len(body)) > limit {
		return "", resp.StatusCode, fmt.Errorf("%w: more than %d KB", ErrBodyTooLarge, s.bufferSizeKb)
	}

	return string(body), resp.StatusCode, nil
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusBadGateway:
		return true
	}

	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FileFetcher serves pages saved to a directory, for offline replays.
// A URL maps to "<last path segment>.html"; the main page is "unbiased-balanced-news.html".
type FileFetcher struct {
	dir string
}

// NewFileFetcher creates a fetcher reading from dir.
func NewFileFetcher(dir string) *FileFetcher {
	return &FileFetcher{dir: dir}
}

// Fetch implements PageFetcher.
func (f *FileFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := FileNameForURL(rawURL)
	if err != nil {
		return "", apperr.Wrap(apperr.KindNetwork, "map "+rawURL, err)
	}

	content, err := ReadLocalFile(filepath.Join(f.dir, name))
	if err != nil {
		return "", apperr.Wrap(apperr.KindNetwork, "GET "+rawURL, err)
	}

	return content, nil
}

// FileNameForURL returns the file name FileFetcher reads for rawURL.
func FileNameForURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}

	base := path.Base(strings.TrimSuffix(u.Path, "/"))
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("%w: no path segment in %s", os.ErrNotExist, rawURL)
	}

	return base + ".html", nil
}

// ReadLocalFile reads content from a local file path.
func ReadLocalFile(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read local file %s: %w", filePath, err)
	}

	return string(content), nil
}
