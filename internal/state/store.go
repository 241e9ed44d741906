// Package state records which story URLs have already been published.
package state

import (
	"context"
	"fmt"
	"time"

	"allsidestg/internal/apperr"
	"allsidestg/internal/config"
)

// Store is the dedup set of published story URLs.
//
// MarkPublished must be durable before it returns: once it reports success the
// URL survives a crash. Marking an already-marked URL is a no-op.
type Store interface {
	IsPublished(ctx context.Context, url string) (bool, error)
	MarkPublished(ctx context.Context, url string) error
	// TryMark marks url and reports whether this call was the one that marked it.
	TryMark(ctx context.Context, url string) (bool, error)
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// Record is one published URL.
type Record struct {
	PublishedAt time.Time `json:"publishedAt"`
	URL         string    `json:"url"`
}

// Open creates the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", "bolt":
		return OpenBolt(cfg.Path)
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path)
	case "redis":
		return OpenRedis(ctx, cfg.Redis)
	}

	return nil, apperr.Wrap(apperr.KindDurability, "open store", fmt.Errorf("%w: %q", config.ErrInvalidStoreBackend, cfg.Backend))
}

func durability(op string, err error) error {
	return apperr.Wrap(apperr.KindDurability, op, err)
}

func stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseStamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
