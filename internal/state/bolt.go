package state

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketPublished = []byte("published")

// BoltStore keeps the dedup set in a single bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the bbolt file at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, durability("open bolt "+path, err)
	}

	// Every commit fsyncs.
	db.NoSync = false

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPublished)

		return err
	})
	if err != nil {
		_ = db.Close()

		return nil, durability("create bucket", err)
	}

	return &BoltStore{db: db}, nil
}

// IsPublished implements Store.
func (s *BoltStore) IsPublished(ctx context.Context, url string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketPublished).Get([]byte(url)) != nil

		return nil
	})
	if err != nil {
		return false, durability("read "+url, err)
	}

	return found, nil
}

// MarkPublished implements Store.
func (s *BoltStore) MarkPublished(ctx context.Context, url string) error {
	_, err := s.TryMark(ctx, url)

	return err
}

// TryMark implements Store.
func (s *BoltStore) TryMark(ctx context.Context, url string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var marked bool

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPublished)
		if b.Get([]byte(url)) != nil {
			return nil
		}

		marked = true

		return b.Put([]byte(url), []byte(stamp()))
	})
	if err != nil {
		return false, durability("mark "+url, err)
	}

	return marked, nil
}

// List implements Store.
func (s *BoltStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Record

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPublished).ForEach(func(k, v []byte) error {
			out = append(out, Record{URL: string(k), PublishedAt: parseStamp(string(v))})

			return nil
		})
	})
	if err != nil {
		return nil, durability("list", err)
	}

	return out, nil
}

// Close implements Store.
func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return durability("close bolt", err)
	}

	return nil
}
