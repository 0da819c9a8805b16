package cache

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/mcamposv/metrica/internal/models"
)

const metricKeyPrefix = "metric:"

// BadgerStore is the production Store: entries survive restarts. Keys are
// `metric:<tag>:<YYYY-MM-DD>`, so lexicographic iteration within a tag prefix
// is already chronological.
type BadgerStore struct {
	db  *badger.DB
	now Clock
}

func NewBadgerStore(db *badger.DB, now Clock) *BadgerStore {
	if now == nil {
		now = time.Now
	}
	return &BadgerStore{db: db, now: now}
}

func badgerKey(tag string, day time.Time) []byte {
	return []byte(metricKeyPrefix + tag + ":" + day.Format(models.DateFormat))
}

func (s *BadgerStore) Put(_ context.Context, tag string, m models.DailyMetric) error {
	day := models.Day(m.Date)
	m.Date = day
	e := models.CacheEntry{SourceTag: tag, Metric: m, UpdatedAt: s.now()}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(tag, day), data)
	})
}

func (s *BadgerStore) Get(_ context.Context, tag string, from, to time.Time) ([]models.CacheEntry, error) {
	from, to = models.Day(from), models.Day(to)
	prefix := []byte(metricKeyPrefix + tag + ":")
	start := badgerKey(tag, from)
	end := badgerKey(tag, to)

	var out []models.CacheEntry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if bytes.Compare(item.Key(), end) > 0 {
				break
			}
			var e models.CacheEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decode cache entry %s: %w", item.Key(), err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
