package cache

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcamposv/metrica/internal/models"
)

func openTestBadger(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBadgerStorePutGet(t *testing.T) {
	db := openTestBadger(t)
	now := day("2024-02-10")
	st := NewBadgerStore(db, func() time.Time { return now })
	ctx := context.Background()

	for _, d := range []string{"2024-02-01", "2024-02-03", "2024-02-05"} {
		require.NoError(t, st.Put(ctx, models.SourceAds, models.DailyMetric{
			Date: day(d), Counters: models.Counters{Spend: 5, Impressions: 100},
		}))
	}
	require.NoError(t, st.Put(ctx, models.SourceSales, models.DailyMetric{
		Date: day("2024-02-03"), Counters: models.Counters{Revenue: 99},
	}))

	got, err := st.Get(ctx, models.SourceAds, day("2024-02-02"), day("2024-02-05"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day("2024-02-03"), got[0].Metric.Date)
	assert.Equal(t, day("2024-02-05"), got[1].Metric.Date)
	assert.Equal(t, models.SourceAds, got[0].SourceTag)
	assert.Equal(t, 5.0, got[0].Metric.Spend)
	assert.True(t, got[0].UpdatedAt.Equal(now))
}

func TestBadgerStoreUpsertOverwrites(t *testing.T) {
	db := openTestBadger(t)
	cur := day("2024-02-10")
	st := NewBadgerStore(db, func() time.Time { return cur })
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, models.SourceEmail, models.DailyMetric{
		Date: day("2024-02-01"), Counters: models.Counters{Sent: 10},
	}))
	cur = cur.Add(time.Hour)
	require.NoError(t, st.Put(ctx, models.SourceEmail, models.DailyMetric{
		Date: day("2024-02-01"), Counters: models.Counters{Sent: 12},
	}))

	got, err := st.Get(ctx, models.SourceEmail, day("2024-02-01"), day("2024-02-01"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	// last-writer-wins
	assert.Equal(t, 12, got[0].Metric.Sent)
	assert.True(t, got[0].UpdatedAt.Equal(cur))
}

func TestBadgerStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	open := func() *badger.DB {
		opts := badger.DefaultOptions(dir)
		opts.Logger = nil
		db, err := badger.Open(opts)
		require.NoError(t, err)
		return db
	}

	db := open()
	st := NewBadgerStore(db, nil)
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, models.SourceSales, models.DailyMetric{
		Date: day("2024-02-01"), Counters: models.Counters{Revenue: 77},
	}))
	require.NoError(t, db.Close())

	db = open()
	defer db.Close()
	st = NewBadgerStore(db, nil)
	got, err := st.Get(ctx, models.SourceSales, day("2024-02-01"), day("2024-02-01"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 77.0, got[0].Metric.Revenue)
}
