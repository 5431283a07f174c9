package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T, now func() time.Time) *BadgerLedger {
	t.Helper()
	l, err := Open("", WithClock(now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLedger_recordAndRead(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 23, 30, 0, 0, time.UTC)
	l := openMemory(t, func() time.Time { return at })

	c, err := l.Today(ctx, "cohere")
	require.NoError(t, err)
	assert.Zero(t, c.Requests)

	c, err = l.RecordRequest(ctx, "cohere", 12)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Requests)
	assert.Equal(t, int64(12), c.Embeddings)

	_, err = l.RecordRequest(ctx, "cohere", 3)
	require.NoError(t, err)
	require.NoError(t, l.RecordError(ctx, "huggingface"))

	c, err = l.Today(ctx, "cohere")
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Requests)
	assert.Equal(t, int64(15), c.Embeddings)
	assert.True(t, at.Equal(c.LastUsed), "last used %v", c.LastUsed)

	snap, err := l.Snapshot(ctx, "")
	require.NoError(t, err)
	assert.Len(t, snap, 2)
	assert.Equal(t, int64(1), snap["huggingface"].Errors)
	assert.Equal(t, "2026-05-04", l.Date())
}

func TestLedger_newDayStartsAtZero(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 23, 59, 0, 0, time.UTC)
	l := openMemory(t, func() time.Time { return at })

	_, err := l.RecordRequest(ctx, "cohere", 5)
	require.NoError(t, err)

	at = at.Add(2 * time.Minute)
	c, err := l.Today(ctx, "cohere")
	require.NoError(t, err)
	assert.Zero(t, c.Requests)

	prev, err := l.Snapshot(ctx, "2026-05-04")
	require.NoError(t, err)
	assert.Equal(t, int64(5), prev["cohere"].Embeddings)
}

func TestLedger_usesUTCDate(t *testing.T) {
	loc := time.FixedZone("PGT", 10*60*60)
	at := time.Date(2026, 5, 5, 8, 0, 0, 0, loc) // 2026-05-04 22:00 UTC
	l := openMemory(t, func() time.Time { return at })
	assert.Equal(t, "2026-05-04", l.Date())
}

func TestLedger_concurrentIncrements(t *testing.T) {
	ctx := context.Background()
	l := openMemory(t, time.Now)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.RecordRequest(ctx, "cohere", 2)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := l.Today(ctx, "cohere")
	require.NoError(t, err)
	assert.Equal(t, int64(20), c.Requests)
	assert.Equal(t, int64(40), c.Embeddings)
}

func TestLedger_persistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	l, err := Open(dir)
	require.NoError(t, err)
	_, err = l.RecordRequest(ctx, "cohere", 7)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = Open(dir)
	require.NoError(t, err)
	defer l.Close()
	c, err := l.Today(ctx, "cohere")
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.Embeddings)
}
