// Package usage keeps per-provider daily request and embedding counters so
// the embedding client can stay under the providers' free-tier caps.
package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"
)

const (
	keyPrefix  = "usage/"
	dateLayout = "2006-01-02"
	maxRetries = 10
)

// Counters is one provider's usage for one UTC day.
type Counters struct {
	Requests   int64     `json:"requests"`
	Embeddings int64     `json:"embeddings"`
	Errors     int64     `json:"errors"`
	LastUsed   time.Time `json:"last_used"`
}

// Ledger records provider usage. Keys are partitioned by date, so a new day
// starts from zero without an explicit reset.
type Ledger interface {
	Today(ctx context.Context, provider string) (Counters, error)
	RecordRequest(ctx context.Context, provider string, embeddings int) (Counters, error)
	RecordError(ctx context.Context, provider string) error
	Snapshot(ctx context.Context, date string) (map[string]Counters, error)
	Date() string
	Close() error
}

// BadgerLedger is a Ledger persisted in badger. Every mutation is written
// through before the call returns.
type BadgerLedger struct {
	db     *badger.DB
	mu     sync.Mutex
	now    func() time.Time
	logger *zap.Logger
}

var _ Ledger = (*BadgerLedger)(nil)

// Option configures a BadgerLedger.
type Option func(*BadgerLedger)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *BadgerLedger) { l.now = now }
}

// WithLogger sets the logger passed to badger as well.
func WithLogger(logger *zap.Logger) Option {
	return func(l *BadgerLedger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Open opens (creating if needed) a ledger in dir. An empty dir opens an
// in-memory ledger.
func Open(dir string, opts ...Option) (*BadgerLedger, error) {
	l := &BadgerLedger{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}

	var bopts badger.Options
	if dir == "" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
		bopts = badger.DefaultOptions(dir)
	}
	bopts.Logger = &badgerLogger{l.logger.Sugar()}
	bopts.Compression = options.None

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open usage ledger: %w", err)
	}
	l.db = db
	return l, nil
}

// Close closes the underlying database.
func (l *BadgerLedger) Close() error {
	return l.db.Close()
}

// Today returns today's counters for provider; zero when nothing was recorded.
func (l *BadgerLedger) Today(ctx context.Context, provider string) (Counters, error) {
	var c Counters
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		c, err = get(txn, key(l.today(), provider))
		return err
	})
	return c, err
}

// RecordRequest adds one request and n embeddings to today's counters.
func (l *BadgerLedger) RecordRequest(ctx context.Context, provider string, embeddings int) (Counters, error) {
	return l.update(ctx, provider, func(c *Counters) {
		c.Requests++
		c.Embeddings += int64(embeddings)
	})
}

// RecordError adds one error to today's counters.
func (l *BadgerLedger) RecordError(ctx context.Context, provider string) error {
	_, err := l.update(ctx, provider, func(c *Counters) { c.Errors++ })
	return err
}

// Snapshot returns every provider's counters for date (YYYY-MM-DD). An empty
// date means today.
func (l *BadgerLedger) Snapshot(ctx context.Context, date string) (map[string]Counters, error) {
	if date == "" {
		date = l.today()
	}
	out := make(map[string]Counters)
	prefix := []byte(keyPrefix + date + "/")
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			provider := strings.TrimPrefix(string(item.Key()), string(prefix))
			var c Counters
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &c)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			out[provider] = c
		}
		return nil
	})
	return out, err
}

// Date returns today's ledger date.
func (l *BadgerLedger) Date() string {
	return l.today()
}

func (l *BadgerLedger) update(ctx context.Context, provider string, mutate func(*Counters)) (Counters, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result Counters
	k := key(l.today(), provider)
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		err := l.db.Update(func(txn *badger.Txn) error {
			c, err := get(txn, k)
			if err != nil {
				return err
			}
			mutate(&c)
			c.LastUsed = l.now().UTC()
			val, err := json.Marshal(c)
			if err != nil {
				return err
			}
			result = c
			return txn.Set(k, val)
		})
		if errors.Is(err, badger.ErrConflict) {
			l.logger.Debug("usage ledger conflict, retrying", zap.String("provider", provider), zap.Int("attempt", attempt+1))
			continue
		}
		return result, err
	}
	return result, fmt.Errorf("update usage for %s: %w", provider, badger.ErrConflict)
}

func (l *BadgerLedger) today() string {
	return l.now().UTC().Format(dateLayout)
}

func key(date, provider string) []byte {
	return []byte(keyPrefix + date + "/" + provider)
}

func get(txn *badger.Txn, k []byte) (Counters, error) {
	var c Counters
	item, err := txn.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &c)
	})
	return c, err
}

// badgerLogger routes badger's internal logging through zap.
type badgerLogger struct {
	s *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (b *badgerLogger) Errorf(msg string, args ...interface{})   { b.s.Errorf(msg, args...) }
func (b *badgerLogger) Warningf(msg string, args ...interface{}) { b.s.Warnf(msg, args...) }
func (b *badgerLogger) Infof(msg string, args ...interface{})    { b.s.Debugf(msg, args...) }
func (b *badgerLogger) Debugf(msg string, args ...interface{})   { b.s.Debugf(msg, args...) }
