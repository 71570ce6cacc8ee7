// Package chaintest provides engines backed by a temporary SQLite store and a
// controllable clock.
package chaintest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leodarkseid/elkstaking/internal/chain"
	"github.com/leodarkseid/elkstaking/internal/storage"
)

// Genesis is the default wall clock of test engines: 2023-03-01T00:00:00Z
var Genesis = time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)

// Clock is a manually advanced clock
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock returns a clock stopped at t
func NewClock(t time.Time) *Clock {
	return &Clock{t: t}
}

// Now returns the current time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Logger returns a logger that only prints errors
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// NewStore opens a migrated SQLite store in a temporary directory
func NewStore(t testing.TB) storage.Store {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "chain.db"), Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

// Config is the engine configuration used by tests
func Config() chain.Config {
	return chain.Config{
		ChainID:     31337,
		DevAccounts: 5,
		DevSeed:     "elkstaking test",
	}
}

// NewEngine returns an initialized engine whose clock starts at Genesis
func NewEngine(t testing.TB) (*chain.Engine, *Clock) {
	t.Helper()
	clock := NewClock(Genesis)
	engine := chain.New(NewStore(t), Config(), Logger(), chain.WithClock(clock.Now))
	require.NoError(t, engine.Init(context.Background()))
	return engine, clock
}
