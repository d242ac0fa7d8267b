// Package tvrank wires the cache, shard, persist, query and scan
// components into one embeddable engine (spec §1 overview: "a single
// process embeds the engine, which keeps the catalog in memory").
package tvrank

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/tvrank/tvrank/internal/cache"
	"github.com/tvrank/tvrank/internal/config"
	"github.com/tvrank/tvrank/internal/dberr"
	"github.com/tvrank/tvrank/internal/logging"
	"github.com/tvrank/tvrank/internal/persist"
	"github.com/tvrank/tvrank/internal/progress"
	"github.com/tvrank/tvrank/internal/query"
	"github.com/tvrank/tvrank/internal/shard"
)

// Engine is the embeddable, in-memory title database (spec §1-§4).
// Once Open returns, it is read-only and safe for concurrent use from
// multiple goroutines: QueryService and RefreshIfStale share a mutex
// so a long-lived embedder can run query traffic concurrently with
// RefreshIfStale's periodic rebuild ([M-CACHE]).
type Engine struct {
	mu    sync.RWMutex
	query *query.Service

	store      *cache.Store
	shardCount int
	logger     logging.Logger

	basicsModTime  time.Time
	ratingsModTime time.Time
}

// QueryService returns the engine's current query service. Safe to
// call concurrently with RefreshIfStale; a reference returned before a
// refresh remains valid (query.Service is itself immutable) but won't
// reflect the refreshed catalog.
func (e *Engine) QueryService() *query.Service {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.query
}

// Options configures Open.
type Options struct {
	CacheDir    string
	ShardCount  int // 0 means runtime.GOMAXPROCS(0)
	ForceUpdate bool
	Sink        progress.Sink
	Logger      logging.Logger
}

// Open builds or loads the title database rooted at opts.CacheDir
// (spec §4.1/§4.4/§4.5 composed end to end):
//  1. ensure the two IMDB dumps are present and fresh;
//  2. if a compatible binary snapshot already exists, load it;
//  3. otherwise build shards from the dumps and persist the result.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	if opts.ShardCount <= 0 {
		opts.ShardCount = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDefault(0)
	}

	store, err := cache.New(opts.CacheDir, opts.Sink)
	if err != nil {
		return nil, err
	}

	dumps, err := store.Open(ctx, opts.ForceUpdate)
	if err != nil {
		return nil, err
	}

	shards, err := loadOrBuild(ctx, store, dumps, opts)
	if err != nil {
		return nil, err
	}

	return &Engine{
		query:          query.New(shards),
		store:          store,
		shardCount:     opts.ShardCount,
		logger:         opts.Logger,
		basicsModTime:  dumps.BasicsModTime,
		ratingsModTime: dumps.RatingsModTime,
	}, nil
}

func loadOrBuild(ctx context.Context, store *cache.Store, dumps *cache.Dumps, opts Options) ([]*shard.Shard, error) {
	snapshotPath := store.SnapshotPath()
	if opts.Logger == nil {
		opts.Logger = logging.NewDefault(0)
	}

	if !opts.ForceUpdate {
		shards, err := persist.Load(snapshotPath, opts.ShardCount, dumps.BasicsModTime, dumps.RatingsModTime)
		if err == nil {
			return shards, nil
		}
		if !dberr.Is(err, dberr.SnapshotIncompatible) && !dberr.Is(err, dberr.CacheIoFailed) {
			return nil, err
		}
		logSnapshotMismatch(opts.Logger, snapshotPath, opts.ShardCount, dumps)
	}

	shards, err := shard.Build(ctx, dumps.Basics, dumps.Ratings, shard.BuildOptions{
		ShardCount: opts.ShardCount,
		Logger:     opts.Logger,
		OnMalformed: func(source string, lineNo int, reason string) {
			opts.Logger.Debug("skipped malformed row",
				logging.Fields.String("source", source),
				logging.Fields.Int("line", lineNo),
				logging.Fields.String("reason", reason))
		},
	})
	if err != nil {
		return nil, err
	}

	if err := persist.Save(snapshotPath, shards, dumps.BasicsModTime, dumps.RatingsModTime); err != nil {
		opts.Logger.Warn("failed to persist shard snapshot", logging.Fields.Error(err))
	}
	return shards, nil
}

// logSnapshotMismatch reads just the snapshot's header (persist.ReadMeta,
// without decoding any shard body) to report specifically why an
// existing snapshot was rejected, rather than a generic "unusable".
func logSnapshotMismatch(logger logging.Logger, snapshotPath string, wantShardCount int, dumps *cache.Dumps) {
	meta, err := persist.ReadMeta(snapshotPath)
	if err != nil {
		logger.Debug("shard snapshot unusable, rebuilding from dumps")
		return
	}
	switch {
	case meta.ShardCount != wantShardCount:
		logger.Debug("shard snapshot rebuilding: configured shard count changed",
			logging.Fields.Int("snapshot_shards", meta.ShardCount),
			logging.Fields.Int("configured_shards", wantShardCount))
	case !meta.BasicsModTime.Equal(dumps.BasicsModTime) || !meta.RatingsModTime.Equal(dumps.RatingsModTime):
		logger.Debug("shard snapshot rebuilding: source dumps changed since the snapshot was written")
	default:
		logger.Debug("shard snapshot unusable, rebuilding from dumps")
	}
}

// RefreshIfStale re-runs the freshness check against the live IMDB
// dumps and, if either is stale, re-fetches and rebuilds the engine's
// shards and query service in place (spec §4.1: "periodically
// refreshed"). It reports whether a rebuild actually happened.
func (e *Engine) RefreshIfStale(ctx context.Context) (bool, error) {
	basicsPath, ratingsPath := e.store.DumpPaths()
	if cache.IsFresh(basicsPath) && cache.IsFresh(ratingsPath) {
		return false, nil
	}

	dumps, err := e.store.Open(ctx, false)
	if err != nil {
		return false, err
	}

	e.mu.RLock()
	unchanged := dumps.BasicsModTime.Equal(e.basicsModTime) && dumps.RatingsModTime.Equal(e.ratingsModTime)
	e.mu.RUnlock()
	if unchanged {
		return false, nil
	}

	shards, err := loadOrBuild(ctx, e.store, dumps, Options{
		ShardCount: e.shardCount,
		Logger:     e.logger,
	})
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	e.query = query.New(shards)
	e.basicsModTime = dumps.BasicsModTime
	e.ratingsModTime = dumps.RatingsModTime
	e.mu.Unlock()
	return true, nil
}

// FromConfig translates a config.Config into engine Options, for
// callers wiring the engine from the CLI's layered configuration.
func FromConfig(cfg *config.Config, sink progress.Sink, logger logging.Logger) Options {
	return Options{
		CacheDir:    cfg.CacheDir,
		ShardCount:  cfg.ShardCount,
		ForceUpdate: cfg.ForceUpdate,
		Sink:        sink,
		Logger:      logger,
	}
}
