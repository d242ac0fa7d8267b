// Package query implements the read-only query service (spec §4.6,
// C6) over a set of ready shards: lookup by id, by exact title, by
// title-and-year, and by keyword set, each fanning out across all
// shards concurrently and merging the per-shard hits into one ranked,
// optionally Which-filtered, optionally top-N-truncated result.
//
// The teacher has no multi-shard fan-out of its own (stormdb's
// workerpool is a job queue, not a scatter-gather), so the
// concurrency shape here is grounded on golang.org/x/sync/errgroup —
// already present in the retrieved pack (autobrr-qui, stormdb,
// cartographus all carry it) and the idiomatic way to run a bounded
// set of goroutines against a context and collect the first error.
package query

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tvrank/tvrank/internal/config"
	"github.com/tvrank/tvrank/internal/shard"
	"github.com/tvrank/tvrank/internal/title"
)

// Service answers queries against a fixed set of ready shards.
type Service struct {
	shards []*shard.Shard
}

// New returns a Service over shards. The slice is never mutated and
// must already be fully built (spec §4.9: READY).
func New(shards []*shard.Shard) *Service {
	return &Service{shards: shards}
}

// Options controls result shaping, common to every query operation.
type Options struct {
	Which  *title.Which // nil means "no filter"
	Sort   config.SortMode
	Limit  int // <= 0 means "no limit"
}

// ByID returns the single record for id, across whichever shard owns it.
func (s *Service) ByID(id title.Id) (title.Record, bool) {
	sh := s.shards[shard.Which(id, len(s.shards))]
	return sh.ByID(id)
}

// ByExactTitle fans out a normalised-title lookup across every shard
// and returns every matching record (spec §4.6: "title" is the
// record's canonical title, matching PrimaryTitle or OriginalTitle).
func (s *Service) ByExactTitle(ctx context.Context, query string, opts Options) ([]title.Record, error) {
	normalized := title.Normalize(query)
	records, err := s.fanOut(ctx, func(sh *shard.Shard) []title.Record {
		return sh.ByExactTitle(normalized)
	})
	if err != nil {
		return nil, err
	}
	return finish(records, opts), nil
}

// ByTitleAndYear narrows ByExactTitle to records whose start year
// equals year (spec §4.6: "disambiguates identically-titled
// productions by release year").
func (s *Service) ByTitleAndYear(ctx context.Context, query string, year uint16, opts Options) ([]title.Record, error) {
	normalized := title.Normalize(query)
	records, err := s.fanOut(ctx, func(sh *shard.Shard) []title.Record {
		matches := sh.ByExactTitle(normalized)
		out := matches[:0]
		for _, r := range matches {
			if r.StartYear != nil && *r.StartYear == year {
				out = append(out, r)
			}
		}
		return out
	})
	if err != nil {
		return nil, err
	}
	return finish(records, opts), nil
}

// ByKeywords returns every record whose normalised primary or original
// title contains every keyword as a substring (spec §4.6/§4.7).
// Keywords are normalised and deduplicated before matching.
func (s *Service) ByKeywords(ctx context.Context, keywords []string, opts Options) ([]title.Record, error) {
	normalized := normalizeKeywords(keywords)
	if len(normalized) == 0 {
		return nil, nil
	}
	records, err := s.fanOut(ctx, func(sh *shard.Shard) []title.Record {
		indices := sh.MatchKeywords(normalized)
		out := make([]title.Record, 0, len(indices))
		for _, i := range indices {
			out = append(out, sh.RecordAt(i))
		}
		return out
	})
	if err != nil {
		return nil, err
	}
	return finish(records, opts), nil
}

func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		n := title.Normalize(k)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// fanOut runs fn over every shard concurrently, propagating ctx
// cancellation, and concatenates the per-shard results in shard-index
// order once every shard has finished (errgroup.Group's WithContext
// cancels the group's derived context on the first error; fn here
// never errors, so fanOut only ever returns ctx's own cancellation).
func (s *Service) fanOut(ctx context.Context, fn func(*shard.Shard) []title.Record) ([]title.Record, error) {
	perShard := make([][]title.Record, len(s.shards))

	g, gctx := errgroup.WithContext(ctx)
	for i, sh := range s.shards {
		i, sh := i, sh
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			perShard[i] = fn(sh)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, recs := range perShard {
		total += len(recs)
	}
	out := make([]title.Record, 0, total)
	for _, recs := range perShard {
		out = append(out, recs...)
	}
	return out, nil
}

// finish applies the Which filter, sort order and limit common to
// every query operation (spec §4.6).
func finish(records []title.Record, opts Options) []title.Record {
	if opts.Which != nil {
		filtered := records[:0]
		for _, r := range records {
			if opts.Which.Matches(r.Type) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	sortRecords(records, opts.Sort)

	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}
	return records
}

// sortRecords orders by SortByScore (rating desc, votes desc, year
// asc, primary title asc) or SortByYear (year asc, score desc, votes
// desc, title asc), per spec §4.6. The two modes tie-break on
// different title fields: Default's last key is specifically the
// primary title, not whichever of primary/original Title() prefers.
func sortRecords(records []title.Record, mode config.SortMode) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := &records[i], &records[j]
		switch mode {
		case config.SortByYear:
			if c := compareYear(a, b); c != 0 {
				return c < 0
			}
			if c := compareScoreDesc(a, b); c != 0 {
				return c < 0
			}
			if c := compareVotesDesc(a, b); c != 0 {
				return c < 0
			}
			return strings.ToLower(a.Title()) < strings.ToLower(b.Title())
		default:
			if c := compareScoreDesc(a, b); c != 0 {
				return c < 0
			}
			if c := compareVotesDesc(a, b); c != 0 {
				return c < 0
			}
			if c := compareYear(a, b); c != 0 {
				return c < 0
			}
			return strings.ToLower(a.PrimaryTitle) < strings.ToLower(b.PrimaryTitle)
		}
	})
}

func compareYear(a, b *title.Record) int {
	ay, by := yearOf(a), yearOf(b)
	switch {
	case ay < by:
		return -1
	case ay > by:
		return 1
	default:
		return 0
	}
}

func yearOf(r *title.Record) int {
	if r.StartYear == nil {
		return 1 << 30 // unknown years sort last in ascending order
	}
	return int(*r.StartYear)
}

func compareScoreDesc(a, b *title.Record) int {
	as, bs := scoreOf(a), scoreOf(b)
	switch {
	case as > bs:
		return -1
	case as < bs:
		return 1
	default:
		return 0
	}
}

func scoreOf(r *title.Record) int {
	if r.Rating == nil {
		return -1
	}
	return int(r.Rating.Score)
}

func compareVotesDesc(a, b *title.Record) int {
	av, bv := votesOf(a), votesOf(b)
	switch {
	case av > bv:
		return -1
	case av < bv:
		return 1
	default:
		return 0
	}
}

func votesOf(r *title.Record) int {
	if r.Rating == nil {
		return -1
	}
	return int(r.Rating.Votes)
}
