package shard

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/tvrank/tvrank/internal/dberr"
	"github.com/tvrank/tvrank/internal/keyword"
	"github.com/tvrank/tvrank/internal/logging"
	"github.com/tvrank/tvrank/internal/title"
	"github.com/tvrank/tvrank/internal/tsv"
	"github.com/tvrank/tvrank/internal/workerpool"
)

// BuildOptions configures the shard builder (spec §4.4 C4).
type BuildOptions struct {
	ShardCount int
	Logger     logging.Logger
	// OnMalformed, if set, is called once per row rejected by the TSV
	// decoder or by title.Record.Validate (spec §4.2/§4.4: a malformed
	// row is skipped, never fatal to the whole ingestion run).
	OnMalformed func(source string, lineNo int, reason string)
}

type ratingFact struct {
	Score uint8
	Votes uint32
}

// Build runs the full C4 pipeline over two decompressed TSV blobs:
// a sequential ratings pass builds an id->rating lookup, then basics
// rows are partitioned across a fixed worker pool sized to shardCount,
// each worker assigning records to shards by fnv1a(id) mod shardCount,
// and finally each shard's records are sorted by id and indexed.
func Build(ctx context.Context, basics, ratings []byte, opts BuildOptions) ([]*Shard, error) {
	if opts.ShardCount <= 0 {
		opts.ShardCount = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDefault(0)
	}
	onMalformed := opts.OnMalformed
	if onMalformed == nil {
		onMalformed = func(string, int, string) {}
	}

	ratingsByID := buildRatingsIndex(ratings, onMalformed)

	partitions := partitionLines(basics, opts.ShardCount)

	pool := workerpool.New(workerpool.Config{
		Workers:    opts.ShardCount,
		BufferSize: len(partitions),
		Logger:     opts.Logger,
	})
	if err := pool.Start(); err != nil {
		return nil, dberr.Wrap(dberr.CacheIoFailed, "start shard builder pool", err)
	}

	for i, p := range partitions {
		job := &parseJob{
			id:          i,
			blob:        p,
			shardCount:  opts.ShardCount,
			ratings:     ratingsByID,
			onMalformed: onMalformed,
		}
		if err := pool.Submit(job); err != nil {
			return nil, dberr.Wrap(dberr.CacheIoFailed, "submit basics partition", err)
		}
	}

	perShardBuckets := make([][]title.Record, opts.ShardCount)
	remaining := len(partitions)
	for remaining > 0 {
		select {
		case res := <-pool.Results():
			remaining--
			pr := res.(*parseResult)
			if pr.err != nil {
				_ = pool.Shutdown()
				return nil, pr.err
			}
			for shardIdx, recs := range pr.byShard {
				perShardBuckets[shardIdx] = append(perShardBuckets[shardIdx], recs...)
			}
		case <-ctx.Done():
			_ = pool.Shutdown()
			return nil, ctx.Err()
		}
	}
	if err := pool.Shutdown(); err != nil {
		return nil, dberr.Wrap(dberr.CacheIoFailed, "shut down shard builder pool", err)
	}

	shards := make([]*Shard, opts.ShardCount)
	for i := 0; i < opts.ShardCount; i++ {
		shards[i] = assemble(i, perShardBuckets[i])
	}
	return shards, nil
}

// buildRatingsIndex runs the sequential ratings pass (spec §4.4 step 1:
// "single sequential pass, small enough to not warrant partitioning").
func buildRatingsIndex(blob []byte, onMalformed func(string, int, string)) map[title.Id]ratingFact {
	out := make(map[title.Id]ratingFact)
	tsv.ScanLines(blob, 3, func(row tsv.Row) {
		rr, ok := tsv.DecodeRatings(row)
		if !ok {
			onMalformed("ratings", 0, "malformed ratings row")
			return
		}
		id, err := title.ParseIdBytes(rr.Id)
		if err != nil {
			onMalformed("ratings", 0, err.Error())
			return
		}
		out[id] = ratingFact{Score: rr.Score, Votes: rr.Votes}
	}, func(lineNo int, raw []byte) {
		onMalformed("ratings", lineNo, "wrong column count")
	})
	return out
}

// partitionLines splits blob into roughly n contiguous byte ranges,
// each aligned to a newline boundary so no row is split across
// partitions (spec §4.4 step 2).
func partitionLines(blob []byte, n int) [][]byte {
	if n <= 1 || len(blob) == 0 {
		return [][]byte{blob}
	}
	chunkSize := len(blob) / n
	if chunkSize == 0 {
		return [][]byte{blob}
	}

	var parts [][]byte
	start := 0
	for start < len(blob) {
		end := start + chunkSize
		if end >= len(blob) {
			parts = append(parts, blob[start:])
			break
		}
		for end < len(blob) && blob[end] != '\n' {
			end++
		}
		if end < len(blob) {
			end++ // include the newline in this partition
		}
		parts = append(parts, blob[start:end])
		start = end
	}
	return parts
}

// parseJob decodes one basics partition and buckets its records by
// owning shard.
type parseJob struct {
	id          int
	blob        []byte
	shardCount  int
	ratings     map[title.Id]ratingFact
	onMalformed func(string, int, string)
}

func (j *parseJob) ID() string { return "basics-partition" }

func (j *parseJob) Execute(_ context.Context) workerpool.Result {
	start := time.Now()
	byShard := make([][]title.Record, j.shardCount)

	decodeRow := func(row tsv.Row) {
		br, ok := tsv.DecodeBasics(row)
		if !ok {
			j.onMalformed("basics", 0, "malformed basics row")
			return
		}
		id, err := title.ParseIdBytes(br.Id)
		if err != nil {
			j.onMalformed("basics", 0, err.Error())
			return
		}

		rec := title.Record{
			Id:           id,
			Type:         title.ParseType(string(br.TitleType)),
			PrimaryTitle: string(br.PrimaryTitle),
			IsAdult:      br.IsAdult,
			Genres:       title.ParseGenreSet(string(br.Genres)),
		}
		if primary, original := string(br.PrimaryTitle), string(br.OriginalTitle); original != "" && original != primary {
			rec.OriginalTitle = original
		}
		if br.HasStartYear {
			y := uint16(br.StartYear)
			rec.StartYear = &y
		}
		if br.HasEndYear {
			y := uint16(br.EndYear)
			rec.EndYear = &y
		}
		if br.HasRuntime {
			m := uint16(br.RuntimeMinutes)
			rec.RuntimeMins = &m
		}
		if rf, ok := j.ratings[id]; ok {
			rec.Rating = &title.Rating{Score: rf.Score, Votes: rf.Votes}
		}

		if err := rec.Validate(); err != nil {
			j.onMalformed("basics", 0, err.Error())
			return
		}

		shardIdx := Which(id, j.shardCount)
		byShard[shardIdx] = append(byShard[shardIdx], rec)
	}
	onBadRow := func(lineNo int, raw []byte) {
		j.onMalformed("basics", lineNo, "wrong column count")
	}

	// ScanLines skips a blob's first non-blank line as its header, and
	// only partition 0 starts with the real header: a later partition's
	// first row is decoded on its own behind a placeholder header line.
	blob := j.blob
	if j.id > 0 {
		blob = bytes.TrimLeft(blob, "\r\n")
		head := blob
		if nl := bytes.IndexByte(blob, '\n'); nl >= 0 {
			head = blob[:nl+1]
		}
		tsv.ScanLines(append([]byte("-\n"), head...), 9, decodeRow, onBadRow)
	}
	tsv.ScanLines(blob, 9, decodeRow, onBadRow)

	return &parseResult{jobID: j.ID(), byShard: byShard, duration: time.Since(start)}
}

type parseResult struct {
	jobID    string
	byShard  [][]title.Record
	err      error
	duration time.Duration
}

func (r *parseResult) JobID() string          { return r.jobID }
func (r *parseResult) Error() error           { return r.err }
func (r *parseResult) Duration() time.Duration { return r.duration }

// assemble sorts one shard's records by id, interns their strings into
// the arena, builds the id/title indexes and the keyword-matcher
// corpus, and returns the finished, READY shard.
func assemble(index int, records []title.Record) *Shard {
	sortRecordsByID(records)

	arenaHint := 0
	for _, r := range records {
		arenaHint += len(r.PrimaryTitle) + len(r.OriginalTitle) + 16
	}
	arena := NewArena(arenaHint)
	corpus := keyword.NewBuilder(len(records))

	packed := make([]packedRecord, len(records))
	idIndex := make(map[title.Id]int32, len(records))
	primaryIndex := make(map[string][]int32, len(records))
	originalIndex := make(map[string][]int32)

	for i, r := range records {
		normPrimary := title.Normalize(r.PrimaryTitle)
		normOriginal := ""
		if r.OriginalTitle != "" {
			normOriginal = title.Normalize(r.OriginalTitle)
		}

		p := packedRecord{
			Id:          r.Id,
			Type:        r.Type,
			IsAdult:     r.IsAdult,
			Genres:      r.Genres,
			Primary:     arena.Intern(r.PrimaryTitle),
			NormPrimary: arena.Intern(normPrimary),
		}
		if r.OriginalTitle != "" {
			p.Original = arena.Intern(r.OriginalTitle)
			p.NormOriginal = arena.Intern(normOriginal)
		}
		if r.StartYear != nil {
			p.StartYear = *r.StartYear
		}
		if r.EndYear != nil {
			p.EndYear = *r.EndYear
		}
		if r.RuntimeMins != nil {
			p.RuntimeMins = *r.RuntimeMins
		}
		if r.Rating != nil {
			p.Score = r.Rating.Score
			p.Votes = r.Rating.Votes
		}
		packed[i] = p

		idx := int32(i)
		idIndex[r.Id] = idx
		primaryIndex[normPrimary] = append(primaryIndex[normPrimary], idx)
		corpus.AddPrimary(idx, normPrimary)
		if normOriginal != "" {
			originalIndex[normOriginal] = append(originalIndex[normOriginal], idx)
			corpus.AddOriginal(idx, normOriginal)
		}
	}

	return &Shard{
		index:         index,
		state:         ready,
		arena:         arena,
		records:       packed,
		idIndex:       idIndex,
		primaryIndex:  primaryIndex,
		originalIndex: originalIndex,
		corpus:        corpus.Build(),
	}
}

// sortRecordsByID orders records ascending by id (spec §4.3: "records
// held in ascending id order"), matching packedRecord's final layout.
func sortRecordsByID(records []title.Record) {
	sort.Slice(records, func(i, j int) bool {
		return bytesLess(records[i].Id.Bytes(), records[j].Id.Bytes())
	})
}
