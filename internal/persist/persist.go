// Package persist implements the binary snapshot format (spec §4.5,
// C5) that lets the engine skip re-parsing the IMDB TSV dumps on every
// startup: once a set of shards has been built, Save commits them to
// a single versioned file; Load reads them back only if the file's
// version, shard count and source modification times all still match.
//
// The teacher carries no binary codec of its own (stormdb persists
// nothing; it only runs benchmarks in memory), so the wire format
// here is a from-scratch framing built on stdlib encoding/binary —
// the justified standard-library case recorded in the grounding
// ledger. Per-shard record/arena encoding is internal/shard's
// concern (its WriteTo/ReadShard), since only that package knows the
// packed record layout; persist owns only the file header and
// staleness check.
package persist

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/tvrank/tvrank/internal/dberr"
	"github.com/tvrank/tvrank/internal/shard"
)

var magic = [8]byte{'T', 'V', 'R', 'A', 'N', 'K', 0, 0}

// formatVersion is bumped whenever the wire layout changes; a mismatch
// invalidates any existing snapshot rather than attempting to migrate it.
// v2 added the id width byte to packedRecord's wire form so a
// natural-width id round-trips through a reload.
const formatVersion = 2

// Meta is the snapshot's header, used to decide whether a stored
// snapshot is still usable without reading the shard bodies.
type Meta struct {
	ShardCount     int
	BasicsModTime  time.Time
	RatingsModTime time.Time
}

// Save writes shards to path atomically (via a temp file + rename, the
// same pattern internal/cache uses for downloads).
func Save(path string, shards []*shard.Shard, basicsModTime, ratingsModTime time.Time) error {
	tmpPath := path + ".part"
	f, err := os.Create(tmpPath)
	if err != nil {
		return dberr.Wrap(dberr.CacheIoFailed, "create snapshot temp file", err)
	}

	w := bufio.NewWriterSize(f, 1<<20)
	if err := writeHeader(w, len(shards), basicsModTime, ratingsModTime); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	for _, sh := range shards {
		if _, err := sh.WriteTo(w); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return dberr.Wrap(dberr.CacheIoFailed, "write shard snapshot", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return dberr.Wrap(dberr.CacheIoFailed, "flush snapshot", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return dberr.Wrap(dberr.CacheIoFailed, "close snapshot", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return dberr.Wrap(dberr.CacheIoFailed, "finalize snapshot", err)
	}
	return nil
}

// ReadMeta reads only the snapshot header, without decoding any shard
// bodies — used by the engine, after Load has rejected a snapshot, to
// log which check failed.
func ReadMeta(path string) (Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return Meta{}, dberr.Wrap(dberr.CacheIoFailed, "open snapshot", err)
	}
	defer f.Close()
	return readHeader(bufio.NewReader(f))
}

// Load reads a full snapshot, validating it against the expected shard
// count and source modification times. A mismatch on any of these is
// reported as SnapshotIncompatible so the caller falls back to
// rebuilding from the TSV dumps instead of trusting stale data (spec
// §4.5: "any mismatch invalidates the whole snapshot").
func Load(path string, wantShardCount int, basicsModTime, ratingsModTime time.Time) ([]*shard.Shard, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dberr.Wrap(dberr.CacheIoFailed, "open snapshot", err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)
	meta, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if meta.ShardCount != wantShardCount {
		return nil, dberr.New(dberr.SnapshotIncompatible, "snapshot shard count does not match configuration")
	}
	if !meta.BasicsModTime.Equal(basicsModTime) || !meta.RatingsModTime.Equal(ratingsModTime) {
		return nil, dberr.New(dberr.SnapshotIncompatible, "snapshot is older than the current source dumps")
	}

	shards := make([]*shard.Shard, meta.ShardCount)
	for i := range shards {
		sh, err := shard.ReadShard(r, i)
		if err != nil {
			return nil, err
		}
		shards[i] = sh
	}
	return shards, nil
}

func writeHeader(w io.Writer, shardCount int, basicsModTime, ratingsModTime time.Time) error {
	if _, err := w.Write(magic[:]); err != nil {
		return dberr.Wrap(dberr.CacheIoFailed, "write snapshot magic", err)
	}
	fields := []uint64{
		uint64(formatVersion),
		uint64(shardCount),
		uint64(basicsModTime.UnixNano()),
		uint64(ratingsModTime.UnixNano()),
	}
	for _, v := range fields {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], v)
		if _, err := w.Write(buf[:]); err != nil {
			return dberr.Wrap(dberr.CacheIoFailed, "write snapshot header", err)
		}
	}
	return nil
}

func readHeader(r io.Reader) (Meta, error) {
	var gotMagic [8]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return Meta{}, dberr.Wrap(dberr.CacheCorrupt, "read snapshot magic", err)
	}
	if gotMagic != magic {
		return Meta{}, dberr.New(dberr.SnapshotIncompatible, "not a tvrank snapshot file")
	}

	var buf [8]byte
	readU64 := func() (uint64, error) {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, dberr.Wrap(dberr.CacheCorrupt, "read snapshot header field", err)
		}
		return binary.LittleEndian.Uint64(buf[:]), nil
	}

	version, err := readU64()
	if err != nil {
		return Meta{}, err
	}
	if version != formatVersion {
		return Meta{}, dberr.New(dberr.SnapshotIncompatible, "snapshot was written by a different format version")
	}
	shardCount, err := readU64()
	if err != nil {
		return Meta{}, err
	}
	basicsNano, err := readU64()
	if err != nil {
		return Meta{}, err
	}
	ratingsNano, err := readU64()
	if err != nil {
		return Meta{}, err
	}

	return Meta{
		ShardCount:     int(shardCount),
		BasicsModTime:  time.Unix(0, int64(basicsNano)),
		RatingsModTime: time.Unix(0, int64(ratingsNano)),
	}, nil
}
