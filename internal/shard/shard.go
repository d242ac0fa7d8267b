// Package shard implements the title database's partitioning unit
// (spec §3 Shard, §4.4 Shard Builder C4): a fixed number K of
// independent title partitions, each owning its own record array,
// string arena, and lookup indexes, built once in parallel at startup
// and read-only for the remainder of the process (the shard state
// machine EMPTY -> FILLING -> SORTED -> INDEXED -> READY, spec §4.9).
package shard

import (
	"hash/fnv"

	"github.com/tvrank/tvrank/internal/keyword"
	"github.com/tvrank/tvrank/internal/title"
)

// state is the shard lifecycle state (spec §4.9). It exists for
// documentation and assertion purposes; a Shard is only ever handed to
// callers once READY.
type state uint8

const (
	empty state = iota
	filling
	sorted
	indexed
	ready
)

// Shard is one partition of the title universe, keyed by
// fnv1a(title-id) mod K.
type Shard struct {
	index int
	state state

	arena   *Arena
	records []packedRecord

	idIndex       map[title.Id]int32
	primaryIndex  map[string][]int32
	originalIndex map[string][]int32

	corpus *keyword.Corpus
}

// Index returns the shard's position, 0 <= Index < shardCount.
func (s *Shard) Index() int { return s.index }

// Len returns the number of records the shard holds.
func (s *Shard) Len() int { return len(s.records) }

// Which hashes a title.Id to its owning shard index among shardCount
// shards, via FNV-1a — spec §3 pins this specific algorithm, so no
// pack dependency substitutes for stdlib hash/fnv here.
func Which(id title.Id, shardCount int) int {
	h := fnv.New64a()
	h.Write(id.Bytes())
	return int(h.Sum64() % uint64(shardCount))
}

// ByID returns the record for id if this shard owns it.
func (s *Shard) ByID(id title.Id) (title.Record, bool) {
	i, ok := s.idIndex[id]
	if !ok {
		return title.Record{}, false
	}
	rec := s.decode(&s.records[i])
	return rec, true
}

// ByExactTitle returns every record whose normalised primary or
// original title equals normalizedQuery, deduplicated by id.
func (s *Shard) ByExactTitle(normalizedQuery string) []title.Record {
	seen := make(map[int32]bool)
	var out []title.Record
	for _, i := range s.primaryIndex[normalizedQuery] {
		if !seen[i] {
			seen[i] = true
			out = append(out, s.decode(&s.records[i]))
		}
	}
	for _, i := range s.originalIndex[normalizedQuery] {
		if !seen[i] {
			seen[i] = true
			out = append(out, s.decode(&s.records[i]))
		}
	}
	return out
}

// RecordAt exposes a record's decoded view by its index within the
// shard, used by the keyword matcher's result set (which reports
// indices, not ids, to avoid a second allocation per match).
func (s *Shard) RecordAt(i int32) title.Record {
	return s.decode(&s.records[i])
}

// MatchKeywords returns the indices of records whose normalised
// primary title contains every keyword as a substring, union the
// indices whose normalised original title does (spec §4.6:
// "every keyword appears ... in its normalised primary title OR
// ... in its normalised original title").
func (s *Shard) MatchKeywords(keywords []string) []int32 {
	if s.corpus == nil || len(keywords) == 0 {
		return nil
	}
	primaryHits := s.corpus.MatchAllPrimary(keywords)
	originalHits := s.corpus.MatchAllOriginal(keywords)

	seen := make(map[int32]bool, len(primaryHits)+len(originalHits))
	out := make([]int32, 0, len(primaryHits)+len(originalHits))
	for _, i := range primaryHits {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	for _, i := range originalHits {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out
}

func bytesLess(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
