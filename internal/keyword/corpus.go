package keyword

import "sort"

// span locates one title's normalised text within a corpus string.
type span struct {
	start, end int32 // [start, end) byte range within the corpus text
	index      int32 // record index within the owning shard
}

// Corpus is a shard's pre-built, boundary-tracked normalised-title
// text, one for primary titles and one for original titles. Titles are
// concatenated with a separator byte that cannot appear in normalised
// text (internal/title.Normalize emits only [a-z0-9 ]) so patterns
// never span a title boundary.
type Corpus struct {
	primaryText  string
	primarySpans []span

	originalText  string
	originalSpans []span
}

const separator = '\x00'

// Builder assembles a Corpus incrementally during shard construction.
type Builder struct {
	primary  []byte
	pSpans   []span
	original []byte
	oSpans   []span
}

// NewBuilder returns an empty Builder sized for an expected record count.
func NewBuilder(hint int) *Builder {
	return &Builder{
		pSpans: make([]span, 0, hint),
	}
}

// AddPrimary appends a record's normalised primary title.
func (b *Builder) AddPrimary(index int32, normalized string) {
	start := int32(len(b.primary))
	b.primary = append(b.primary, normalized...)
	b.pSpans = append(b.pSpans, span{start: start, end: int32(len(b.primary)), index: index})
	b.primary = append(b.primary, separator)
}

// AddOriginal appends a record's normalised original title. Records
// with no distinct original title are simply omitted.
func (b *Builder) AddOriginal(index int32, normalized string) {
	if normalized == "" {
		return
	}
	start := int32(len(b.original))
	b.original = append(b.original, normalized...)
	b.oSpans = append(b.oSpans, span{start: start, end: int32(len(b.original)), index: index})
	b.original = append(b.original, separator)
}

// Build finalises the Corpus. Spans must already be in increasing
// start-offset order, which holds as long as Add* calls were made in
// ascending append order (the shard builder's merge pass guarantees this).
func (b *Builder) Build() *Corpus {
	return &Corpus{
		primaryText:   string(b.primary),
		primarySpans:  b.pSpans,
		originalText:  string(b.original),
		originalSpans: b.oSpans,
	}
}

// MatchAllPrimary returns, for each normalised keyword, the set of
// record indices whose primary title contains it as a substring, then
// intersects across all keywords (spec §4.7: every keyword must match).
func (c *Corpus) MatchAllPrimary(keywords []string) []int32 {
	return matchAll(c.primaryText, c.primarySpans, keywords)
}

// MatchAllOriginal is MatchAllPrimary over original titles.
func (c *Corpus) MatchAllOriginal(keywords []string) []int32 {
	return matchAll(c.originalText, c.originalSpans, keywords)
}

func matchAll(text string, spans []span, keywords []string) []int32 {
	if len(spans) == 0 || len(keywords) == 0 {
		return nil
	}

	a := newAutomaton(keywords)
	if len(a.patterns) == 0 {
		return nil
	}
	full := uint64(1)<<uint(len(a.patterns)) - 1
	if len(a.patterns) >= 64 {
		full = ^uint64(0) // pathological: 64+ keywords in one query
	}

	hitMask := make(map[int32]uint64)
	a.scan(text, func(patternIndex, end int) {
		sp := spanAt(spans, int32(end))
		if sp == nil {
			return
		}
		hitMask[sp.index] |= 1 << uint(patternIndex)
	})

	var out []int32
	for idx, mask := range hitMask {
		if mask == full {
			out = append(out, idx)
		}
	}
	return out
}

// spanAt finds the span containing byte position pos (the automaton
// reports 0-based end-of-match positions, so pos is the last byte of
// the matched pattern).
func spanAt(spans []span, pos int32) *span {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].end > pos })
	if i >= len(spans) || pos < spans[i].start {
		return nil
	}
	return &spans[i]
}
