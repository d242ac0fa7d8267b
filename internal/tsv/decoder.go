// Package tsv decodes IMDB's two TSV column schemas (spec §4.2). The
// decoder yields byte-slice views into the caller's owning blob; it
// performs no string allocation of its own — interning is the
// caller's decision (internal/shard does the interning during
// ingestion).
package tsv

import "bytes"

const null = `\N`

// Row is one decoded TSV line, exposed as raw field byte slices so the
// caller chooses what to copy and what to discard.
type Row struct {
	fields [][]byte
}

// Field returns the i-th column, or nil if out of range.
func (r Row) Field(i int) []byte {
	if i < 0 || i >= len(r.fields) {
		return nil
	}
	return r.fields[i]
}

// IsNull reports whether the i-th column is IMDB's null sentinel.
func (r Row) IsNull(i int) bool {
	return bytes.Equal(r.Field(i), []byte(null))
}

// ScanLines splits blob into newline-delimited rows and calls fn for
// each, skipping the header row. fn receives a Row valid only for the
// duration of the call if it chooses not to copy field bytes.
// Malformed rows (wrong column count) are passed to onMalformed
// instead of fn; ScanLines never stops on a malformed row (spec §4.2:
// "skipped with a warning, never fatal").
func ScanLines(blob []byte, expectedFields int, fn func(Row), onMalformed func(lineNo int, raw []byte)) {
	lineNo := 0
	start := 0
	skippedHeader := false

	for i := 0; i <= len(blob); i++ {
		if i < len(blob) && blob[i] != '\n' {
			continue
		}
		line := blob[start:i]
		start = i + 1
		lineNo++

		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if len(line) == 0 {
			continue
		}
		if !skippedHeader {
			skippedHeader = true
			continue
		}

		fields := splitTabs(line)
		if len(fields) != expectedFields {
			if onMalformed != nil {
				onMalformed(lineNo, line)
			}
			continue
		}
		fn(Row{fields: fields})
	}
}

func splitTabs(line []byte) [][]byte {
	fields := make([][]byte, 0, 9)
	start := 0
	for i, b := range line {
		if b == '\t' {
			fields = append(fields, line[start:i])
			start = i + 1
		}
	}
	fields = append(fields, line[start:])
	return fields
}

// ParseUint parses a base-10 byte slice into a uint32. The null
// sentinel and empty input both report ok=false without an error:
// callers treat an absent numeric field as "no value", not malformed.
func ParseUint(b []byte) (value uint32, ok bool) {
	if len(b) == 0 || bytes.Equal(b, []byte(null)) {
		return 0, false
	}
	var v uint32
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint32(c-'0')
	}
	return v, true
}

// ParseBool parses IMDB's "0"/"1" boolean encoding.
func ParseBool(b []byte) (value bool, ok bool) {
	switch {
	case bytes.Equal(b, []byte("0")):
		return false, true
	case bytes.Equal(b, []byte("1")):
		return true, true
	default:
		return false, false
	}
}

// ParseScoreTenths parses IMDB's one-decimal rating ("8.6") into an
// integer 0-100 by multiplying by 10 (spec §9 pinned convention).
func ParseScoreTenths(b []byte) (score uint8, ok bool) {
	dot := bytes.IndexByte(b, '.')
	if dot < 0 || dot != len(b)-2 {
		return 0, false
	}
	whole, ok1 := ParseUint(b[:dot])
	frac, ok2 := ParseUint(b[dot+1:])
	if !ok1 || !ok2 || frac > 9 {
		return 0, false
	}
	total := whole*10 + frac
	if total > 100 {
		return 0, false
	}
	return uint8(total), true
}

// BasicsRow is the decoded shape of a title.basics.tsv row (spec §4.2).
type BasicsRow struct {
	Id             []byte
	TitleType      []byte
	PrimaryTitle   []byte
	OriginalTitle  []byte
	IsAdult        bool
	StartYear      uint32
	HasStartYear   bool
	EndYear        uint32
	HasEndYear     bool
	RuntimeMinutes uint32
	HasRuntime     bool
	Genres         []byte
}

// DecodeBasics decodes a title.basics.tsv row. The nine expected
// columns are: tconst, titleType, primaryTitle, originalTitle,
// isAdult, startYear, endYear, runtimeMinutes, genres.
func DecodeBasics(r Row) (BasicsRow, bool) {
	var out BasicsRow
	out.Id = r.Field(0)
	out.TitleType = r.Field(1)
	out.PrimaryTitle = r.Field(2)
	out.OriginalTitle = r.Field(3)

	adult, ok := ParseBool(r.Field(4))
	if !ok {
		return out, false
	}
	out.IsAdult = adult

	if sy, ok := ParseUint(r.Field(5)); ok {
		out.StartYear, out.HasStartYear = sy, true
	}
	if ey, ok := ParseUint(r.Field(6)); ok {
		out.EndYear, out.HasEndYear = ey, true
	}
	if rt, ok := ParseUint(r.Field(7)); ok {
		out.RuntimeMinutes, out.HasRuntime = rt, true
	}
	out.Genres = r.Field(8)

	if len(out.Id) == 0 || len(out.PrimaryTitle) == 0 {
		return out, false
	}
	return out, true
}

// RatingsRow is the decoded shape of a title.ratings.tsv row.
type RatingsRow struct {
	Id    []byte
	Score uint8
	Votes uint32
}

// DecodeRatings decodes a title.ratings.tsv row: tconst, averageRating, numVotes.
func DecodeRatings(r Row) (RatingsRow, bool) {
	var out RatingsRow
	out.Id = r.Field(0)

	score, ok := ParseScoreTenths(r.Field(1))
	if !ok {
		return out, false
	}
	votes, ok := ParseUint(r.Field(2))
	if !ok || votes == 0 {
		return out, false
	}
	out.Score, out.Votes = score, votes
	return out, true
}
