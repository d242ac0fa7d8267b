// Package title implements the title database's data model (spec §3):
// TitleId, TitleType, Genre and the immutable TitleRecord, plus the
// title-normalisation surrogate used by exact and keyword search.
package title

import (
	"fmt"
	"regexp"

	"github.com/tvrank/tvrank/internal/dberr"
)

// idWidth is the number of ASCII digit bytes held in Id's comparison
// form, right-aligned and zero-padded so ordering and hashing reduce
// to a plain bytewise operation (spec §3 invariant). IMDB's dumps
// never exceed this as of the 2026 snapshot; ids with more digits are
// rejected as InvalidId rather than silently truncated.
const idWidth = 9

// minWidth is IMDB's natural zero-padded floor ("tt0000001"): every
// real id is written with at least this many digits, so String()
// never reports fewer even when the parsed input had fewer.
const minWidth = 7

// wireSize is the number of bytes Encode/DecodeId use on the wire.
const wireSize = idWidth + 1

// Id is the canonical identifier for one IMDB title: the zero-padded
// decimal suffix of an IMDB id held as fixed-width ASCII for bytewise
// comparison, plus the digit count the id was originally written
// with, so String() reproduces it exactly (spec Testable Property 1:
// by_id(T).id == T).
type Id struct {
	digits [idWidth]byte
	width  uint8
}

var idPattern = regexp.MustCompile(`^tt([0-9]+)$`)

// ParseId validates and canonicalises an IMDB id string ("tt" followed
// by ASCII digits). Strings with trailing non-digit characters, or
// more digits than idWidth can hold, are rejected as InvalidId.
func ParseId(s string) (Id, error) {
	m := idPattern.FindStringSubmatch(s)
	if m == nil {
		return Id{}, dberr.New(dberr.InvalidId, fmt.Sprintf("malformed imdb id: %q", s))
	}
	return packDigits([]byte(m[1]), s)
}

// ParseIdBytes is the byte-slice-view equivalent of ParseId, used by
// the zero-allocating TSV decoder (C2) to avoid a string conversion on
// the hot ingest path.
func ParseIdBytes(b []byte) (Id, error) {
	if len(b) < 3 || b[0] != 't' || b[1] != 't' {
		return Id{}, dberr.New(dberr.InvalidId, fmt.Sprintf("malformed imdb id: %q", b))
	}
	digits := b[2:]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return Id{}, dberr.New(dberr.InvalidId, fmt.Sprintf("malformed imdb id: %q", b))
		}
	}
	return packDigits(digits, string(b))
}

// packDigits zero-pads digits into the idWidth-byte comparison form
// and records its natural display width, floored at minWidth.
func packDigits(digits []byte, original string) (Id, error) {
	if len(digits) == 0 || len(digits) > idWidth {
		return Id{}, dberr.New(dberr.InvalidId, fmt.Sprintf("imdb id too long: %q", original))
	}
	var id Id
	pad := idWidth - len(digits)
	for i := 0; i < pad; i++ {
		id.digits[i] = '0'
	}
	copy(id.digits[pad:], digits)
	width := len(digits)
	if width < minWidth {
		width = minWidth
	}
	id.width = uint8(width)
	return id, nil
}

// String reconstructs the canonical "ttNNNNNNN" form at id's original
// digit width.
func (id Id) String() string {
	return "tt" + string(id.digits[idWidth-int(id.width):])
}

// URL returns the canonical IMDB title page URL (spec §4.3).
func (id Id) URL() string {
	return "https://www.imdb.com/title/" + id.String() + "/"
}

// IsZero reports whether id is the zero value (used to signal "no id").
func (id Id) IsZero() bool {
	return id == Id{}
}

// Bytes returns id's zero-padded, idWidth-byte comparison form, used
// for shard hashing and ordering. Never use it for display — it
// always pads to idWidth regardless of id's original digit count.
func (id Id) Bytes() []byte {
	return id.digits[:]
}

// Encode writes id's WireSize-byte on-disk form into buf[:WireSize] (spec §4.5
// binary persistence, C5): the comparison digits followed by the
// width byte needed to reconstruct String() after a reload.
func (id Id) Encode(buf []byte) {
	copy(buf, id.digits[:])
	buf[idWidth] = id.width
}

// DecodeId reconstructs an Id from WireSize bytes previously written
// by Encode.
func DecodeId(buf []byte) Id {
	var id Id
	copy(id.digits[:], buf[:idWidth])
	id.width = buf[idWidth]
	return id
}

// WireSize is the number of bytes Encode/DecodeId consume, exported so
// callers laying out fixed-width records (internal/shard's packed
// record codec) can size their buffers around it.
const WireSize = wireSize
