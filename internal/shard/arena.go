package shard

// Arena is a per-shard byte arena holding interned string payloads
// addressed by 32-bit offset/length pairs (spec §4.3, §9: "per-shard
// byte arena with 32-bit offsets replaces per-record heap allocation").
type Arena struct {
	buf []byte
}

// Ref addresses a string stored in an Arena.
type Ref struct {
	Offset uint32
	Length uint32
}

// NewArena returns an empty arena pre-sized to hint bytes.
func NewArena(hint int) *Arena {
	return &Arena{buf: make([]byte, 0, hint)}
}

// Intern appends s to the arena and returns its Ref. Two equal
// strings interned twice get two separate, independent Refs: the
// arena does not deduplicate, since titles are rarely repeated and a
// dedup map would cost more than the savings on this corpus.
func (a *Arena) Intern(s string) Ref {
	off := uint32(len(a.buf))
	a.buf = append(a.buf, s...)
	return Ref{Offset: off, Length: uint32(len(s))}
}

// String resolves a Ref back to its string.
func (a *Arena) String(r Ref) string {
	if r.Length == 0 {
		return ""
	}
	return string(a.buf[r.Offset : r.Offset+r.Length])
}

// Bytes returns the raw arena contents (for persistence, C5).
func (a *Arena) Bytes() []byte { return a.buf }

// FromBytes wraps an existing byte slice as an arena (used when
// loading a persisted snapshot; the bytes are owned by the caller and
// never mutated afterward).
func FromBytes(b []byte) *Arena { return &Arena{buf: b} }
