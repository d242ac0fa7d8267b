package shard

import (
	"encoding/binary"
	"io"

	"github.com/tvrank/tvrank/internal/dberr"
	"github.com/tvrank/tvrank/internal/keyword"
	"github.com/tvrank/tvrank/internal/title"
)

// recordWireSize is the fixed encoded byte length of one packedRecord
// (spec §4.5: "records held in a fixed-width row so the file can be
// mapped without a parse pass").
const recordWireSize = title.WireSize + 1 + 1 + 4 + 2 + 2 + 2 + 1 + 4 + 4*8

// WriteTo encodes the shard's record count, arena length, packed
// records and arena bytes, in that order (internal/persist writes the
// file-level header before the first shard). Indexes and the
// keyword corpus are never persisted — they are cheap to rebuild from
// the decoded records on load and storing them would bloat the
// snapshot for no benefit (spec §4.5 only commits to "records + arena"
// surviving the on-disk round trip).
func (s *Shard) WriteTo(w io.Writer) (int64, error) {
	var n int64
	if err := writeUint32(w, uint32(len(s.records))); err != nil {
		return n, err
	}
	n += 4
	if err := writeUint32(w, uint32(len(s.arena.Bytes()))); err != nil {
		return n, err
	}
	n += 4

	buf := make([]byte, recordWireSize)
	for _, p := range s.records {
		encodeRecord(buf, &p)
		if _, err := w.Write(buf); err != nil {
			return n, err
		}
		n += int64(recordWireSize)
	}

	written, err := w.Write(s.arena.Bytes())
	n += int64(written)
	return n, err
}

// ReadShard decodes one shard block previously written by WriteTo and
// rebuilds its indexes and keyword corpus.
func ReadShard(r io.Reader, index int) (*Shard, error) {
	recordCount, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	arenaLen, err := readUint32(r)
	if err != nil {
		return nil, err
	}

	records := make([]packedRecord, recordCount)
	buf := make([]byte, recordWireSize)
	for i := range records {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, dberr.Wrap(dberr.CacheCorrupt, "read packed record", err)
		}
		records[i] = decodeRecord(buf)
	}

	arenaBytes := make([]byte, arenaLen)
	if _, err := io.ReadFull(r, arenaBytes); err != nil {
		return nil, dberr.Wrap(dberr.CacheCorrupt, "read shard arena", err)
	}

	sh := &Shard{
		index:   index,
		state:   indexed,
		arena:   FromBytes(arenaBytes),
		records: records,
	}
	sh.rebuildIndexes()
	sh.state = ready
	return sh, nil
}

// rebuildIndexes reconstructs the id/title lookup maps and keyword
// corpus from the decoded records — no TSV re-parsing, no
// re-normalisation, since the normalised strings already live in the
// arena.
func (s *Shard) rebuildIndexes() {
	s.idIndex = make(map[title.Id]int32, len(s.records))
	s.primaryIndex = make(map[string][]int32, len(s.records))
	s.originalIndex = make(map[string][]int32)

	corpus := keyword.NewBuilder(len(s.records))
	for i := range s.records {
		p := &s.records[i]
		idx := int32(i)
		s.idIndex[p.Id] = idx

		normPrimary := s.normPrimary(p)
		s.primaryIndex[normPrimary] = append(s.primaryIndex[normPrimary], idx)
		corpus.AddPrimary(idx, normPrimary)

		if p.Original.Length != 0 {
			normOriginal := s.normOriginal(p)
			s.originalIndex[normOriginal] = append(s.originalIndex[normOriginal], idx)
			corpus.AddOriginal(idx, normOriginal)
		}
	}
	s.corpus = corpus.Build()
}

func encodeRecord(buf []byte, p *packedRecord) {
	off := 0
	p.Id.Encode(buf[off:])
	off += title.WireSize
	buf[off] = byte(p.Type)
	off++
	buf[off] = boolByte(p.IsAdult)
	off++
	binary.LittleEndian.PutUint32(buf[off:], uint32(p.Genres))
	off += 4
	binary.LittleEndian.PutUint16(buf[off:], p.StartYear)
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], p.EndYear)
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], p.RuntimeMins)
	off += 2
	buf[off] = p.Score
	off++
	binary.LittleEndian.PutUint32(buf[off:], p.Votes)
	off += 4
	off = putRef(buf, off, p.Primary)
	off = putRef(buf, off, p.Original)
	off = putRef(buf, off, p.NormPrimary)
	off = putRef(buf, off, p.NormOriginal)
}

func decodeRecord(buf []byte) packedRecord {
	var p packedRecord
	off := 0
	p.Id = title.DecodeId(buf[off : off+title.WireSize])
	off += title.WireSize
	p.Type = title.Type(buf[off])
	off++
	p.IsAdult = buf[off] != 0
	off++
	p.Genres = title.GenreSet(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	p.StartYear = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	p.EndYear = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	p.RuntimeMins = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	p.Score = buf[off]
	off++
	p.Votes = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.Primary, off = getRef(buf, off)
	p.Original, off = getRef(buf, off)
	p.NormPrimary, off = getRef(buf, off)
	p.NormOriginal, _ = getRef(buf, off)
	return p
}

func putRef(buf []byte, off int, r Ref) int {
	binary.LittleEndian.PutUint32(buf[off:], r.Offset)
	binary.LittleEndian.PutUint32(buf[off+4:], r.Length)
	return off + 8
}

func getRef(buf []byte, off int) (Ref, int) {
	r := Ref{
		Offset: binary.LittleEndian.Uint32(buf[off:]),
		Length: binary.LittleEndian.Uint32(buf[off+4:]),
	}
	return r, off + 8
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, dberr.Wrap(dberr.CacheCorrupt, "read u32", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
