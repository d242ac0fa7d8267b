package shard

import "github.com/tvrank/tvrank/internal/title"

// packedRecord is the compact, cache-line-friendly on-shard
// representation of a title.Record: fixed scalars plus arena
// references for the two variable-length strings (spec §4.3: "~32
// bytes plus its string payload"). 0 is used as the "absent" sentinel
// for startYear/endYear/runtime since year/runtime 0 never occurs in
// the dump; Votes == 0 likewise means "no rating".
type packedRecord struct {
	Id            title.Id
	Type          title.Type
	IsAdult       bool
	Genres        title.GenreSet
	StartYear     uint16
	EndYear       uint16
	RuntimeMins   uint16
	Score         uint8
	Votes         uint32
	Primary       Ref
	Original      Ref
	NormPrimary   Ref
	NormOriginal  Ref
}

// decode materialises the public title.Record view, resolving arena
// references against the owning Shard.
func (s *Shard) decode(p *packedRecord) title.Record {
	r := title.Record{
		Id:           p.Id,
		Type:         p.Type,
		PrimaryTitle: s.arena.String(p.Primary),
		IsAdult:      p.IsAdult,
		Genres:       p.Genres,
	}
	if p.Original.Length != 0 {
		r.OriginalTitle = s.arena.String(p.Original)
	}
	if p.StartYear != 0 {
		y := p.StartYear
		r.StartYear = &y
	}
	if p.EndYear != 0 {
		y := p.EndYear
		r.EndYear = &y
	}
	if p.RuntimeMins != 0 {
		m := p.RuntimeMins
		r.RuntimeMins = &m
	}
	if p.Votes != 0 {
		r.Rating = &title.Rating{Score: p.Score, Votes: p.Votes}
	}
	return r
}

func (s *Shard) normPrimary(p *packedRecord) string  { return s.arena.String(p.NormPrimary) }
func (s *Shard) normOriginal(p *packedRecord) string {
	if p.NormOriginal.Length == 0 {
		return ""
	}
	return s.arena.String(p.NormOriginal)
}
