package title

import "fmt"

// Rating is a title's score/votes pair. Votes > 0 is an invariant
// whenever a Rating is present (spec §3); the zero value means "no
// rating" and must never be returned on its own — callers test the
// *Rating pointer on Record.
type Rating struct {
	// Score is 0-100: IMDB publishes one decimal digit (e.g. 8.6),
	// pinned here to an integer by multiplying by 10 (spec §9).
	Score uint8
	Votes uint32
}

// Record is the public, fully-materialised title value object (spec
// §3 TitleRecord). It is immutable once constructed: ingestion builds
// one instance per basics row and never mutates it afterward.
type Record struct {
	Id            Id
	Type          Type
	PrimaryTitle  string
	OriginalTitle string // empty when equal to PrimaryTitle
	IsAdult       bool
	StartYear     *uint16
	EndYear       *uint16
	RuntimeMins   *uint16
	Genres        GenreSet
	Rating        *Rating
}

// Title returns the original title when it differs from the primary
// title, else the primary title (spec §3: "omitted when equal").
func (r *Record) Title() string {
	if r.OriginalTitle != "" {
		return r.OriginalTitle
	}
	return r.PrimaryTitle
}

// URL returns the canonical IMDB title page URL.
func (r *Record) URL() string {
	return r.Id.URL()
}

// Runtime formats the runtime as a duration string ("2h3m"), or "" if
// unknown (spec §4.3 display-time operation).
func (r *Record) Runtime() string {
	if r.RuntimeMins == nil {
		return ""
	}
	mins := int(*r.RuntimeMins)
	h, m := mins/60, mins%60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%dm", h, m)
}

// Validate checks the cross-field invariants spec §3 requires of a
// fully-decoded record before it's added to a shard.
func (r *Record) Validate() error {
	if r.StartYear != nil && r.EndYear != nil && *r.EndYear < *r.StartYear {
		return fmt.Errorf("end year %d precedes start year %d", *r.EndYear, *r.StartYear)
	}
	if r.Rating != nil && r.Rating.Votes == 0 {
		return fmt.Errorf("rating present with zero votes")
	}
	return nil
}
