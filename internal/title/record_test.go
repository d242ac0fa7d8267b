package title

import "testing"

func TestRecordTitlePrefersOriginal(t *testing.T) {
	r := Record{PrimaryTitle: "City of God", OriginalTitle: "Cidade de Deus"}
	if got, want := r.Title(), "Cidade de Deus"; got != want {
		t.Fatalf("Title() = %q, want %q", got, want)
	}
}

func TestRecordTitleFallsBackToPrimary(t *testing.T) {
	r := Record{PrimaryTitle: "City of God"}
	if got, want := r.Title(), "City of God"; got != want {
		t.Fatalf("Title() = %q, want %q", got, want)
	}
}

func TestRecordRuntimeFormatting(t *testing.T) {
	short := uint16(45)
	long := uint16(130)
	cases := []struct {
		mins *uint16
		want string
	}{
		{nil, ""},
		{&short, "45m"},
		{&long, "2h10m"},
	}
	for _, c := range cases {
		r := Record{RuntimeMins: c.mins}
		if got := r.Runtime(); got != c.want {
			t.Errorf("Runtime() = %q, want %q", got, c.want)
		}
	}
}

func TestRecordValidateRejectsBackwardsYears(t *testing.T) {
	start, end := uint16(2010), uint16(2005)
	r := Record{StartYear: &start, EndYear: &end}
	if err := r.Validate(); err == nil {
		t.Fatalf("expected an error for end year before start year")
	}
}

func TestRecordValidateRejectsZeroVoteRating(t *testing.T) {
	r := Record{Rating: &Rating{Score: 80, Votes: 0}}
	if err := r.Validate(); err == nil {
		t.Fatalf("expected an error for a rating with zero votes")
	}
}

func TestRecordValidateAcceptsWellFormedRecord(t *testing.T) {
	start, end := uint16(2010), uint16(2015)
	r := Record{StartYear: &start, EndYear: &end, Rating: &Rating{Score: 85, Votes: 1000}}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
