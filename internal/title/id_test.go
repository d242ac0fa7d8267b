package title

import (
	"testing"

	"github.com/tvrank/tvrank/internal/dberr"
)

func TestParseIdPadsAndRoundTrips(t *testing.T) {
	id, err := ParseId("tt0317248")
	if err != nil {
		t.Fatalf("ParseId returned error: %v", err)
	}
	if got, want := id.String(), "tt0317248"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestParseIdPadsShortIds(t *testing.T) {
	id, err := ParseId("tt1")
	if err != nil {
		t.Fatalf("ParseId returned error: %v", err)
	}
	if got, want := id.String(), "tt0000001"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestParseIdRoundTripsNaturalWidth(t *testing.T) {
	for _, s := range []string{"tt0000001", "tt0133093", "tt1343092", "tt12345678"} {
		id, err := ParseId(s)
		if err != nil {
			t.Fatalf("ParseId(%q): %v", s, err)
		}
		if got := id.String(); got != s {
			t.Fatalf("ParseId(%q).String() = %q, want %q", s, got, s)
		}
	}
}

func TestParseIdRejectsMalformed(t *testing.T) {
	cases := []string{"", "nt123", "tt", "ttabc", "tt123x"}
	for _, c := range cases {
		if _, err := ParseId(c); !dberr.Is(err, dberr.InvalidId) {
			t.Errorf("ParseId(%q) did not return InvalidId, got %v", c, err)
		}
	}
}

func TestParseIdRejectsTooManyDigits(t *testing.T) {
	if _, err := ParseId("tt1234567890"); !dberr.Is(err, dberr.InvalidId) {
		t.Fatalf("expected InvalidId for an overlong id, got %v", err)
	}
}

func TestParseIdBytesMatchesParseId(t *testing.T) {
	viaString, err := ParseId("tt0133093")
	if err != nil {
		t.Fatalf("ParseId: %v", err)
	}
	viaBytes, err := ParseIdBytes([]byte("tt0133093"))
	if err != nil {
		t.Fatalf("ParseIdBytes: %v", err)
	}
	if viaString != viaBytes {
		t.Fatalf("ParseId and ParseIdBytes disagree: %v != %v", viaString, viaBytes)
	}
}

func TestIdURL(t *testing.T) {
	id, _ := ParseId("tt0133093")
	if got, want := id.URL(), "https://www.imdb.com/title/tt0133093/"; got != want {
		t.Fatalf("URL() = %q, want %q", got, want)
	}
}

func TestIdIsZero(t *testing.T) {
	var id Id
	if !id.IsZero() {
		t.Fatalf("zero Id reported as non-zero")
	}
	nonZero, _ := ParseId("tt0000001")
	if nonZero.IsZero() {
		t.Fatalf("non-zero Id reported as zero")
	}
}
