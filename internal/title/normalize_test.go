package title

import "testing"

func TestNormalizeFoldsDiacritics(t *testing.T) {
	if got, want := Normalize("Amélie"), "amelie"; got != want {
		t.Fatalf("Normalize(Amélie) = %q, want %q", got, want)
	}
}

func TestNormalizeExpandsEszett(t *testing.T) {
	if got, want := Normalize("Großstadt"), "grossstadt"; got != want {
		t.Fatalf("Normalize(Großstadt) = %q, want %q", got, want)
	}
}

func TestNormalizeCollapsesPunctuation(t *testing.T) {
	if got, want := Normalize("Spider-Man: Far From Home!"), "spider man far from home"; got != want {
		t.Fatalf("Normalize(...) = %q, want %q", got, want)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	s := "The Lord of the Rings: The Fellowship of the Ring"
	once := Normalize(s)
	twice := Normalize(once)
	if once != twice {
		t.Fatalf("Normalize is not idempotent: %q != %q", once, twice)
	}
}

func TestNormalizeTrimsAndCollapsesWhitespace(t *testing.T) {
	if got, want := Normalize("  City   of   God  "), "city of god"; got != want {
		t.Fatalf("Normalize(...) = %q, want %q", got, want)
	}
}
