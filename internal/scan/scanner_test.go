package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tvrank/tvrank/internal/dberr"
	"github.com/tvrank/tvrank/internal/query"
	"github.com/tvrank/tvrank/internal/shard"
	"github.com/tvrank/tvrank/internal/title"
)

const testBasics = "tconst\ttitleType\tprimaryTitle\toriginalTitle\tisAdult\tstartYear\tendYear\truntimeMinutes\tgenres\n" +
	"tt0317248\tmovie\tCity of God\tCidade de Deus\t0\t2002\t\\N\t130\tCrime,Drama\n" +
	"tt0133093\tmovie\tThe Matrix\tThe Matrix\t0\t1999\t\\N\t136\tAction,Sci-Fi\n" +
	"tt0944947\ttvSeries\tGame of Thrones\tGame of Thrones\t0\t2011\t2019\t\\N\tAction,Adventure,Drama\n" +
	"tt0133094\tmovie\tThe Matrix\tThe Matrix\t0\t2021\t\\N\t148\tAction,Sci-Fi\n"

const testRatings = "tconst\taverageRating\tnumVotes\n" +
	"tt0317248\t8.6\t800000\n" +
	"tt0133093\t8.7\t2000000\n" +
	"tt0944947\t9.2\t2200000\n" +
	"tt0133094\t5.7\t200000\n"

func buildTestService(t *testing.T) *query.Service {
	t.Helper()
	shards, err := shard.Build(context.Background(), []byte(testBasics), []byte(testRatings), shard.BuildOptions{
		ShardCount: 3,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return query.New(shards)
}

func TestParseDirNameWithYear(t *testing.T) {
	got, year, hasYear := parseDirName("City of God (2002)")
	if got != "City of God" || year != 2002 || !hasYear {
		t.Fatalf("parseDirName = (%q, %d, %v)", got, year, hasYear)
	}
}

func TestParseDirNameWithoutYear(t *testing.T) {
	got, _, hasYear := parseDirName("City of God")
	if got != "City of God" || hasYear {
		t.Fatalf("parseDirName = (%q, hasYear=%v), want no year", got, hasYear)
	}
}

func TestScanResolvesUnambiguousMatch(t *testing.T) {
	svc := buildTestService(t)
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "City of God (2002)"))

	matches, err := Scan(context.Background(), root, svc, title.Movies)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].Status != StatusMatched || matches[0].Record == nil {
		t.Fatalf("unexpected match: %+v", matches[0])
	}
	if matches[0].Record.Id.String() != "tt0317248" {
		t.Fatalf("matched wrong record: %+v", matches[0].Record)
	}
}

func TestScanReportsAmbiguousMatch(t *testing.T) {
	svc := buildTestService(t)
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "The Matrix"))

	matches, err := Scan(context.Background(), root, svc, title.Movies)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(matches) != 1 || matches[0].Status != StatusAmbiguous {
		t.Fatalf("expected an ambiguous match, got %+v", matches)
	}
	if len(matches[0].Matches) != 2 {
		t.Fatalf("expected 2 candidate records, got %d", len(matches[0].Matches))
	}
}

func TestScanReportsNotFound(t *testing.T) {
	svc := buildTestService(t)
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "Some Unknown Film (2099)"))

	matches, err := Scan(context.Background(), root, svc, title.Movies)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(matches) != 1 || matches[0].Status != StatusNotFound {
		t.Fatalf("expected not found, got %+v", matches)
	}
}

func TestScanHonorsOverrideFile(t *testing.T) {
	svc := buildTestService(t)
	root := t.TempDir()
	dir := filepath.Join(root, "Whatever This Folder Is Called")
	mustMkdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, overrideFilename), []byte(`{"imdb":{"id":"tt0944947"}}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	matches, err := Scan(context.Background(), root, svc, title.Series)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(matches) != 1 || matches[0].Status != StatusOverride {
		t.Fatalf("expected an override match, got %+v", matches)
	}
	if matches[0].Record.Id.String() != "tt0944947" {
		t.Fatalf("override resolved to wrong record: %+v", matches[0].Record)
	}
}

func TestScanWarnsOnMalformedOverride(t *testing.T) {
	svc := buildTestService(t)
	root := t.TempDir()
	dir := filepath.Join(root, "Broken Override")
	mustMkdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, overrideFilename), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	matches, err := Scan(context.Background(), root, svc, title.Movies)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(matches) != 1 || matches[0].Status != StatusUnparsed || len(matches[0].Warnings) == 0 {
		t.Fatalf("expected an unparsed match with a warning, got %+v", matches)
	}
}

func TestScanWarnsWhenYearIsMissingFromDirName(t *testing.T) {
	svc := buildTestService(t)
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "City of God"))

	matches, err := Scan(context.Background(), root, svc, title.Movies)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(matches) != 1 || len(matches[0].Warnings) == 0 {
		t.Fatalf("expected a warning about the missing year, got %+v", matches)
	}
}

func TestScanDescendsIntoYearlessDirWithNoExactHit(t *testing.T) {
	svc := buildTestService(t)
	root := t.TempDir()
	collection := filepath.Join(root, "My Movie Collection")
	mustMkdir(t, filepath.Join(collection, "City of God (2002)"))

	matches, err := Scan(context.Background(), root, svc, title.Movies)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 (descended into the collection folder)", len(matches))
	}
	if matches[0].Status != StatusMatched || matches[0].Path != filepath.Join(collection, "City of God (2002)") {
		t.Fatalf("expected a match inside the collection folder, got %+v", matches[0])
	}
}

func TestScanDoesNotDescendPastAYearedNotFound(t *testing.T) {
	svc := buildTestService(t)
	root := t.TempDir()
	dir := filepath.Join(root, "Some Unknown Film (2099)")
	mustMkdir(t, filepath.Join(dir, "City of God (2002)"))

	matches, err := Scan(context.Background(), root, svc, title.Movies)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(matches) != 1 || matches[0].Status != StatusNotFound {
		t.Fatalf("a year-bearing not-found directory should not be descended into, got %+v", matches)
	}
}

func TestScanSkipsHiddenDirectories(t *testing.T) {
	svc := buildTestService(t)
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, ".hidden"))

	matches, err := Scan(context.Background(), root, svc, title.Movies)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected hidden directories to be skipped, got %+v", matches)
	}
}

func TestMarkRefusesToOverwriteWithoutForce(t *testing.T) {
	dir := t.TempDir()
	id, _ := title.ParseId("tt0133093")
	if err := Mark(dir, id, false); err != nil {
		t.Fatalf("first Mark: %v", err)
	}
	if err := Mark(dir, id, false); !dberr.Is(err, dberr.ScanMarkExists) {
		t.Fatalf("expected ScanMarkExists, got %v", err)
	}
}

func TestMarkOverwritesWithForce(t *testing.T) {
	dir := t.TempDir()
	first, _ := title.ParseId("tt0133093")
	second, _ := title.ParseId("tt0317248")
	if err := Mark(dir, first, false); err != nil {
		t.Fatalf("first Mark: %v", err)
	}
	if err := Mark(dir, second, true); err != nil {
		t.Fatalf("forced Mark: %v", err)
	}

	ov, ok := readOverride(dir)
	if !ok {
		t.Fatalf("override file missing after forced Mark")
	}
	if ov.Imdb.Id != second.String() {
		t.Fatalf("override id = %q, want %q", ov.Imdb.Id, second.String())
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("MkdirAll(%q): %v", path, err)
	}
}
