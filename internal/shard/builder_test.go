package shard

import (
	"context"
	"testing"

	"github.com/tvrank/tvrank/internal/title"
)

const testBasics = "tconst\ttitleType\tprimaryTitle\toriginalTitle\tisAdult\tstartYear\tendYear\truntimeMinutes\tgenres\n" +
	"tt0317248\tmovie\tCity of God\tCidade de Deus\t0\t2002\t\\N\t130\tCrime,Drama\n" +
	"tt0133093\tmovie\tThe Matrix\tThe Matrix\t0\t1999\t\\N\t136\tAction,Sci-Fi\n" +
	"tt0944947\ttvSeries\tGame of Thrones\tGame of Thrones\t0\t2011\t2019\t\\N\tAction,Adventure,Drama\n" +
	"tt1234567\tshort\tUnrated Oddity\tUnrated Oddity\t0\t2005\t\\N\t10\tComedy\n"

const testRatings = "tconst\taverageRating\tnumVotes\n" +
	"tt0317248\t8.6\t800000\n" +
	"tt0133093\t8.7\t2000000\n" +
	"tt0944947\t9.2\t2200000\n"

func buildTestShards(t *testing.T, shardCount int) []*Shard {
	t.Helper()
	shards, err := Build(context.Background(), []byte(testBasics), []byte(testRatings), BuildOptions{
		ShardCount: shardCount,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return shards
}

func findByID(t *testing.T, shards []*Shard, id string) (title.Record, bool) {
	t.Helper()
	parsed, err := title.ParseId(id)
	if err != nil {
		t.Fatalf("ParseId(%q): %v", id, err)
	}
	return shards[Which(parsed, len(shards))].ByID(parsed)
}

func TestBuildAssignsEveryRecordToExactlyOneShard(t *testing.T) {
	shards := buildTestShards(t, 3)
	total := 0
	for _, sh := range shards {
		total += sh.Len()
	}
	if total != 4 {
		t.Fatalf("total records across shards = %d, want 4", total)
	}
}

func TestBuildAttachesRatings(t *testing.T) {
	shards := buildTestShards(t, 2)
	rec, ok := findByID(t, shards, "tt0133093")
	if !ok {
		t.Fatalf("The Matrix not found")
	}
	if rec.Rating == nil || rec.Rating.Score != 87 || rec.Rating.Votes != 2000000 {
		t.Fatalf("unexpected rating: %+v", rec.Rating)
	}
}

func TestBuildLeavesUnratedRecordsWithNilRating(t *testing.T) {
	shards := buildTestShards(t, 2)
	rec, ok := findByID(t, shards, "tt1234567")
	if !ok {
		t.Fatalf("unrated record not found")
	}
	if rec.Rating != nil {
		t.Fatalf("expected nil Rating, got %+v", rec.Rating)
	}
}

func TestBuildDropsOriginalTitleWhenEqualToPrimary(t *testing.T) {
	shards := buildTestShards(t, 2)
	rec, ok := findByID(t, shards, "tt0133093")
	if !ok {
		t.Fatalf("The Matrix not found")
	}
	if rec.OriginalTitle != "" {
		t.Fatalf("expected empty OriginalTitle, got %q", rec.OriginalTitle)
	}
}

func TestByExactTitleMatchesOriginalTitle(t *testing.T) {
	shards := buildTestShards(t, 4)
	for _, sh := range shards {
		if recs := sh.ByExactTitle("cidade de deus"); len(recs) == 1 {
			if recs[0].Id.String() != "tt0317248" {
				t.Fatalf("unexpected match: %+v", recs[0])
			}
			return
		}
	}
	t.Fatalf("no shard matched the normalised original title")
}

func TestMatchKeywordsRequiresAllKeywords(t *testing.T) {
	shards := buildTestShards(t, 4)
	var hits int
	for _, sh := range shards {
		hits += len(sh.MatchKeywords([]string{"game", "thrones"}))
	}
	if hits != 1 {
		t.Fatalf("MatchKeywords(game, thrones) matched %d records, want 1", hits)
	}
}

func TestWhichIsDeterministic(t *testing.T) {
	id, _ := title.ParseId("tt0317248")
	a := Which(id, 4)
	b := Which(id, 4)
	if a != b {
		t.Fatalf("Which is not deterministic: %d != %d", a, b)
	}
}
