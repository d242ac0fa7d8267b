package shard

import (
	"bytes"
	"testing"
)

func TestWriteToReadShardRoundTrip(t *testing.T) {
	shards := buildTestShards(t, 2)

	for _, original := range shards {
		var buf bytes.Buffer
		if _, err := original.WriteTo(&buf); err != nil {
			t.Fatalf("WriteTo: %v", err)
		}

		decoded, err := ReadShard(&buf, original.index)
		if err != nil {
			t.Fatalf("ReadShard: %v", err)
		}

		if decoded.Len() != original.Len() {
			t.Fatalf("record count = %d, want %d", decoded.Len(), original.Len())
		}

		for i := range original.records {
			origRec := original.decode(&original.records[i])
			newRec, ok := decoded.ByID(origRec.Id)
			if !ok {
				t.Fatalf("id %v missing after round trip", origRec.Id)
			}
			if newRec.PrimaryTitle != origRec.PrimaryTitle {
				t.Errorf("PrimaryTitle = %q, want %q", newRec.PrimaryTitle, origRec.PrimaryTitle)
			}
			if (newRec.Rating == nil) != (origRec.Rating == nil) {
				t.Errorf("rating presence mismatch for %v", origRec.Id)
			}
		}

		// keyword matching must keep working off the rebuilt corpus.
		if len(decoded.MatchKeywords([]string{"matrix"})) == 0 && len(original.MatchKeywords([]string{"matrix"})) > 0 {
			t.Errorf("keyword matching lost across round trip")
		}
	}
}
