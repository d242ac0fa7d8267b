// Package cache implements the persistent cache lifecycle (spec §4.1,
// C1): fetching the two IMDB TSV dumps over HTTP, keeping them fresh
// on a 30-day window, and decompressing them into heap-resident byte
// blobs for the ingestion pipeline.
//
// The two files are fetched one after the other. The HTTP GET itself is
// grounded on JustinTDCT-CineVault's internal/metadata/client.go
// retry-loop idiom (replaced here with avast/retry-go, a dependency
// already present in the retrieved pack's autobrr-qui go.mod).
package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go"
	"github.com/klauspost/compress/gzip"

	"github.com/tvrank/tvrank/internal/dberr"
	"github.com/tvrank/tvrank/internal/progress"
)

const (
	baseURL          = "https://datasets.imdbws.com/"
	freshnessWindow  = 30 * 24 * time.Hour
	fetchTimeout     = 5 * time.Minute
	basicsFilename   = "title.basics.tsv.gz"
	ratingsFilename  = "title.ratings.tsv.gz"
	snapshotFilename = "db.bin"
)

// Dumps holds the two decompressed IMDB TSV blobs plus the on-disk
// mtimes of their compressed source files, which Open's caller threads
// into C5's snapshot-staleness check (spec §4.5).
type Dumps struct {
	Basics         []byte
	Ratings        []byte
	BasicsModTime  time.Time
	RatingsModTime time.Time
}

// Store owns the on-disk cache directory for the process lifetime.
type Store struct {
	dir  string
	sink progress.Sink
}

// New returns a Store rooted at dir, creating it if absent.
func New(dir string, sink progress.Sink) (*Store, error) {
	if sink == nil {
		sink = progress.Nop{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dberr.Wrap(dberr.CacheIoFailed, "create cache dir", err)
	}
	return &Store{dir: dir, sink: sink}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// SnapshotPath returns the path of the binary shard snapshot (C5).
func (s *Store) SnapshotPath() string {
	return filepath.Join(s.dir, snapshotFilename)
}

// DumpPaths returns the on-disk paths of the two compressed source
// dumps, used by callers that want to freshness-check them without a
// full Open (e.g. the refresh scheduler's cheap poll).
func (s *Store) DumpPaths() (basicsPath, ratingsPath string) {
	return filepath.Join(s.dir, basicsFilename), filepath.Join(s.dir, ratingsFilename)
}

// Open materialises both raw TSV blobs, fetching whichever is
// missing or stale (spec §4.1). forceUpdate bypasses the freshness
// check for both files.
func (s *Store) Open(ctx context.Context, forceUpdate bool) (*Dumps, error) {
	basicsPath := filepath.Join(s.dir, basicsFilename)
	ratingsPath := filepath.Join(s.dir, ratingsFilename)

	if err := s.ensureFresh(ctx, basicsFilename, basicsPath, forceUpdate); err != nil {
		return nil, err
	}
	if err := s.ensureFresh(ctx, ratingsFilename, ratingsPath, forceUpdate); err != nil {
		return nil, err
	}

	basicsInfo, err := os.Stat(basicsPath)
	if err != nil {
		return nil, dberr.Wrap(dberr.CacheIoFailed, "stat basics file", err)
	}
	ratingsInfo, err := os.Stat(ratingsPath)
	if err != nil {
		return nil, dberr.Wrap(dberr.CacheIoFailed, "stat ratings file", err)
	}

	basics, err := s.decompress(basicsFilename, basicsPath)
	if err != nil {
		return nil, err
	}
	ratings, err := s.decompress(ratingsFilename, ratingsPath)
	if err != nil {
		return nil, err
	}

	return &Dumps{
		Basics:         basics,
		Ratings:        ratings,
		BasicsModTime:  basicsInfo.ModTime(),
		RatingsModTime: ratingsInfo.ModTime(),
	}, nil
}

// IsFresh reports whether the file at path exists and was modified
// within the 30-day freshness window (spec §4.1 step 1).
func IsFresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < freshnessWindow
}

func (s *Store) ensureFresh(ctx context.Context, name, path string, forceUpdate bool) error {
	if !forceUpdate && IsFresh(path) {
		return nil
	}
	return s.fetch(ctx, name, path)
}

// fetch streams name from baseURL to a temporary file, then renames it
// into place; a partial download never clobbers an existing good file
// (spec §4.1 step 2). Transient failures are retried with backoff via
// avast/retry-go, capped at 3 attempts.
func (s *Store) fetch(ctx context.Context, name, destPath string) error {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	tmpPath := destPath + ".part"

	err := retry.Do(
		func() error {
			return s.fetchOnce(fetchCtx, name, tmpPath)
		},
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool {
			return dberr.Is(err, dberr.CacheFetchFailed)
		}),
	)
	if err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return dberr.Wrap(dberr.CacheIoFailed, "finalize download "+name, err)
	}
	return nil
}

func (s *Store) fetchOnce(ctx context.Context, name, tmpPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+name, nil)
	if err != nil {
		return dberr.Wrap(dberr.CacheFetchFailed, "build request for "+name, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return dberr.Wrap(dberr.CacheFetchFailed, "GET "+name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return dberr.New(dberr.CacheFetchFailed, fmt.Sprintf("GET %s: status %d", name, resp.StatusCode))
	}

	out, err := os.Create(tmpPath)
	if err != nil {
		return dberr.Wrap(dberr.CacheIoFailed, "create temp file for "+name, err)
	}
	defer out.Close()

	var contentLength *int64
	if resp.ContentLength > 0 {
		cl := resp.ContentLength
		contentLength = &cl
	}
	s.sink.Notify(progress.Message{Kind: progress.DownloadInit, Name: name, ContentLength: contentLength})

	buf := make([]byte, 64*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return dberr.Wrap(dberr.CacheIoFailed, "write "+name, writeErr)
			}
			s.sink.Notify(progress.Message{Kind: progress.DownloadProgress, Name: name, Delta: int64(n)})
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return dberr.Wrap(dberr.CacheFetchFailed, "read body of "+name, readErr)
		}
	}

	s.sink.Notify(progress.Message{Kind: progress.DownloadDone, Name: name})
	return nil
}

// decompress fully inflates a gzip file into a heap-resident buffer,
// reporting extraction progress (spec §4.1 step 3). Uses
// klauspost/compress/gzip, a drop-in faster reader than stdlib's,
// already present in the retrieved pack's autobrr-qui go.mod.
func (s *Store) decompress(name, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dberr.Wrap(dberr.CacheIoFailed, "open "+name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, dberr.Wrap(dberr.CacheIoFailed, "stat "+name, err)
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, dberr.Wrap(dberr.CacheCorrupt, "open gzip stream for "+name, err)
	}
	defer gz.Close()

	compressedSize := info.Size()
	s.sink.Notify(progress.Message{Kind: progress.ExtractInit, Name: name, ContentLength: &compressedSize})

	buf := make([]byte, 0, compressedSize*3) // IMDB dumps compress roughly 3:1
	chunk := make([]byte, 256*1024)
	for {
		n, readErr := gz.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			s.sink.Notify(progress.Message{Kind: progress.ExtractProgress, Name: name, Delta: int64(n)})
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, dberr.Wrap(dberr.CacheCorrupt, "inflate "+name, readErr)
		}
	}

	s.sink.Notify(progress.Message{Kind: progress.ExtractDone, Name: name})
	return buf, nil
}
