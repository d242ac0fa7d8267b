// Package scan implements the directory scanner (spec §4.8, C8): given
// a root directory whose immediate subdirectories are named after
// movies or shows ("Sopranos, The (1999)"), resolve each one to a
// title.Record via the query service, honoring a per-directory
// "tvrank.json" override file that pins an exact id.
//
// Grounded on autobrr-qui's internal/services/dirscan/scanner.go
// (os.ReadDir root walk, skip dotfiles, one Searchee per subdirectory)
// trimmed of the media-file/hardlink machinery that scanner solves for
// a different problem (matching release folders to torrent clients).
package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tvrank/tvrank/internal/dberr"
	"github.com/tvrank/tvrank/internal/query"
	"github.com/tvrank/tvrank/internal/title"
)

const overrideFilename = "tvrank.json"

var dirNamePattern = regexp.MustCompile(`^(.*?)\s*\((\d{4})\)$`)

// override is the on-disk shape of a tvrank.json mark file.
type override struct {
	Imdb struct {
		Id string `json:"id"`
	} `json:"imdb"`
}

// MatchStatus classifies how a directory was resolved.
type MatchStatus int

const (
	// StatusOverride: resolved via an existing tvrank.json.
	StatusOverride MatchStatus = iota
	// StatusMatched: resolved to exactly one record by name/year.
	StatusMatched
	// StatusAmbiguous: more than one record matched.
	StatusAmbiguous
	// StatusNotFound: no record matched.
	StatusNotFound
	// StatusUnparsed: the directory name left no title to query (e.g.
	// "(2002)"), or its tvrank.json could not be used.
	StatusUnparsed
)

// Match is one scanned directory's resolution.
type Match struct {
	Path     string
	Name     string
	Status   MatchStatus
	Record   *title.Record
	Matches  []title.Record // populated when Status == StatusAmbiguous
	Warnings []string       // non-fatal issues surfaced to the CLI's renderers, never logged-and-dropped
}

// Scan walks root's directory tree (hidden entries skipped) and
// resolves each directory against svc, restricted to which (Movies or
// Series, spec §4.8: "scan-movies" / "scan-series"). A year-less
// directory whose by_exact_title lookup yields no results is not
// itself reported not-found: the scanner descends into its
// subdirectories instead, since the name is then more likely a
// collection/library folder than a title folder (spec §4.8: "walks the
// tree recursively ... if [by_exact_title] yields no results, descend
// into subdirectories").
func Scan(ctx context.Context, root string, svc *query.Service, which title.Which) ([]Match, error) {
	var matches []Match
	if err := scanDir(ctx, root, svc, which, &matches); err != nil {
		return matches, err
	}
	return matches, nil
}

func scanDir(ctx context.Context, dir string, svc *query.Service, which title.Which, out *[]Match) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return dberr.Wrap(dberr.CacheIoFailed, "read scan root "+dir, err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		if data, ok := readOverrideFile(path); ok {
			*out = append(*out, resolveOverride(path, entry.Name(), data, svc))
			continue
		}

		queryTitle, year, hasYear := parseDirName(entry.Name())
		if queryTitle == "" {
			*out = append(*out, Match{Path: path, Name: entry.Name(), Status: StatusUnparsed})
			continue
		}

		if hasYear {
			*out = append(*out, resolveByYear(ctx, path, entry.Name(), queryTitle, year, svc, which))
			continue
		}

		m := resolveByExactTitle(ctx, path, entry.Name(), queryTitle, svc, which)
		if m.Status != StatusNotFound {
			*out = append(*out, m)
			continue
		}
		if err := scanDir(ctx, path, svc, which, out); err != nil {
			return err
		}
	}
	return nil
}

func resolveOverride(path, name string, data []byte, svc *query.Service) Match {
	var ov override
	if err := json.Unmarshal(data, &ov); err != nil {
		return Match{Path: path, Name: name, Status: StatusUnparsed,
			Warnings: []string{overrideFilename + " is not valid JSON: " + err.Error()}}
	}
	id, err := title.ParseId(ov.Imdb.Id)
	if err != nil {
		return Match{Path: path, Name: name, Status: StatusUnparsed,
			Warnings: []string{overrideFilename + " has an invalid imdb.id: " + ov.Imdb.Id}}
	}
	rec, found := svc.ByID(id)
	if !found {
		return Match{Path: path, Name: name, Status: StatusNotFound,
			Warnings: []string{overrideFilename + " points at an id not present in the catalog: " + ov.Imdb.Id}}
	}
	return Match{Path: path, Name: name, Status: StatusOverride, Record: &rec}
}

func resolveByYear(ctx context.Context, path, name, queryTitle string, year uint16, svc *query.Service, which title.Which) Match {
	opts := query.Options{Which: &which}
	records, err := svc.ByTitleAndYear(ctx, queryTitle, year, opts)
	if err != nil {
		return Match{Path: path, Name: name, Status: StatusNotFound}
	}
	return classify(path, name, records, nil)
}

func resolveByExactTitle(ctx context.Context, path, name, queryTitle string, svc *query.Service, which title.Which) Match {
	opts := query.Options{Which: &which}
	warnings := []string{`directory name has no trailing "(YEAR)", matching on title alone`}
	records, err := svc.ByExactTitle(ctx, queryTitle, opts)
	if err != nil {
		return Match{Path: path, Name: name, Status: StatusNotFound, Warnings: warnings}
	}
	return classify(path, name, records, warnings)
}

func classify(path, name string, records []title.Record, warnings []string) Match {
	switch len(records) {
	case 0:
		return Match{Path: path, Name: name, Status: StatusNotFound, Warnings: warnings}
	case 1:
		return Match{Path: path, Name: name, Status: StatusMatched, Record: &records[0], Warnings: warnings}
	default:
		return Match{Path: path, Name: name, Status: StatusAmbiguous, Matches: records, Warnings: warnings}
	}
}

// parseDirName splits a "TITLE (YEAR)" directory name. A name with no
// trailing "(YEAR)" is still usable as a title-only query.
func parseDirName(name string) (queryTitle string, year uint16, hasYear bool) {
	if m := dirNamePattern.FindStringSubmatch(name); m != nil {
		y, err := strconv.Atoi(m[2])
		if err == nil {
			return m[1], uint16(y), true
		}
	}
	return name, 0, false
}

// readOverrideFile returns the raw bytes of dirPath's tvrank.json, if
// present, leaving JSON validation to the caller so a malformed file
// can be surfaced as a warning rather than silently ignored.
func readOverrideFile(dirPath string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(dirPath, overrideFilename))
	if err != nil {
		return nil, false
	}
	return data, true
}

func readOverride(dirPath string) (override, bool) {
	data, ok := readOverrideFile(dirPath)
	if !ok {
		return override{}, false
	}
	var ov override
	if err := json.Unmarshal(data, &ov); err != nil {
		return override{}, false
	}
	return ov, true
}

// Mark writes a tvrank.json override into dirPath, pinning it to id.
// It refuses to overwrite an existing override unless force is set
// (spec §4.8: mark operation, ScanMarkExists when not forced).
func Mark(dirPath string, id title.Id, force bool) error {
	overridePath := filepath.Join(dirPath, overrideFilename)
	if !force {
		if _, err := os.Stat(overridePath); err == nil {
			return dberr.New(dberr.ScanMarkExists, fmt.Sprintf("%s already exists", overridePath))
		}
	}

	var ov override
	ov.Imdb.Id = id.String()
	data, err := json.MarshalIndent(ov, "", "  ")
	if err != nil {
		return dberr.Wrap(dberr.CacheIoFailed, "encode override", err)
	}
	if err := os.WriteFile(overridePath, data, 0o644); err != nil {
		return dberr.Wrap(dberr.CacheIoFailed, "write "+overridePath, err)
	}
	return nil
}
