// Package progress implements the cache store's progress-sink
// interface (spec §6) and a terminal renderer for it, adapted from
// stormdb's internal/progress bar-drawing Tracker.
package progress

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Kind identifies the phase a progress Message describes.
type Kind int

const (
	DownloadInit Kind = iota
	DownloadProgress
	DownloadDone
	ExtractInit
	ExtractProgress
	ExtractDone
)

func (k Kind) String() string {
	switch k {
	case DownloadInit:
		return "download_init"
	case DownloadProgress:
		return "download_progress"
	case DownloadDone:
		return "download_done"
	case ExtractInit:
		return "extract_init"
	case ExtractProgress:
		return "extract_progress"
	case ExtractDone:
		return "extract_done"
	default:
		return "unknown"
	}
}

// Message is one progress event. ContentLength is non-nil only on an
// *Init event, and only when the server/source reported a length.
// Delta is a byte count processed since the previous message of the
// same kind-family (download or extract), never a running total.
type Message struct {
	Kind          Kind
	Name          string
	ContentLength *int64
	Delta         int64
}

// Sink receives progress messages. Implementations must be safe for
// concurrent use. The cache store itself reports the two tracked files
// one after the other, from the goroutine that called Store.Open.
type Sink interface {
	Notify(Message)
}

// Nop discards all messages. The zero value is ready to use.
type Nop struct{}

func (Nop) Notify(Message) {}

// Terminal renders a progress bar per named stream to standard error,
// the way stormdb's Tracker rendered batch-seeding progress: a fixed
// width bar, a percentage, byte counts and a rate, redrawn in place.
type Terminal struct {
	mu      sync.Mutex
	streams map[string]*streamState
	width   int
}

type streamState struct {
	total     int64
	current   int64
	startedAt time.Time
}

// NewTerminal returns a Sink that draws one progress bar per named
// stream (e.g. "title.basics.tsv.gz" download, then its extraction).
func NewTerminal() *Terminal {
	return &Terminal{
		streams: make(map[string]*streamState),
		width:   40,
	}
}

func (t *Terminal) Notify(msg Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch msg.Kind {
	case DownloadInit, ExtractInit:
		state := &streamState{startedAt: time.Now()}
		if msg.ContentLength != nil {
			state.total = *msg.ContentLength
		}
		t.streams[streamKey(msg)] = state
	case DownloadProgress, ExtractProgress:
		state := t.streams[streamKey(msg)]
		if state == nil {
			state = &streamState{startedAt: time.Now()}
			t.streams[streamKey(msg)] = state
		}
		state.current += msg.Delta
		t.render(msg.Name, state)
	case DownloadDone, ExtractDone:
		state := t.streams[streamKey(msg)]
		if state != nil {
			state.current = state.total
			t.render(msg.Name, state)
		}
		fmt.Fprintln(os.Stderr)
		delete(t.streams, streamKey(msg))
	}
}

func streamKey(msg Message) string {
	family := "download"
	if msg.Kind == ExtractInit || msg.Kind == ExtractProgress || msg.Kind == ExtractDone {
		family = "extract"
	}
	return family + ":" + msg.Name
}

func (t *Terminal) render(name string, state *streamState) {
	if state.total <= 0 {
		fmt.Fprintf(os.Stderr, "\r%s: %s", name, formatBytes(state.current))
		return
	}

	fraction := float64(state.current) / float64(state.total)
	if fraction > 1 {
		fraction = 1
	}
	filled := int(float64(t.width) * fraction)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", t.width-filled)

	elapsed := time.Since(state.startedAt)
	rate := float64(state.current) / elapsed.Seconds()

	fmt.Fprintf(os.Stderr, "\r%s: [%s] %5.1f%% %s/%s (%s/s)",
		name, bar, fraction*100, formatBytes(state.current), formatBytes(state.total), formatBytes(int64(rate)))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
