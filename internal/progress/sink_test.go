package progress

import "testing"

func TestNopDiscardsMessages(t *testing.T) {
	var s Sink = Nop{}
	s.Notify(Message{Kind: DownloadInit, Name: "whatever"})
}

func TestFormatBytesScalesUnits(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512B"},
		{2048, "2.0KiB"},
		{5 * 1024 * 1024, "5.0MiB"},
	}
	for _, c := range cases {
		if got := formatBytes(c.in); got != c.want {
			t.Errorf("formatBytes(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTerminalTracksStreamLifecycle(t *testing.T) {
	term := NewTerminal()
	size := int64(100)
	term.Notify(Message{Kind: DownloadInit, Name: "title.basics.tsv.gz", ContentLength: &size})
	term.Notify(Message{Kind: DownloadProgress, Name: "title.basics.tsv.gz", Delta: 40})

	term.mu.Lock()
	state := term.streams[streamKey(Message{Kind: DownloadProgress, Name: "title.basics.tsv.gz"})]
	term.mu.Unlock()
	if state == nil || state.current != 40 {
		t.Fatalf("unexpected stream state: %+v", state)
	}

	term.Notify(Message{Kind: DownloadDone, Name: "title.basics.tsv.gz"})
	term.mu.Lock()
	_, stillTracked := term.streams[streamKey(Message{Kind: DownloadDone, Name: "title.basics.tsv.gz"})]
	term.mu.Unlock()
	if stillTracked {
		t.Fatalf("expected the stream to be removed once done")
	}
}
