// Package keyword implements the multi-pattern substring matcher behind
// keyword search (spec §4.7, C7): "a title matches a keyword query when
// every keyword appears as a substring of its normalised primary title,
// or every keyword appears as a substring of its normalised original
// title." The automaton is a trimmed Aho-Corasick port, built fresh
// per query over the (small, deduplicated) keyword set and streamed
// once over each shard's pre-built normalised-title corpus — the
// efficient reading of a multi-pattern matcher matched once per
// keyword rather than once per title.
//
// Grounded on tomtom215-cartographus's internal/cache/aho_corasick.go;
// trimmed to byte-oriented matching (the corpus is already
// ASCII-normalised by internal/title.Normalize) and to position
// reporting only, since keyword search needs hit locations, not
// pattern identities.
package keyword

// automaton is a byte-trie Aho-Corasick matcher over a fixed pattern
// set, built once per query.
type automaton struct {
	root     *node
	patterns []string
}

type node struct {
	children [256]*node
	failure  *node
	output   []int // indices into automaton.patterns ending at this node
}

func newNode() *node {
	return &node{}
}

// newAutomaton builds an automaton over patterns. Empty patterns are
// dropped; an automaton with zero patterns matches nothing.
func newAutomaton(patterns []string) *automaton {
	a := &automaton{root: newNode()}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		a.patterns = append(a.patterns, p)
	}
	for i, p := range a.patterns {
		a.insert(i, p)
	}
	a.buildFailureLinks()
	return a
}

func (a *automaton) insert(index int, pattern string) {
	n := a.root
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if n.children[c] == nil {
			n.children[c] = newNode()
		}
		n = n.children[c]
	}
	n.output = append(n.output, index)
}

func (a *automaton) buildFailureLinks() {
	queue := make([]*node, 0, len(a.patterns))
	for c := 0; c < 256; c++ {
		if child := a.root.children[c]; child != nil {
			child.failure = a.root
			queue = append(queue, child)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for c := 0; c < 256; c++ {
			child := cur.children[c]
			if child == nil {
				continue
			}
			queue = append(queue, child)

			fail := cur.failure
			for fail != nil && fail.children[c] == nil {
				fail = fail.failure
			}
			if fail == nil {
				child.failure = a.root
			} else {
				child.failure = fail.children[c]
				child.output = append(child.output, child.failure.output...)
			}
		}
	}
}

// scan streams text through the automaton once, invoking hit for every
// (patternIndex, endPosition) match found.
func (a *automaton) scan(text string, hit func(patternIndex int, end int)) {
	if len(a.patterns) == 0 {
		return
	}
	n := a.root
	for i := 0; i < len(text); i++ {
		c := text[i]
		for n != nil && n.children[c] == nil {
			n = n.failure
		}
		if n == nil {
			n = a.root
			continue
		}
		n = n.children[c]
		for _, idx := range n.output {
			hit(idx, i)
		}
	}
}
