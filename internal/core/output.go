package core

import "strings"

// outputLines is how many trailing core output lines are kept for diagnostics.
const outputLines = 200

// tail keeps the last max lines written to it.
type tail struct {
	max   int
	lines []string
	next  int
	full  bool
}

func newTail(max int) *tail {
	return &tail{max: max, lines: make([]string, max)}
}

func (t *tail) add(line string) {
	t.lines[t.next] = line
	t.next = (t.next + 1) % t.max
	if t.next == 0 {
		t.full = true
	}
}

func (t *tail) reset() {
	clear(t.lines)
	t.next, t.full = 0, false
}

// String joins the kept lines oldest first, each followed by a newline.
func (t *tail) String() string {
	var b strings.Builder
	if t.full {
		for _, line := range t.lines[t.next:] {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	for _, line := range t.lines[:t.next] {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
