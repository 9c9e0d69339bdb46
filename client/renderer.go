package client

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"rummage/db/searchdb"
)

// TerminalRenderer prints one line per pair. A terminal cannot take back
// what it already printed, so Clear separates result blocks with a blank
// line instead of erasing; clearing an already-empty block prints nothing.
type TerminalRenderer struct {
	mu    sync.Mutex
	out   io.Writer
	count int

	pathColor *color.Color
	rankColor *color.Color
}

func NewTerminalRenderer(out io.Writer) *TerminalRenderer {
	return &TerminalRenderer{
		out:       out,
		pathColor: color.New(color.FgCyan),
		rankColor: color.New(color.Faint),
	}
}

func (r *TerminalRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count > 0 {
		fmt.Fprintln(r.out)
	}
	r.count = 0
}

func (r *TerminalRenderer) Append(pair searchdb.Pair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	fmt.Fprintf(r.out, "%s %s\n", r.pathColor.Sprint(pair.Path), r.rankColor.Sprintf("(%.4f)", pair.Rank))
}
