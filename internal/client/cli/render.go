package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dmitrijs2005/filedrop/internal/client/queue"
	"golang.org/x/term"
)

// isTerminal and terminalWidth are test seams for x/term.
var (
	isTerminal = func(w io.Writer) bool {
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}
	terminalWidth = func(w io.Writer) int {
		f, ok := w.(*os.File)
		if !ok {
			return 0
		}
		width, _, err := term.GetSize(int(f.Fd()))
		if err != nil {
			return 0
		}
		return width
	}
)

const clearLine = "\r\033[K"

// renderer prints queue changes to w. OnChange callbacks arrive from many
// goroutines, so every write happens under mu.
type renderer struct {
	mu      sync.Mutex
	w       io.Writer
	tty     bool
	width   int
	state   map[string]queue.Upload
	order   []string
	current string
}

func newRenderer(w io.Writer) *renderer {
	r := &renderer{w: w, tty: isTerminal(w), state: make(map[string]queue.Upload)}
	if r.tty {
		r.width = terminalWidth(w)
	}
	return r
}

func (r *renderer) onChange(u queue.Upload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, seen := r.state[u.ID]
	if !seen {
		r.order = append(r.order, u.ID)
	}
	r.state[u.ID] = u

	if u.Status == queue.StatusUploading {
		r.current = u.ID
	}

	changed := !seen || prev.Status != u.Status
	if changed {
		switch u.Status {
		case queue.StatusCompleted:
			r.printLine(fmt.Sprintf("ok    %s (id %d)", u.Name, u.ServerFileID))
		case queue.StatusFailed:
			r.printLine(fmt.Sprintf("FAIL  %s: %s", u.Name, u.Error))
		case queue.StatusRetrying:
			r.printLine(fmt.Sprintf("retry %s (%d): %s", u.Name, u.RetryCount, u.Error))
		}
	}

	if r.tty {
		r.drawStatus()
	}
}

// printLine writes a permanent line, clearing the status line first.
func (r *renderer) printLine(s string) {
	if r.tty {
		fmt.Fprint(r.w, clearLine)
	}
	fmt.Fprintln(r.w, s)
}

func (r *renderer) drawStatus() {
	var done, active, failed int
	for _, id := range r.order {
		switch r.state[id].Status {
		case queue.StatusCompleted:
			done++
		case queue.StatusFailed:
			failed++
		case queue.StatusUploading, queue.StatusRetrying:
			active++
		}
	}

	line := fmt.Sprintf("[%d/%d] %d active, %d failed", done, len(r.order), active, failed)
	if u, ok := r.state[r.current]; ok && u.Status == queue.StatusUploading {
		line += fmt.Sprintf(" | %s %3.0f%%", u.Name, u.Progress*100)
	}
	if r.width > 0 && len(line) >= r.width {
		line = line[:r.width-1]
	}
	fmt.Fprint(r.w, clearLine+line)
}

// finish clears the status line so the summary starts on a clean row.
func (r *renderer) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tty {
		fmt.Fprint(r.w, clearLine)
	}
}

// plural returns "1 file" or "n files".
func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %s", n, word+"s")
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
