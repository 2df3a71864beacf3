package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/g960059/miscope/internal/model"
	"github.com/g960059/miscope/internal/session"
)

// printer stands in for the backend pipe and the editor during replay. Every
// collaborator call becomes one output line.
type printer struct {
	mu    sync.Mutex
	w     io.Writer
	state model.DebugState
	dirty bool
}

func newPrinter(w io.Writer, state model.DebugState, dirty bool) *printer {
	return &printer{w: w, state: state, dirty: dirty}
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) Send(command string) error {
	p.printf("-> %s", command)
	return nil
}

func (p *printer) State() model.DebugState { return p.state }

func (p *printer) Mark(file string, line int, kind session.MarkerKind) {
	p.printf("mark %s:%d %s", file, line, kind)
}

func (p *printer) Unmark(file string, line int, kind session.MarkerKind) {
	p.printf("unmark %s:%d %s", file, line, kind)
}

func (p *printer) Seek(file string, line int) { p.printf("seek %s:%d", file, line) }

func (p *printer) Beep()                           { p.printf("beep") }
func (p *printer) Blink()                          { p.printf("blink") }
func (p *printer) Status(text string)              { p.printf("status %s", text) }
func (p *printer) Ambiguous(file string, line int) { p.printf("ambiguous %s:%d", file, line) }
func (p *printer) SelectBreak(scid int)            { p.printf("select-break %d", scid) }
func (p *printer) ThreadSelected(tid string)       { p.printf("thread-selected %s", tid) }
func (p *printer) RevealThread(tid string)         { p.printf("reveal %s", tid) }
func (p *printer) OpenPanel()                      { p.printf("open-panel") }
func (p *printer) AutoExit()                       { p.printf("auto-exit") }

func (p *printer) Dirty(view session.View) {
	if p.dirty {
		p.printf("dirty %s", viewName(view))
	}
}

func (p *printer) Clear() { p.printf("terminal clear") }

func (p *printer) Standalone(show bool) {
	if show {
		p.printf("terminal show")
	} else {
		p.printf("terminal hide")
	}
}

func viewName(v session.View) string {
	switch v {
	case session.ViewBreaks:
		return "breaks"
	case session.ViewThreads:
		return "threads"
	case session.ViewConsole:
		return "console"
	case session.ViewData:
		return "data"
	default:
		return fmt.Sprintf("view%d", int(v))
	}
}

func parseState(s string) (model.DebugState, error) {
	switch s {
	case "inactive":
		return model.StateInactive, nil
	case "busy":
		return model.StateBusy, nil
	case "ready":
		return model.StateReady, nil
	case "debug":
		return model.StateDebug, nil
	case "hanging":
		return model.StateHanging, nil
	default:
		return 0, fmt.Errorf("unknown debug state %q", s)
	}
}

func printSummary(w io.Writer, breaks []model.Breakpoint, threads []model.Thread) {
	_, _ = fmt.Fprintln(w, "breakpoints:")
	for _, b := range breaks {
		id := b.ID
		if id == "" {
			id = "-"
		}
		enabled := "n"
		if b.Enabled {
			enabled = "y"
		}
		_, _ = fmt.Fprintf(w, "  %-6s %-4s %s %-32s hits=%d\n", id, b.TypeLabel(), enabled, b.Display, b.Times)
	}
	_, _ = fmt.Fprintln(w, "threads:")
	for _, t := range threads {
		where := t.Func
		if t.File != "" && t.Line > 0 {
			where = fmt.Sprintf("%s:%d", t.File, t.Line)
		}
		_, _ = fmt.Fprintf(w, "  %-6s %-8s %s\n", t.ID, t.State, where)
	}
}
