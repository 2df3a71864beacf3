package session

import (
	"fmt"
	"io"
	"strconv"

	"github.com/g960059/miscope/internal/config"
	"github.com/g960059/miscope/internal/correlation"
	"github.com/g960059/miscope/internal/model"
)

// Channel sends MI commands to the backend and reports the session state.
type Channel interface {
	Send(command string) error
	State() model.DebugState
}

type MarkerKind int

const (
	MarkerBreakDisabled MarkerKind = iota
	MarkerBreakEnabled
	MarkerExecute
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerBreakDisabled:
		return "break-disabled"
	case MarkerBreakEnabled:
		return "break-enabled"
	case MarkerExecute:
		return "execute"
	default:
		return "marker" + strconv.Itoa(int(k))
	}
}

// BreakMarker is the marker kind for a breakpoint with the given enabled flag.
func BreakMarker(enabled bool) MarkerKind {
	if enabled {
		return MarkerBreakEnabled
	}
	return MarkerBreakDisabled
}

// Markers places source line markers. Line numbers are 1-based.
type Markers interface {
	Mark(file string, line int, kind MarkerKind)
	Unmark(file string, line int, kind MarkerKind)
	// Seek brings file:line into view.
	Seek(file string, line int)
}

type View int

const (
	ViewBreaks View = iota
	ViewThreads
	ViewConsole
	ViewData
)

// UI is the presentation layer as seen by the managers.
type UI interface {
	Beep()
	Blink()
	Status(text string)
	Ambiguous(file string, line int)
	SelectBreak(scid int)
	ThreadSelected(tid string)
	RevealThread(tid string)
	Dirty(view View)
	OpenPanel()
	AutoExit()
}

type Terminal interface {
	Clear()
	Standalone(show bool)
}

// Context is the state shared by the breakpoint and thread managers for one
// front-end instance. Only the managers mutate it, on the dispatch path.
type Context struct {
	Policies config.Policies
	Channel  Channel
	Markers  Markers
	UI       UI
	Terminal Terminal

	// ThreadID is the UI-selected thread, "" when none.
	ThreadID    string
	ThreadState model.ThreadState
	// GDBThread is the backend's current thread; it may lag ThreadID until
	// synchronized.
	GDBThread  string
	BreakAsync model.AsyncSupport

	scidGen int
	diag    io.Writer
}

func New(policies config.Policies, channel Channel, markers Markers, ui UI, terminal Terminal, diag io.Writer) *Context {
	if diag == nil {
		diag = io.Discard
	}
	return &Context{
		Policies:   policies,
		Channel:    channel,
		Markers:    markers,
		UI:         ui,
		Terminal:   terminal,
		BreakAsync: model.AsyncUnknown,
		diag:       diag,
	}
}

func (c *Context) State() model.DebugState {
	return c.Channel.State()
}

// NextSCID returns a new creation correlation id; ids start at 1.
func (c *Context) NextSCID() int {
	c.scidGen++
	return c.scidGen
}

func (c *Context) ResetSCID() {
	c.scidGen = 0
}

// Send writes an untagged command.
func (c *Context) Send(format string, args ...any) error {
	cmd := fmt.Sprintf(format, args...)
	if err := c.Channel.Send(cmd); err != nil {
		return fmt.Errorf("send %q: %w", cmd, err)
	}
	return nil
}

// SendTagged writes a command whose reply is correlated by tok.
func (c *Context) SendTagged(tok correlation.Token, format string, args ...any) error {
	cmd, err := tok.Command(fmt.Sprintf(format, args...))
	if err != nil {
		return fmt.Errorf("tag command: %w", err)
	}
	if err := c.Channel.Send(cmd); err != nil {
		return fmt.Errorf("send %q: %w", cmd, err)
	}
	return nil
}

// Errorf reports a protocol inconsistency. Processing continues.
func (c *Context) Errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.diag, "miscope: %s\n", fmt.Sprintf(format, args...))
}

// Report logs a failed outbound command.
func (c *Context) Report(err error) {
	if err != nil {
		c.Errorf("%v", err)
	}
}

func (c *Context) Mark(file string, line int, kind MarkerKind) {
	if file != "" && line > 0 {
		c.Markers.Mark(file, line, kind)
	}
}

func (c *Context) Unmark(file string, line int, kind MarkerKind) {
	if file != "" && line > 0 {
		c.Markers.Unmark(file, line, kind)
	}
}

// Reset returns the selection and capability state to session start.
func (c *Context) Reset() {
	c.ThreadID = ""
	c.ThreadState = model.ThreadBlank
	c.GDBThread = ""
	c.BreakAsync = model.AsyncUnknown
}
