package testutil

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/g960059/miscope/internal/config"
	"github.com/g960059/miscope/internal/model"
	"github.com/g960059/miscope/internal/session"
)

// Channel records outbound commands and reports a settable debug state.
type Channel struct {
	Sent       []string
	DebugState model.DebugState
}

func (c *Channel) Send(command string) error {
	c.Sent = append(c.Sent, command)
	return nil
}

func (c *Channel) State() model.DebugState { return c.DebugState }

// Take returns the commands sent since the last call.
func (c *Channel) Take() []string {
	sent := c.Sent
	c.Sent = nil
	return sent
}

type MarkKey struct {
	File string
	Line int
	Kind session.MarkerKind
}

// Markers keeps a per-position mark count so tests can detect duplicated or
// leaked markers.
type Markers struct {
	Marks map[MarkKey]int
	Seeks []string
}

func (m *Markers) Mark(file string, line int, kind session.MarkerKind) {
	if m.Marks == nil {
		m.Marks = make(map[MarkKey]int)
	}
	m.Marks[MarkKey{file, line, kind}]++
}

func (m *Markers) Unmark(file string, line int, kind session.MarkerKind) {
	key := MarkKey{file, line, kind}
	if m.Marks[key] <= 1 {
		delete(m.Marks, key)
		return
	}
	m.Marks[key]--
}

func (m *Markers) Seek(file string, line int) {
	m.Seeks = append(m.Seeks, fmt.Sprintf("%s:%d", file, line))
}

func (m *Markers) Count(file string, line int, kind session.MarkerKind) int {
	return m.Marks[MarkKey{file, line, kind}]
}

// Total is the number of placed markers of all kinds.
func (m *Markers) Total() int {
	n := 0
	for _, c := range m.Marks {
		n += c
	}
	return n
}

// UI records presentation calls as short event strings.
type UI struct {
	Events []string
}

func (u *UI) add(format string, args ...any) {
	u.Events = append(u.Events, fmt.Sprintf(format, args...))
}

func (u *UI) Beep()                           { u.add("beep") }
func (u *UI) Blink()                          { u.add("blink") }
func (u *UI) Status(text string)              { u.add("status %s", text) }
func (u *UI) Ambiguous(file string, line int) { u.add("ambiguous %s:%d", file, line) }
func (u *UI) SelectBreak(scid int)            { u.add("select-break %d", scid) }
func (u *UI) ThreadSelected(tid string)       { u.add("thread-selected %s", tid) }
func (u *UI) RevealThread(tid string)         { u.add("reveal %s", tid) }
func (u *UI) Dirty(view session.View)         { u.add("dirty %d", int(view)) }
func (u *UI) OpenPanel()                      { u.add("open-panel") }
func (u *UI) AutoExit()                       { u.add("auto-exit") }

// Has reports whether event was recorded.
func (u *UI) Has(event string) bool {
	for _, e := range u.Events {
		if e == event {
			return true
		}
	}
	return false
}

type Terminal struct {
	Events []string
}

func (t *Terminal) Clear() { t.Events = append(t.Events, "clear") }

func (t *Terminal) Standalone(show bool) {
	if show {
		t.Events = append(t.Events, "show")
		return
	}
	t.Events = append(t.Events, "hide")
}

// Session bundles a session context with recording collaborators.
type Session struct {
	Ctx      *session.Context
	Channel  *Channel
	Markers  *Markers
	UI       *UI
	Terminal *Terminal
	Diag     *bytes.Buffer
}

func NewSession(t *testing.T, state model.DebugState) *Session {
	t.Helper()
	return NewSessionWithPolicies(t, state, config.DefaultConfig().Policies)
}

func NewSessionWithPolicies(t *testing.T, state model.DebugState, policies config.Policies) *Session {
	t.Helper()
	s := &Session{
		Channel:  &Channel{DebugState: state},
		Markers:  &Markers{Marks: make(map[MarkKey]int)},
		UI:       &UI{},
		Terminal: &Terminal{},
		Diag:     &bytes.Buffer{},
	}
	s.Ctx = session.New(policies, s.Channel, s.Markers, s.UI, s.Terminal, s.Diag)
	return s
}
