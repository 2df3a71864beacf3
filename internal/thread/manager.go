// Package thread tracks thread groups, threads and the execution state of
// the selected thread.
package thread

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/g960059/miscope/internal/correlation"
	"github.com/g960059/miscope/internal/model"
	"github.com/g960059/miscope/internal/records"
	"github.com/g960059/miscope/internal/session"
)

var (
	ErrNoSelection = errors.New("no thread selected")
	ErrNoProcess   = errors.New("no process for thread")
	ErrNotFound    = errors.New("thread not found")
)

// HitResetter is notified when the first thread of a session appears.
type HitResetter interface {
	ResetHits()
}

// Signaller delivers signals to the debugged process.
type Signaller interface {
	Interrupt(pid int) error
	Terminate(pid int) error
	Signal(pid, sig int) error
}

type Manager struct {
	ctx     *session.Context
	breaks  HitResetter
	signals Signaller
	groups  records.List[model.ThreadGroup]
	threads records.List[model.Thread]
	count   int
}

func NewManager(ctx *session.Context, breaks HitResetter, signals Signaller) *Manager {
	return &Manager{ctx: ctx, breaks: breaks, signals: signals}
}

func (m *Manager) find(tid string) (*model.Thread, bool) {
	t, ok := m.threads.Find(func(t *model.Thread) bool { return t.ID == tid })
	if !ok {
		m.ctx.Errorf("%s: tid not found", tid)
	}
	return t, ok
}

func (m *Manager) findGroup(gid string) (*model.ThreadGroup, bool) {
	g, ok := m.groups.Find(func(g *model.ThreadGroup) bool { return g.GID == gid })
	if !ok {
		m.ctx.Errorf("%s: gid not found", gid)
	}
	return g, ok
}

func (m *Manager) mark(t *model.Thread) {
	m.ctx.Mark(t.File, t.Line, session.MarkerExecute)
}

func (m *Manager) unmark(t *model.Thread) {
	m.ctx.Unmark(t.File, t.Line, session.MarkerExecute)
}

// selected returns the UI-selected thread.
func (m *Manager) selected() (*model.Thread, bool) {
	if m.ctx.ThreadID == "" {
		return nil, false
	}
	return m.threads.Find(func(t *model.Thread) bool { return t.ID == m.ctx.ThreadID })
}

// Select makes tid the UI-selected thread and derives the execution state
// from what is known about it. An empty tid clears the selection.
func (m *Manager) Select(tid string) error {
	if tid == "" {
		m.ctx.ThreadID = ""
		m.ctx.ThreadState = model.ThreadBlank
		m.ctx.UI.ThreadSelected("")
		m.ctx.UI.Dirty(session.ViewData)
		return nil
	}
	t, ok := m.find(tid)
	if !ok {
		return ErrNotFound
	}
	m.ctx.ThreadID = tid
	switch {
	case !t.Stopped():
		if t.State == "" {
			m.ctx.ThreadState = model.ThreadBlank
		} else {
			m.ctx.ThreadState = model.ThreadRunning
		}
	case t.Addr != "":
		if t.Line != 0 {
			m.ctx.ThreadState = model.ThreadAtSource
		} else {
			m.ctx.ThreadState = model.ThreadAtAssembler
			m.ctx.UI.Dirty(session.ViewConsole)
		}
	case m.ctx.State()&model.StateDebug != 0:
		m.ctx.ThreadState = model.ThreadQueryFrame
		m.ctx.Report(m.QueryFrame())
	default:
		m.ctx.ThreadState = model.ThreadStopped
	}
	m.ctx.UI.ThreadSelected(tid)
	m.ctx.UI.Dirty(session.ViewData)
	return nil
}

// autoSelect selects the first stopped thread, if any.
func (m *Manager) autoSelect() {
	t, ok := m.threads.Find(func(t *model.Thread) bool { return t.Stopped() })
	if !ok {
		return
	}
	if err := m.Select(t.ID); err == nil {
		m.ctx.UI.RevealThread(t.ID)
	}
}

func (m *Manager) setGDBThread(tid string, selectIt bool) {
	m.ctx.GDBThread = tid
	if selectIt && tid != "" {
		_ = m.Select(tid)
	}
}

// QueryFrame asks for the current frame of the selected thread.
func (m *Manager) QueryFrame() error {
	tid := m.ctx.ThreadID
	if tid == "" {
		return ErrNoSelection
	}
	return m.ctx.SendTagged(correlation.Frame(tid), "-stack-info-frame --thread %s", tid)
}

// Synchronize makes the backend's current thread match the selection.
func (m *Manager) Synchronize() error {
	if m.ctx.ThreadID == "" || m.ctx.ThreadID == m.ctx.GDBThread {
		return nil
	}
	return m.ctx.SendTagged(correlation.Select(m.ctx.ThreadID), "-thread-select %s", m.ctx.ThreadID)
}

func (m *Manager) Refresh() error {
	return m.ctx.SendTagged(correlation.Plain(correlation.OpThreadInfo), "-thread-info")
}

// Follow refreshes the thread list and selects the backend's current thread.
func (m *Manager) Follow() error {
	return m.ctx.SendTagged(correlation.Plain(correlation.OpThreadFollow), "-thread-info")
}

func (m *Manager) pid() (int, error) {
	t, ok := m.selected()
	if !ok {
		m.ctx.UI.Beep()
		return 0, ErrNoSelection
	}
	pid, err := strconv.Atoi(t.PID)
	if err != nil || pid <= 0 {
		m.ctx.UI.Beep()
		return 0, ErrNoProcess
	}
	return pid, nil
}

// Interrupt stops the process of the selected thread.
func (m *Manager) Interrupt() error {
	pid, err := m.pid()
	if err != nil {
		return err
	}
	if err := m.signals.Interrupt(pid); err != nil {
		return fmt.Errorf("interrupt %d: %w", pid, err)
	}
	return nil
}

func (m *Manager) Terminate() error {
	pid, err := m.pid()
	if err != nil {
		return err
	}
	if err := m.signals.Terminate(pid); err != nil {
		return fmt.Errorf("terminate %d: %w", pid, err)
	}
	return nil
}

func (m *Manager) Signal(sig int) error {
	pid, err := m.pid()
	if err != nil {
		return err
	}
	if err := m.signals.Signal(pid, sig); err != nil {
		return fmt.Errorf("signal %d to %d: %w", sig, pid, err)
	}
	return nil
}

// Clear tears down the thread state at session end.
func (m *Manager) Clear() {
	m.threads.Each(m.unmark)
	m.threads.Clear()
	m.groups.Clear()
	m.ctx.GDBThread = ""
	m.ctx.ThreadID = ""
	m.ctx.ThreadState = model.ThreadBlank
	m.count = 0
}

// MarkDocument places the execution markers for a freshly opened file.
func (m *Manager) MarkDocument(path string) {
	if path == "" {
		return
	}
	m.threads.Each(func(t *model.Thread) {
		if t.Line > 0 && t.File == path {
			m.mark(t)
		}
	})
}

// GroupID is the thread group of the selected thread.
func (m *Manager) GroupID() string {
	if t, ok := m.selected(); ok {
		return t.GroupID
	}
	return ""
}

// Count is the number of live threads.
func (m *Manager) Count() int { return m.count }

func (m *Manager) Rows() []model.Thread { return m.threads.Snapshot() }

func (m *Manager) Groups() []model.ThreadGroup { return m.groups.Snapshot() }

// Thread returns a copy of the thread record.
func (m *Manager) Thread(tid string) (model.Thread, bool) {
	t, ok := m.threads.Find(func(t *model.Thread) bool { return t.ID == tid })
	if !ok {
		return model.Thread{}, false
	}
	return *t, true
}

type Order int

const (
	OrderCreation Order = iota
	OrderID
	OrderLocation
	OrderPID
	OrderGroup
	OrderTargetID
)

func (m *Manager) Sorted(order Order) []model.Thread {
	switch order {
	case OrderID:
		return m.threads.Sorted(func(a, b model.Thread) int { return records.CompareNumeric(a.ID, b.ID) })
	case OrderLocation:
		return m.threads.Sorted(func(a, b model.Thread) int {
			return records.CompareSeek(a.File, a.Line, b.File, b.Line)
		})
	case OrderPID:
		return m.threads.Sorted(func(a, b model.Thread) int { return records.CompareIdent(a.PID, b.PID) })
	case OrderGroup:
		return m.threads.Sorted(func(a, b model.Thread) int { return records.CompareIdent(a.GroupID, b.GroupID) })
	case OrderTargetID:
		return m.threads.Sorted(func(a, b model.Thread) int { return records.CompareIdent(a.TargetID, b.TargetID) })
	default:
		return m.threads.Snapshot()
	}
}
