// Package breakpoint keeps the breakpoint list in step with the backend.
//
// Rows are created by user requests, by backend notifications and by loading
// a saved profile. A row without an ID is either an unconfirmed creation or a
// breakpoint kept across sessions for re-application; such rows are never sent
// update commands.
package breakpoint

import (
	"errors"
	"strings"

	"github.com/g960059/miscope/internal/model"
	"github.com/g960059/miscope/internal/records"
	"github.com/g960059/miscope/internal/session"
)

var (
	ErrNotSendable   = errors.New("session is not ready for commands")
	ErrNoThread      = errors.New("no thread selected")
	ErrChildLocation = errors.New("breakpoint location cannot be edited")
	ErrNotFound      = errors.New("breakpoint not found")
	ErrInvalidValue  = errors.New("invalid value")
	ErrAmbiguous     = errors.New("more than one breakpoint on line")
	ErrNotApplicable = errors.New("breakpoint cannot be applied")
)

// Stage selects how one notification batch is merged into the list.
type Stage int

const (
	// StagePersist is an unsolicited insert reply; new leading rows are
	// selected and kept for re-application.
	StagePersist Stage = iota
	StageDiscard
	// StageApply confirms a creation sent by this manager.
	StageApply
	// StageGoto is StageApply for an insert that resumes execution.
	StageGoto
	// StageNext follows the first processed node of a batch.
	StageNext
)

func (s Stage) String() string {
	switch s {
	case StagePersist:
		return "persist"
	case StageDiscard:
		return "discard"
	case StageApply:
		return "apply"
	case StageGoto:
		return "goto"
	case StageNext:
		return "next"
	default:
		return "unknown"
	}
}

type batch struct {
	stage Stage
	row   *model.Breakpoint
	typ   model.BreakType
}

// Column is an editable breakpoint column.
type Column int

const (
	ColumnIgnore Column = iota
	ColumnCond
	ColumnScript
)

var editColumns = [...]Column{ColumnIgnore, ColumnCond, ColumnScript}

// editCommand is the -break-<command> verb for a column. The ignore column
// is a pass count for tracepoints.
func editCommand(col Column, typ model.BreakType) string {
	switch col {
	case ColumnIgnore:
		if typ.IsTrace() {
			return "passcount"
		}
		return "after"
	case ColumnCond:
		return "condition"
	default:
		return "commands"
	}
}

type Manager struct {
	ctx  *session.Context
	rows records.List[model.Breakpoint]
}

func NewManager(ctx *session.Context) *Manager {
	return &Manager{ctx: ctx}
}

func (m *Manager) byID(id string) (*model.Breakpoint, bool) {
	return m.rows.Find(func(b *model.Breakpoint) bool { return b.ID == id })
}

func (m *Manager) bySCID(scid int) (*model.Breakpoint, bool) {
	return m.rows.Find(func(b *model.Breakpoint) bool { return b.SCID == scid })
}

func (m *Manager) mark(b *model.Breakpoint) {
	m.ctx.Mark(b.File, b.Line, session.BreakMarker(b.Enabled))
}

func (m *Manager) unmark(b *model.Breakpoint) {
	m.ctx.Unmark(b.File, b.Line, session.BreakMarker(b.Enabled))
}

func (m *Manager) setEnabled(b *model.Breakpoint, enabled bool) {
	m.unmark(b)
	b.Enabled = enabled
	m.mark(b)
}

func (m *Manager) remove(b *model.Breakpoint) {
	m.unmark(b)
	m.rows.Remove(b)
}

// clear demotes a row the backend no longer knows to a not-yet-applied one.
func clearRow(b *model.Breakpoint) {
	b.ID = ""
	b.Addr = ""
	if !b.Type.IsBort() {
		b.Temporary = false
	}
}

// matchesID reports whether id is prefix itself or one of its locations.
func matchesID(id, prefix string) bool {
	return id != "" && (id == prefix || strings.HasPrefix(id, prefix+"."))
}

// removeAll removes (discard or force) or clears every row with the id or
// one of its locations and reports whether any matched.
func (m *Manager) removeAll(prefix string, force bool) bool {
	found := false
	for _, b := range m.rows.RemoveFunc(func(b *model.Breakpoint) bool {
		if !matchesID(b.ID, prefix) {
			return false
		}
		found = true
		if b.Discard || force {
			return true
		}
		clearRow(b)
		return false
	}) {
		m.unmark(b)
	}
	return found
}

func (m *Manager) beep(err error) error {
	m.ctx.UI.Beep()
	return err
}

// ResetHits zeroes every hit counter; run when a new inferior starts.
func (m *Manager) ResetHits() {
	m.rows.Each(func(b *model.Breakpoint) { b.Times = 0 })
}

// Clear ends a session: rows not kept for re-application are removed and the
// rest lose their backend ids.
func (m *Manager) Clear() {
	for _, b := range m.rows.RemoveFunc(func(b *model.Breakpoint) bool {
		if b.Discard {
			return true
		}
		clearRow(b)
		return false
	}) {
		m.unmark(b)
	}
}

// DeleteAll drops every row and restarts creation ids.
func (m *Manager) DeleteAll() {
	m.rows.Each(m.unmark)
	m.rows.Clear()
	m.ctx.ResetSCID()
}

// Active counts enabled breakpoints known to the backend.
func (m *Manager) Active() int {
	n := 0
	m.rows.Each(func(b *model.Breakpoint) {
		if b.Enabled && b.ID != "" {
			n++
		}
	})
	return n
}

// MarkDocument places the markers for a freshly opened file.
func (m *Manager) MarkDocument(path string) {
	if path == "" {
		return
	}
	m.rows.Each(func(b *model.Breakpoint) {
		if b.Line > 0 && b.File == path {
			m.mark(b)
		}
	})
}

// Shift follows an edit that inserted (delta > 0) or deleted (delta < 0)
// lines at the 0-based line start of path. While a session is active the
// backend owns line numbers and the rows are left alone; otherwise rows
// below the edit move and rows on deleted lines are removed.
func (m *Manager) Shift(path string, start, delta int) {
	if m.ctx.State() != model.StateInactive || delta == 0 {
		return
	}
	for _, b := range m.rows.RemoveFunc(func(b *model.Breakpoint) bool {
		line := b.Line - 1
		if line < 0 || start > line || b.File != path {
			return false
		}
		if delta < 0 && start-delta > line {
			return true
		}
		m.unmark(b)
		if lineLocation(b.Location) {
			relocate(b, path, line+delta+1)
		} else {
			b.Line = line + delta + 1
		}
		m.mark(b)
		return false
	}) {
		m.unmark(b)
	}
}

// lineLocation reports a "file:line" style location.
func lineLocation(location string) bool {
	i := strings.IndexByte(location, ':')
	return i >= 0 && i+1 < len(location) && isDigit(location[i+1])
}

// Row returns a copy of the row with the given creation id.
func (m *Manager) Row(scid int) (model.Breakpoint, bool) {
	b, ok := m.bySCID(scid)
	if !ok {
		return model.Breakpoint{}, false
	}
	return *b, true
}

// RowByID returns a copy of the row with the given backend id.
func (m *Manager) RowByID(id string) (model.Breakpoint, bool) {
	b, ok := m.byID(id)
	if !ok || id == "" {
		return model.Breakpoint{}, false
	}
	return *b, true
}

// Rows returns the list in display order.
func (m *Manager) Rows() []model.Breakpoint {
	return m.rows.Snapshot()
}

type Order int

const (
	OrderCreation Order = iota
	OrderID
	OrderLocation
	OrderIgnore
)

func (m *Manager) Sorted(order Order) []model.Breakpoint {
	switch order {
	case OrderID:
		return m.rows.Sorted(func(a, b model.Breakpoint) int {
			return records.CompareDottedID(a.ID, b.ID)
		})
	case OrderLocation:
		return m.rows.Sorted(func(a, b model.Breakpoint) int {
			if c := records.CompareSeek(a.File, a.Line, b.File, b.Line); c != 0 {
				return c
			}
			return strings.Compare(a.Location, b.Location)
		})
	case OrderIgnore:
		return m.rows.Sorted(func(a, b model.Breakpoint) int {
			return records.CompareNumeric(a.Ignore, b.Ignore)
		})
	default:
		return m.rows.Sorted(func(a, b model.Breakpoint) int { return a.SCID - b.SCID })
	}
}
