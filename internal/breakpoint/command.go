package breakpoint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/g960059/miscope/internal/correlation"
	"github.com/g960059/miscope/internal/mi"
	"github.com/g960059/miscope/internal/model"
)

// pushApplied sends the columns an insert command cannot carry once the
// backend confirmed a row created by apply.
func (m *Manager) pushApplied(b *model.Breakpoint) {
	values := [len(editColumns)]string{b.Ignore, b.Cond, b.Script}
	if b.Type.IsBort() {
		if b.Type.IsBreak() {
			values[ColumnIgnore] = ""
		}
		values[ColumnCond] = ""
	} else if !b.Enabled {
		m.ctx.Report(m.ctx.Send("-break-disable %s", b.ID))
	}
	for _, col := range editColumns {
		if values[col] != "" {
			m.ctx.Report(m.ctx.Send("-break-%s %s %s", editCommand(col, b.Type), b.ID, values[col]))
		}
	}
}

// applyCommand builds the insert or watch command re-creating b.
func (m *Manager) applyCommand(b *model.Breakpoint, thread bool) string {
	var cmd strings.Builder
	if !b.Type.IsBort() {
		cmd.WriteString("-break-watch")
		if flag := b.Type.WatchFlag(); flag != 0 {
			fmt.Fprintf(&cmd, " -%c", flag)
		}
		fmt.Fprintf(&cmd, " %s", b.Location)
		return cmd.String()
	}
	cmd.WriteString("-break-insert")
	if b.Temporary {
		cmd.WriteString(" -t")
	}
	if b.Type.IsHardware() {
		cmd.WriteString(" -h")
	}
	if b.Type.IsBreak() {
		if b.Ignore != "" {
			fmt.Fprintf(&cmd, " -i %s", b.Ignore)
		}
	} else {
		cmd.WriteString(" -a")
	}
	if !b.Enabled {
		cmd.WriteString(" -d")
	}
	if b.Cond != "" {
		fmt.Fprintf(&cmd, " -c %s", quote(b.Cond))
	}
	if b.Pending {
		cmd.WriteString(" -f")
	}
	if thread && m.ctx.ThreadID != "" {
		fmt.Fprintf(&cmd, " -p %s", m.ctx.ThreadID)
	}
	fmt.Fprintf(&cmd, " %s", b.Location)
	return cmd.String()
}

func (m *Manager) apply(b *model.Breakpoint, thread bool) error {
	if !b.Type.IsKnown() || b.Location == "" {
		return ErrNotApplicable
	}
	return m.ctx.SendTagged(correlation.Apply(b.SCID), "%s", m.applyCommand(b, thread))
}

// ApplyAll re-creates every row marked for application at session start.
func (m *Manager) ApplyAll() {
	m.rows.Each(func(b *model.Breakpoint) {
		if b.RunApply {
			if err := m.apply(b, false); err != nil {
				m.ctx.Errorf("apply %d: %v", b.SCID, err)
			}
		}
	})
}

// Apply sends b to the backend, restricted to the selected thread when
// thread is set.
func (m *Manager) Apply(scid int, thread bool) error {
	b, ok := m.bySCID(scid)
	if !ok {
		return ErrNotFound
	}
	if !m.ctx.State().Sendable() {
		return m.beep(ErrNotSendable)
	}
	if thread && m.ctx.ThreadID == "" {
		return m.beep(ErrNoThread)
	}
	if err := m.apply(b, thread); err != nil {
		return m.beep(err)
	}
	return nil
}

func (m *Manager) SetRunApply(scid int, on bool) error {
	b, ok := m.bySCID(scid)
	if !ok {
		return ErrNotFound
	}
	b.RunApply = on
	return nil
}

// Refresh requests the full list; rows missing from the answer are pruned.
func (m *Manager) Refresh() error {
	return m.ctx.SendTagged(correlation.Plain(correlation.OpBreakList), "-break-list")
}

// Request describes a user-entered breakpoint.
type Request struct {
	Type      model.BreakType
	Location  string
	Disabled  bool
	Temporary bool
	Pending   bool
	Ignore    string
	Cond      string
	// Thread restricts the breakpoint to the selected thread.
	Thread bool
}

// Insert adds a local row for req and, when the session accepts commands,
// applies it. The row gets its id from the confirmation.
func (m *Manager) Insert(req Request) (int, error) {
	if !req.Type.IsKnown() || strings.TrimSpace(req.Location) == "" {
		return 0, m.beep(ErrInvalidValue)
	}
	if req.Ignore != "" && (!isNumber(req.Ignore) || req.Type.IsWatch()) {
		return 0, m.beep(ErrInvalidValue)
	}
	state := m.ctx.State()
	if state != model.StateInactive && !state.Sendable() {
		return 0, m.beep(ErrNotSendable)
	}
	if req.Thread && m.ctx.ThreadID == "" {
		return 0, m.beep(ErrNoThread)
	}
	b := &model.Breakpoint{
		SCID:      m.ctx.NextSCID(),
		Type:      req.Type,
		Enabled:   !req.Disabled,
		Temporary: req.Temporary,
		Pending:   req.Pending,
		Location:  strings.TrimSpace(req.Location),
		Ignore:    req.Ignore,
		Cond:      req.Cond,
		RunApply:  req.Type.IsBort(),
	}
	var loc mi.Location
	if b.Type.IsBort() {
		splitLocation(b.Location, &loc)
		b.Display = baseName(b.Location)
	} else {
		b.Display = b.Location
	}
	b.File, b.Line = loc.File, loc.Line
	m.rows.Append(b)
	m.ctx.UI.SelectBreak(b.SCID)
	m.mark(b)
	if state.Sendable() {
		m.ctx.Report(m.apply(b, req.Thread))
	}
	return b.SCID, nil
}

// relocate points b at path:line.
func relocate(b *model.Breakpoint, path string, line int) {
	b.File = path
	b.Line = line
	b.Location = path + ":" + strconv.Itoa(line)
	b.Display = baseName(b.Location)
}

// Toggle removes the breakpoint on path:line or creates one there.
func (m *Manager) Toggle(path string, line int) error {
	var found *model.Breakpoint
	foundKey := ""
	var err error
	m.rows.Each(func(b *model.Breakpoint) {
		if err != nil || b.Line != line || b.File != path {
			return
		}
		key := leadingDigits(b.ID)
		if b.ID == "" {
			key = fmt.Sprintf("scid:%d", b.SCID)
		}
		if found != nil && key != foundKey {
			err = ErrAmbiguous
			return
		}
		if found == nil || b.Leading() {
			found, foundKey = b, key
		}
	})
	if err != nil {
		m.ctx.UI.Ambiguous(path, line)
		return err
	}
	if found != nil {
		if !found.Leading() {
			if parent, ok := m.byID(foundKey); ok {
				found = parent
			}
		}
		return m.Delete(found.SCID)
	}

	state := m.ctx.State()
	if state != model.StateInactive && !state.Sendable() {
		return m.beep(ErrNotSendable)
	}
	b := &model.Breakpoint{
		SCID:     m.ctx.NextSCID(),
		Type:     model.BreakBreak,
		Enabled:  true,
		RunApply: true,
	}
	relocate(b, path, line)
	m.rows.Append(b)
	m.ctx.UI.SelectBreak(b.SCID)
	m.mark(b)
	if state.Sendable() {
		m.ctx.Report(m.apply(b, false))
	}
	return nil
}

// SetEnabled enables or disables a row. Rows known to the backend change
// only when the backend confirms.
func (m *Manager) SetEnabled(scid int, enabled bool) error {
	b, ok := m.bySCID(scid)
	if !ok {
		return ErrNotFound
	}
	state := m.ctx.State()
	switch {
	case state == model.StateInactive || b.ID == "":
		m.setEnabled(b, enabled)
		return nil
	case state.Sendable():
		verb := "disable"
		if enabled {
			verb = "enable"
		}
		return m.ctx.SendTagged(correlation.Enable(b.SCID, enabled), "-break-%s %s", verb, b.ID)
	default:
		return m.beep(ErrNotSendable)
	}
}

// Edit changes the ignore count, condition or command script. A row without
// an id is edited in place; otherwise the command is sent and the row is
// refreshed from the backend's answer, never updated optimistically.
func (m *Manager) Edit(scid int, col Column, text string) error {
	b, ok := m.bySCID(scid)
	if !ok {
		return ErrNotFound
	}
	if b.ID != "" && !b.Leading() {
		return m.beep(ErrChildLocation)
	}
	value := strings.TrimSpace(text)
	switch col {
	case ColumnIgnore:
		if value != "" && !isNumber(value) {
			return m.beep(ErrInvalidValue)
		}
	case ColumnCond, ColumnScript:
	default:
		return ErrInvalidValue
	}

	if b.ID == "" {
		switch col {
		case ColumnIgnore:
			b.Ignore = value
		case ColumnCond:
			b.Cond = value
		case ColumnScript:
			b.Script = value
		}
		return nil
	}
	if !m.ctx.State().Sendable() {
		return m.beep(ErrNotSendable)
	}
	if value == "" && col == ColumnIgnore {
		value = "0"
	}
	cmd := fmt.Sprintf("-break-%s %s", editCommand(col, b.Type), b.ID)
	if value != "" {
		cmd += " " + value
	}
	return m.ctx.SendTagged(correlation.Info(b.ID), "%s", cmd)
}

// Delete removes a row. Rows known to a live backend are removed when the
// backend confirms the deletion.
func (m *Manager) Delete(scid int) error {
	b, ok := m.bySCID(scid)
	if !ok {
		return ErrNotFound
	}
	state := m.ctx.State()
	if state == model.StateInactive || b.ID == "" {
		m.remove(b)
		return nil
	}
	if !b.Leading() {
		return m.beep(ErrChildLocation)
	}
	if !state.Sendable() {
		return m.beep(ErrNotSendable)
	}
	return m.ctx.SendTagged(correlation.Delete(b.ID), "-break-delete %s", b.ID)
}
