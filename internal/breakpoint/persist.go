package breakpoint

import "github.com/g960059/miscope/internal/model"

// Save returns the sections for every row kept across sessions.
func (m *Manager) Save() []model.BreakpointSection {
	var sections []model.BreakpointSection
	m.rows.Each(func(b *model.Breakpoint) {
		if b.Discard {
			return
		}
		s := model.BreakpointSection{
			Line:     b.Line,
			Type:     b.Type,
			Enabled:  boolPtr(b.Enabled),
			Pending:  boolPtr(b.Pending),
			RunApply: boolPtr(b.RunApply),
			File:     b.File,
			Display:  b.Display,
			Func:     b.Func,
			Ignore:   b.Ignore,
			Cond:     b.Cond,
			Script:   b.Script,
			Location: b.Location,
		}
		if b.Type.IsBort() {
			s.Temporary = boolPtr(b.Temporary)
		}
		sections = append(sections, s)
	})
	return sections
}

// Load replaces the list with the saved sections and returns how many were
// accepted. Sections without a known type, a location or a valid line are
// skipped.
func (m *Manager) Load(sections []model.BreakpointSection) int {
	m.DeleteAll()
	loaded := 0
	for _, s := range sections {
		if !s.Type.IsKnown() || s.Location == "" || s.Line < 0 {
			continue
		}
		b := &model.Breakpoint{
			SCID:      m.ctx.NextSCID(),
			Type:      s.Type,
			Enabled:   boolOr(s.Enabled, true),
			Pending:   boolOr(s.Pending, false),
			RunApply:  boolOr(s.RunApply, s.Type.IsBort()),
			Temporary: boolOr(s.Temporary, false),
			File:      s.File,
			Line:      s.Line,
			Display:   s.Display,
			Func:      s.Func,
			Cond:      s.Cond,
			Script:    s.Script,
			Location:  s.Location,
		}
		if isNumber(s.Ignore) {
			b.Ignore = s.Ignore
		}
		if b.File == "" {
			b.Line = 0
		}
		m.rows.Append(b)
		m.mark(b)
		loaded++
	}
	return loaded
}

func boolPtr(v bool) *bool { return &v }

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
