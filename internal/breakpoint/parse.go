package breakpoint

import (
	"strconv"
	"strings"

	"github.com/g960059/miscope/internal/correlation"
	"github.com/g960059/miscope/internal/mi"
	"github.com/g960059/miscope/internal/model"
)

// OnInserted handles ^done,bkpt|wpt|hw-awpt|hw-rwpt replies.
func (m *Manager) OnInserted(msg mi.Message) {
	b := batch{stage: StagePersist}
	if raw, ok := msg.GrabToken(); ok {
		b.stage = StageDiscard
		tok, err := correlation.Decode(raw)
		switch {
		case err != nil:
			m.ctx.Errorf("%s: %v", raw, err)
		case tok.Op == correlation.OpBreakGoto:
			b.stage = StageGoto
		case tok.Op == correlation.OpBreakApply:
			if row, ok := m.bySCID(tok.SCID); ok {
				b.stage = StageApply
				b.row = row
			} else {
				m.ctx.Errorf("%d: b_scid not found", tok.SCID)
			}
		case tok.Op == correlation.OpBreakDiscard:
		default:
			m.ctx.Errorf("%s: unexpected %s reply", raw, tok.Op)
		}
	}
	m.parseNodes(msg.Results, &b)
}

// OnList handles the -break-list and -break-info table. A tagged reply is a
// full refresh: rows it does not mention are pruned or cleared.
func (m *Manager) OnList(msg mi.Message) {
	table, _ := msg.Results.LeadArray()
	body, ok := table.Array("body")
	if !ok {
		m.ctx.Errorf("no body")
		return
	}
	_, refresh := msg.GrabToken()
	if refresh {
		m.rows.Each(func(b *model.Breakpoint) { b.Missing = true })
	}
	m.parseNodes(body, &batch{stage: StageDiscard})
	if !refresh {
		return
	}
	for _, b := range m.rows.RemoveFunc(func(b *model.Breakpoint) bool {
		if !b.Missing {
			return false
		}
		b.Missing = false
		if b.ID == "" {
			return false
		}
		if b.Discard {
			return true
		}
		clearRow(b)
		return false
	}) {
		m.unmark(b)
	}
}

// OnCreated handles =breakpoint-created and =breakpoint-modified.
func (m *Manager) OnCreated(msg mi.Message) {
	if !m.ctx.Policies.AsyncBreakBugs {
		m.parseNodes(msg.Results, &batch{stage: StageDiscard})
	}
	m.ctx.BreakAsync = model.AsyncSupported
}

// OnDeleted handles =breakpoint-deleted,id=N.
func (m *Manager) OnDeleted(msg mi.Message) {
	m.ctx.BreakAsync = model.AsyncSupported
	id, ok := msg.Results.LeadValue()
	if !ok {
		m.ctx.Errorf("no id")
		return
	}
	m.removeAll(id, false)
}

// OnDone handles the bare ^done answering a tagged enable, disable, edit or
// delete command.
func (m *Manager) OnDone(msg mi.Message) {
	raw, _ := msg.GrabToken()
	tok, err := correlation.Decode(raw)
	if err != nil {
		m.ctx.Errorf("%s: %v", raw, err)
		return
	}
	switch tok.Op {
	case correlation.OpBreakEnable, correlation.OpBreakDisable:
		b, ok := m.bySCID(tok.SCID)
		if !ok {
			m.ctx.Errorf("%d: b_scid not found", tok.SCID)
			return
		}
		m.setEnabled(b, tok.Op == correlation.OpBreakEnable)
	case correlation.OpBreakInfo:
		m.ctx.Report(m.ctx.Send("-break-info %s", tok.ID))
	case correlation.OpBreakDelete:
		if !m.removeAll(tok.ID, true) {
			m.ctx.Errorf("%s: bid not found", tok.ID)
		}
	default:
		m.ctx.Errorf("%s: invalid b_oper", raw)
	}
}

// OnStopped applies the disposition of a breakpoint stop when the backend
// may not report it with its own notification.
func (m *Manager) OnStopped(msg mi.Message) {
	if m.ctx.BreakAsync == model.AsyncSupported {
		return
	}
	id, okID := msg.Results.Value("bkptno")
	disp, okDisp := msg.Results.Value("disp")
	if !okID || !okDisp {
		return
	}
	switch disp {
	case "dis":
		if b, ok := m.byID(id); ok {
			m.setEnabled(b, false)
		}
	case "del":
		m.removeAll(id, false)
	}
}

// OnFeatures handles the -list-features reply.
func (m *Manager) OnFeatures(msg mi.Message) {
	features, _ := msg.Results.LeadArray()
	for _, f := range features {
		if f.Kind == mi.KindValue && f.Value == "breakpoint-notifications" {
			m.ctx.BreakAsync = model.AsyncSupported
		}
	}
}

// QueryAsync probes once per session whether the backend sends breakpoint
// notifications. Until it answers they are assumed missing.
func (m *Manager) QueryAsync() {
	if m.ctx.BreakAsync != model.AsyncUnknown {
		return
	}
	m.ctx.BreakAsync = model.AsyncMissing
	m.ctx.Report(m.ctx.SendTagged(correlation.Plain(correlation.OpFeatures), "-list-features"))
}

func (m *Manager) parseNodes(nodes mi.Nodes, b *batch) {
	for _, n := range nodes {
		m.parseNode(n, b)
	}
}

func (m *Manager) parseNode(n mi.Node, b *batch) {
	if n.Kind == mi.KindValue {
		m.ctx.Errorf("breaks: contains value")
		b.stage = StageDiscard
		return
	}
	ns := n.Children
	id, ok := ns.Value("number")
	if !ok {
		m.ctx.Errorf("no number")
		b.stage = StageDiscard
		return
	}

	textType, ok := ns.Value("type")
	if !ok {
		textType = n.Name
	}
	typ := model.ParseBreakType(textType)
	leading := !strings.Contains(id, ".")
	if leading || b.stage != StageNext || typ != model.BreakUnknown {
		b.typ = typ
	} else {
		typ = b.typ
	}
	borts := typ.IsBort()
	loc := mi.ParseLocation(ns)
	enabled := ns.Get("enabled") != "n"
	temporary := ns.Get("disp") == "del"
	times, _ := strconv.Atoi(ns.Get("times"))

	var row *model.Breakpoint
	if b.stage == StageApply {
		row = b.row
		if other, ok := m.byID(id); ok && other != row {
			m.remove(other)
		}
		m.unmark(row)
	} else {
		if existing, ok := m.byID(id); ok {
			row = existing
			m.unmark(row)
		} else {
			row = m.insertParsed(ns, id, typ, leading, &loc, b)
		}
		row.Script = m.parseScript(ns)
	}

	if borts || b.stage != StageApply {
		row.Enabled = enabled
		row.Cond = ns.Get("cond")
		if typ.IsBreak() || b.stage != StageApply {
			if ignore, ok := ns.Value("ignore"); ok {
				row.Ignore = ignore
			} else {
				row.Ignore = ns.Get("pass")
			}
		}
	}
	row.ID = id
	row.File = loc.File
	row.Line = loc.Line
	row.Func = loc.Func
	row.Addr = loc.Addr
	row.Times = times
	row.Missing = false
	row.Temporary = temporary
	m.mark(row)

	switch b.stage {
	case StageApply:
		m.pushApplied(row)
	case StageGoto:
		m.ctx.Report(m.ctx.Send("-exec-continue"))
	}
	b.row = row
	b.stage = StageNext
}

// insertParsed creates the row for an id seen for the first time. Leading
// rows are appended; locations go right after the previous row of the batch.
func (m *Manager) insertParsed(ns mi.Nodes, id string, typ model.BreakType, leading bool, loc *mi.Location, b *batch) *model.Breakpoint {
	location, hasLocation := ns.Value("original-location")
	if hasLocation {
		splitLocation(location, loc)
	} else if typ.IsWatch() {
		if location, hasLocation = ns.Value("exp"); !hasLocation {
			location, hasLocation = ns.Value("what")
		}
	}
	persist := leading && b.stage == StagePersist
	if !hasLocation || !typ.IsKnown() {
		// no apply command can be built for it
		persist = false
		if !hasLocation {
			location = loc.Func
		}
	}
	display := location
	if typ.IsBort() {
		display = baseName(location)
	}
	_, pending := ns.Value("pending")

	row := &model.Breakpoint{
		SCID:     m.ctx.NextSCID(),
		Type:     typ,
		Display:  display,
		Pending:  pending,
		Location: location,
		RunApply: leading && typ.IsBort(),
		Discard:  !persist,
	}
	if prev := m.rows.IndexOf(b.row); leading || prev < 0 {
		m.rows.Append(row)
	} else {
		m.rows.InsertAfter(prev, row)
	}
	if persist {
		m.ctx.UI.SelectBreak(row.SCID)
	}
	return row
}

// splitLocation fills the file and line of an "/abs/path:line" location when
// the backend did not report them. A colon followed by another colon is a
// scope operator, not a line separator.
func splitLocation(location string, loc *mi.Location) {
	if !mi.IsAbsPath(location) {
		return
	}
	from := 0
	if location[0] != '/' && location[0] != '\\' {
		from = 2
	}
	i := strings.IndexByte(location[from:], ':')
	if i < 0 {
		return
	}
	i += from
	if i == 0 || (i+1 < len(location) && location[i+1] == ':') {
		return
	}
	if loc.File == "" {
		loc.File = location[:i]
	}
	rest := location[i+1:]
	if rest != "" && isDigit(rest[0]) && loc.Line == 0 {
		loc.Line, _ = strconv.Atoi(leadingDigits(rest))
	}
}

// parseScript renders the command list as space separated quoted strings.
func (m *Manager) parseScript(ns mi.Nodes) string {
	script, ok := ns.Find("script")
	if !ok {
		return ""
	}
	var b strings.Builder
	add := func(n mi.Node) {
		if n.Kind != mi.KindValue {
			m.ctx.Errorf("script: contains array")
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(quote(n.Value))
	}
	if script.Kind == mi.KindValue {
		add(script)
	} else {
		for _, n := range script.Children {
			add(n)
		}
	}
	return b.String()
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	b.WriteString(escape(s))
	b.WriteByte('"')
	return b.String()
}

func escape(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// baseName strips directories with either separator.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i]
}

func isNumber(s string) bool {
	return s != "" && leadingDigits(s) == s
}
