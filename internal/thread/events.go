package thread

import (
	"github.com/g960059/miscope/internal/correlation"
	"github.com/g960059/miscope/internal/mi"
	"github.com/g960059/miscope/internal/model"
	"github.com/g960059/miscope/internal/session"
)

// OnGroupAdded handles =thread-group-added.
func (m *Manager) OnGroupAdded(msg mi.Message) {
	gid, ok := msg.Results.LeadValue()
	if !ok {
		m.ctx.Errorf("no gid")
		return
	}
	if _, ok := m.groups.Find(func(g *model.ThreadGroup) bool { return g.GID == gid }); ok {
		return
	}
	m.groups.Append(&model.ThreadGroup{GID: gid})
}

// OnGroupStarted handles =thread-group-started.
func (m *Manager) OnGroupStarted(msg mi.Message) {
	gid, _ := msg.Results.LeadValue()
	pid, hasPID := msg.Results.Value("pid")
	name := pid
	if !hasPID {
		name = gid
	}
	m.ctx.UI.Status("Thread group " + name + " started.")
	if !hasPID {
		m.ctx.Errorf("no pid")
		return
	}
	g, ok := m.findGroup(gid)
	if !ok {
		return
	}
	g.PID = pid
	m.threads.Each(func(t *model.Thread) {
		if t.GroupID == gid && t.PID == "" {
			t.PID = pid
		}
	})
}

// OnGroupExited handles =thread-group-exited.
func (m *Manager) OnGroupExited(msg mi.Message) {
	gid, _ := msg.Results.LeadValue()
	name := gid
	g, ok := m.findGroup(gid)
	if ok && g.PID != "" {
		name = g.PID
	}
	status := "Thread group " + name + " exited"
	code, hasCode := msg.Results.Value("exit-code")
	if hasCode {
		status += " with exit code " + code
	}
	m.ctx.UI.Status(status + ".")
	if ok {
		g.PID = ""
	}
	if hasCode && m.ctx.Policies.TerminalShowOnError {
		m.ctx.Terminal.Standalone(true)
	}
}

// OnGroupRemoved handles =thread-group-removed.
func (m *Manager) OnGroupRemoved(msg mi.Message) {
	gid, _ := msg.Results.LeadValue()
	if g, ok := m.findGroup(gid); ok {
		m.groups.Remove(g)
	}
}

// OnCreated handles =thread-created. The first thread of a session opens the
// session-level presentation and becomes current. A repeated notification for
// a known thread only refreshes its group. A notification without an id
// still counts, so that its exit keeps the tally balanced.
func (m *Manager) OnCreated(msg mi.Message) {
	tid, hasTID := msg.Results.Value("id")
	if hasTID {
		if t, ok := m.threads.Find(func(t *model.Thread) bool { return t.ID == tid }); ok {
			m.joinGroup(t, msg.Results)
			return
		}
	}
	if m.count == 0 {
		m.breaks.ResetHits()
		m.ctx.Terminal.Clear()
		if m.ctx.Policies.TerminalAutoShow {
			m.ctx.Terminal.Standalone(true)
		}
		if m.ctx.Policies.OpenPanelOnStart {
			m.ctx.UI.OpenPanel()
		}
	}
	m.count++
	if !hasTID {
		m.ctx.Errorf("no tid")
		return
	}

	t := &model.Thread{ID: tid}
	m.threads.Append(t)
	m.ctx.UI.Dirty(session.ViewThreads)
	m.ctx.Report(m.ctx.SendTagged(correlation.Plain(correlation.OpThreadInfo), "-thread-info %s", tid))
	m.joinGroup(t, msg.Results)
	if m.count == 1 {
		m.setGDBThread(tid, true)
	}
}

func (m *Manager) joinGroup(t *model.Thread, ns mi.Nodes) {
	gid, ok := ns.Value("group-id")
	if !ok {
		m.ctx.Errorf("no group-id")
		return
	}
	t.GroupID = gid
	if g, ok := m.findGroup(gid); ok && g.PID != "" {
		t.PID = g.PID
	}
}

// OnExited handles =thread-exited.
func (m *Manager) OnExited(msg mi.Message) {
	tid, ok := msg.Results.Value("id")
	if !ok {
		m.ctx.Errorf("no tid")
		return
	}
	if tid == m.ctx.GDBThread {
		m.ctx.GDBThread = ""
	}
	if t, ok := m.find(tid); ok {
		m.unmark(t)
		m.threads.Remove(t)
		if tid == m.ctx.ThreadID {
			_ = m.Select("")
			if m.ctx.Policies.SelectOnExited {
				m.autoSelect()
			}
		}
	}
	m.ctx.UI.Dirty(session.ViewThreads)

	if m.count == 0 {
		m.ctx.Errorf("extra exit")
		return
	}
	m.count--
	if m.count == 0 {
		if m.ctx.Policies.TerminalAutoHide {
			m.ctx.Terminal.Standalone(false)
		}
		m.ctx.UI.AutoExit()
	}
}

// OnSelected handles =thread-selected, a backend-side thread switch.
func (m *Manager) OnSelected(msg mi.Message) {
	tid, ok := msg.Results.LeadValue()
	if !ok {
		m.ctx.Errorf("no tid")
		return
	}
	m.setGDBThread(tid, m.ctx.Policies.SelectFollow)
}

func (m *Manager) running(t *model.Thread) {
	if !m.ctx.Policies.KeepExecPoint {
		m.unmark(t)
		t.File, t.Line, t.BaseName, t.Func, t.Addr, t.Core = "", 0, "", "", "", ""
	}
	t.State = model.ThreadTextRunning
	if t.ID == m.ctx.ThreadID {
		m.ctx.ThreadState = model.ThreadRunning
	}
}

// OnRunning handles *running.
func (m *Manager) OnRunning(msg mi.Message) {
	tid, ok := msg.Results.Value("thread-id")
	if !ok {
		m.ctx.Errorf("no tid")
		return
	}
	wasStopped := m.ctx.ThreadState >= model.ThreadStopped
	if tid == "all" {
		m.threads.Each(m.running)
	} else if t, ok := m.find(tid); ok {
		m.running(t)
	}
	m.ctx.UI.Dirty(session.ViewThreads)
	if m.ctx.Policies.SelectOnRunning && wasStopped && m.ctx.ThreadState == model.ThreadRunning {
		m.autoSelect()
	}
}

// parseFrame moves the thread to the stop location of frame.
func (m *Manager) parseFrame(frame mi.Nodes, t *model.Thread) {
	loc := mi.ParseLocation(frame)
	if loc.Addr == "" {
		loc.Addr = "??"
	}
	m.unmark(t)
	t.File, t.Line, t.BaseName, t.Func, t.Addr = loc.File, loc.Line, loc.BaseName, loc.Func, loc.Addr
	t.State = model.ThreadTextStopped
	m.mark(t)

	if t.ID != m.ctx.ThreadID {
		return
	}
	if loc.Line != 0 {
		m.ctx.ThreadState = model.ThreadAtSource
		m.ctx.Markers.Seek(loc.File, loc.Line)
	} else {
		m.ctx.ThreadState = model.ThreadAtAssembler
		m.ctx.UI.Dirty(session.ViewConsole)
	}
}

// stopped remembers the first thread touched by a stop event.
type stopped struct {
	first *model.Thread
}

func (m *Manager) markStopped(t *model.Thread, sd *stopped) {
	t.State = model.ThreadTextStopped
	switch {
	case t.ID == m.ctx.ThreadID:
		if t.Addr == "" {
			m.ctx.ThreadState = model.ThreadQueryFrame
		}
		m.ctx.UI.Dirty(session.ViewData)
	case t.Addr == "":
		m.ctx.UI.Dirty(session.ViewThreads)
	}
	if sd.first == nil {
		sd.first = t
	}
}

// OnStopped handles *stopped.
func (m *Manager) OnStopped(msg mi.Message) {
	var sd stopped
	if tid, ok := msg.Results.Value("thread-id"); ok {
		if t, ok := m.find(tid); ok {
			if frame, ok := msg.Results.Array("frame"); ok {
				m.parseFrame(frame, t)
			}
			if core, ok := msg.Results.Value("core"); ok {
				t.Core = core
			}
			sd.first = t
		}
	} else {
		m.ctx.Errorf("no tid")
	}

	node, ok := msg.Results.Find("stopped-threads")
	switch {
	case !ok:
		m.ctx.Errorf("no stopped")
	case node.Kind == mi.KindValue:
		if node.Value == "all" {
			m.threads.Each(func(t *model.Thread) { m.markStopped(t, &sd) })
		} else if t, ok := m.find(node.Value); ok {
			m.markStopped(t, &sd)
		}
	default:
		for _, child := range node.Children {
			if child.Kind != mi.KindValue {
				m.ctx.Errorf("%s: found array", child.Name)
				continue
			}
			if t, ok := m.find(child.Value); ok {
				m.markStopped(t, &sd)
			}
		}
	}

	if m.ctx.Policies.SelectOnStopped && m.ctx.ThreadState <= model.ThreadRunning && sd.first != nil {
		if err := m.Select(sd.first.ID); err == nil {
			m.ctx.UI.RevealThread(sd.first.ID)
		}
	}
	if msg.Results.Get("reason") == "signal-received" {
		m.ctx.UI.Blink()
	}
	if m.ctx.BreakAsync != model.AsyncSupported {
		m.ctx.UI.Dirty(session.ViewBreaks)
	}
	if m.ctx.ThreadState == model.ThreadQueryFrame && m.ctx.State()&model.StateDebug != 0 {
		m.ctx.Report(m.QueryFrame())
	}
	m.ctx.UI.Dirty(session.ViewThreads)
}

func (m *Manager) parseThread(ns mi.Nodes, tid string, isStopped bool) {
	t, ok := m.find(tid)
	if !ok {
		return
	}
	if isStopped {
		frame, ok := ns.Array("frame")
		if !ok {
			m.ctx.Errorf("no frame")
			return
		}
		m.parseFrame(frame, t)
	} else if t.State != model.ThreadTextRunning {
		m.running(t)
	}
	if v, ok := ns.Value("target-id"); ok {
		t.TargetID = v
	}
	if v, ok := ns.Value("core"); ok {
		t.Core = v
	}
}

// OnInfo handles the -thread-info reply. With follow set the backend's
// current thread also becomes the selection.
func (m *Manager) OnInfo(msg mi.Message, follow bool) {
	list, _ := msg.Results.LeadArray()
	for _, entry := range list {
		if entry.Kind != mi.KindArray {
			m.ctx.Errorf("threads: contains value")
			continue
		}
		tid, hasID := entry.Children.Value("id")
		state, hasState := entry.Children.Value("state")
		if !hasID || !hasState {
			m.ctx.Errorf("no tid or state")
			continue
		}
		m.parseThread(entry.Children, tid, state != "running")
	}
	m.ctx.UI.Dirty(session.ViewThreads)

	if tid, ok := msg.Results.Value("current-thread-id"); ok {
		m.setGDBThread(tid, follow || m.ctx.Policies.SelectFollow)
	} else if follow {
		m.ctx.Errorf("no current tid")
	}
}

// OnFrame handles the -stack-info-frame reply for the thread named by tok.
func (m *Manager) OnFrame(msg mi.Message, tok correlation.Token) {
	m.parseThread(msg.Results, tok.ID, true)
}

// OnSelectDone handles the -thread-select reply.
func (m *Manager) OnSelectDone(msg mi.Message, tok correlation.Token) {
	tid := tok.ID
	if v, ok := msg.Results.Value("new-thread-id"); ok {
		tid = v
	}
	m.setGDBThread(tid, false)
}
