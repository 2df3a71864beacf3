package breakpoint

import (
	"errors"
	"slices"
	"testing"

	"github.com/g960059/miscope/internal/model"
	"github.com/g960059/miscope/internal/session"
	"github.com/g960059/miscope/internal/testutil"
)

func TestApplyConfirmationPushesPendingColumns(t *testing.T) {
	s := testutil.NewSession(t, model.StateInactive)
	m := NewManager(s.Ctx)
	m.Load([]model.BreakpointSection{{
		Type:     model.BreakBreak,
		File:     "/src/a.c",
		Line:     5,
		Location: "/src/a.c:5",
		Ignore:   "2",
		Cond:     "x > 1",
		Script:   `"print x"`,
	}})
	if b, _ := m.Row(1); b.ID != "" {
		t.Fatalf("loaded row must not have an id: %+v", b)
	}

	s.Channel.DebugState = model.StateReady
	m.ApplyAll()
	if sent := s.Channel.Take(); !slices.Equal(sent, []string{`0101-break-insert -i 2 -c "x > 1" /src/a.c:5`}) {
		t.Fatalf("unexpected apply command: %q", sent)
	}

	m.OnInserted(reply("0101", bkpt("3", "5", "ignore", "2", "cond", "x > 1")))
	b, ok := m.Row(1)
	if !ok || b.ID != "3" || b.Ignore != "2" || b.Cond != "x > 1" || b.Script != `"print x"` {
		t.Fatalf("unexpected confirmed row: %+v", b)
	}
	if sent := s.Channel.Take(); !slices.Equal(sent, []string{`-break-commands 3 "print x"`}) {
		t.Fatalf("expected only the script pushed, got %q", sent)
	}
	if got := s.Markers.Count("/src/a.c", 5, session.MarkerBreakEnabled); got != 1 {
		t.Fatalf("expected one marker, got %d", got)
	}
}

func TestApplyConfirmationKeepsTracepointPassCount(t *testing.T) {
	s := testutil.NewSession(t, model.StateInactive)
	m := NewManager(s.Ctx)
	m.Load([]model.BreakpointSection{{Type: model.BreakTrace, Location: "/src/a.c:9", File: "/src/a.c", Line: 9, Ignore: "4"}})
	s.Channel.DebugState = model.StateReady
	m.ApplyAll()
	if sent := s.Channel.Take(); !slices.Equal(sent, []string{"0101-break-insert -a /src/a.c:9"}) {
		t.Fatalf("unexpected apply command: %q", sent)
	}
	m.OnInserted(reply("0101", bkpt("6", "9", "type", "tracepoint")))
	if b, _ := m.Row(1); b.Ignore != "4" || b.ID != "6" {
		t.Fatalf("expected pass count kept, got %+v", b)
	}
	if sent := s.Channel.Take(); !slices.Equal(sent, []string{"-break-passcount 6 4"}) {
		t.Fatalf("expected pass count pushed, got %q", sent)
	}
}

func TestApplyDisabledWatchpoint(t *testing.T) {
	s := testutil.NewSession(t, model.StateInactive)
	m := NewManager(s.Ctx)
	off := false
	m.Load([]model.BreakpointSection{{Type: model.BreakAccess, Location: "buf[2]", Enabled: &off, Cond: "buf[2] == 0"}})
	s.Channel.DebugState = model.StateReady
	if err := m.Apply(1, false); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if sent := s.Channel.Take(); !slices.Equal(sent, []string{"0101-break-watch -a buf[2]"}) {
		t.Fatalf("unexpected watch command: %q", sent)
	}
	m.OnInserted(reply("0101", tuple("hw-awpt", "number", "2", "exp", "buf[2]")))
	want := []string{"-break-disable 2", "-break-condition 2 buf[2] == 0"}
	if sent := s.Channel.Take(); !slices.Equal(sent, want) {
		t.Fatalf("unexpected push: %q", sent)
	}
	if b, _ := m.Row(1); b.Enabled || b.Cond != "buf[2] == 0" {
		t.Fatalf("apply reply must not overwrite local watch columns: %+v", b)
	}
}

func TestApplyCommandFlags(t *testing.T) {
	s := testutil.NewSession(t, model.StateReady)
	m := NewManager(s.Ctx)
	s.Ctx.ThreadID = "2"
	b := &model.Breakpoint{
		SCID:      4,
		Type:      model.BreakHardware,
		Temporary: true,
		Ignore:    "3",
		Cond:      `s == "x"`,
		Pending:   true,
		Location:  "/src/a.c:8",
	}
	want := `-break-insert -t -h -i 3 -d -c "s == \"x\"" -f -p 2 /src/a.c:8`
	if got := m.applyCommand(b, true); got != want {
		t.Fatalf("apply command\n got %s\nwant %s", got, want)
	}
	if got := m.applyCommand(b, false); got != `-break-insert -t -h -i 3 -d -c "s == \"x\"" -f /src/a.c:8` {
		t.Fatalf("thread flag must follow the request: %s", got)
	}
	b.Type = model.BreakFastTrace
	b.Enabled = true
	if got := m.applyCommand(b, false); got != `-break-insert -t -h -a -c "s == \"x\"" -f /src/a.c:8` {
		t.Fatalf("unexpected fast tracepoint command: %s", got)
	}
	b.Type = model.BreakRead
	if got := m.applyCommand(b, true); got != "-break-watch -r /src/a.c:8" {
		t.Fatalf("unexpected read watch command: %s", got)
	}
}

func TestApplyPreconditions(t *testing.T) {
	s := testutil.NewSession(t, model.StateBusy)
	m := NewManager(s.Ctx)
	m.Load([]model.BreakpointSection{{Type: model.BreakBreak, Location: "main"}})
	if err := m.Apply(1, false); !errors.Is(err, ErrNotSendable) {
		t.Fatalf("expected ErrNotSendable, got %v", err)
	}
	s.Channel.DebugState = model.StateDebug
	if err := m.Apply(1, true); !errors.Is(err, ErrNoThread) {
		t.Fatalf("expected ErrNoThread, got %v", err)
	}
	if err := m.Apply(42, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(s.Channel.Sent) != 0 {
		t.Fatalf("rejected applies must not send: %q", s.Channel.Sent)
	}
	if s.UI.Events[0] != "beep" || s.UI.Events[1] != "beep" {
		t.Fatalf("expected beeps, got %v", s.UI.Events)
	}
}

func TestDeleteWaitsForConfirmation(t *testing.T) {
	s := testutil.NewSession(t, model.StateReady)
	m := NewManager(s.Ctx)
	m.OnInserted(reply("", bkpt("3", "5")))
	local, err := m.Insert(Request{Type: model.BreakBreak, Location: "main"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	s.Channel.Take()

	if err := m.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if sent := s.Channel.Take(); !slices.Equal(sent, []string{"0233-break-delete 3"}) {
		t.Fatalf("unexpected delete command: %q", sent)
	}
	if _, ok := m.RowByID("3"); !ok {
		t.Fatalf("row must stay until the backend confirms")
	}
	m.OnDone(reply("0233"))
	if _, ok := m.RowByID("3"); ok {
		t.Fatalf("expected row removed after confirmation")
	}
	if s.Markers.Count("/src/a.c", 5, session.MarkerBreakEnabled) != 0 {
		t.Fatalf("expected marker removed")
	}

	if err := m.Delete(local); err != nil {
		t.Fatalf("delete local: %v", err)
	}
	if len(m.Rows()) != 0 || len(s.Channel.Sent) != 0 {
		t.Fatalf("id-less rows are removed without a command: rows=%d sent=%q", len(m.Rows()), s.Channel.Sent)
	}

	m.OnDone(reply("0239"))
	if s.Diag.Len() == 0 {
		t.Fatalf("expected diagnostic for an unknown id")
	}
}

func TestEnableRoundTrip(t *testing.T) {
	s := testutil.NewSession(t, model.StateReady)
	m := NewManager(s.Ctx)
	m.OnInserted(reply("", bkpt("3", "5")))

	if err := m.SetEnabled(1, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if sent := s.Channel.Take(); !slices.Equal(sent, []string{"0211-break-disable 3"}) {
		t.Fatalf("unexpected disable command: %q", sent)
	}
	if b, _ := m.Row(1); !b.Enabled {
		t.Fatalf("row must change only on confirmation")
	}
	m.OnDone(reply("0211"))
	if b, _ := m.Row(1); b.Enabled {
		t.Fatalf("expected disabled after confirmation")
	}
	if s.Markers.Count("/src/a.c", 5, session.MarkerBreakDisabled) != 1 || s.Markers.Total() != 1 {
		t.Fatalf("unexpected markers: %v", s.Markers.Marks)
	}

	s.Channel.DebugState = model.StateBusy
	if err := m.SetEnabled(1, true); !errors.Is(err, ErrNotSendable) {
		t.Fatalf("expected ErrNotSendable, got %v", err)
	}
	s.Channel.DebugState = model.StateInactive
	if err := m.SetEnabled(1, true); err != nil {
		t.Fatalf("offline enable: %v", err)
	}
	if b, _ := m.Row(1); !b.Enabled {
		t.Fatalf("expected offline enable applied directly")
	}
}

func TestEditProtocol(t *testing.T) {
	s := testutil.NewSession(t, model.StateReady)
	m := NewManager(s.Ctx)
	m.OnInserted(reply("", bkpt("3", "5")))
	m.OnCreated(created(bkpt("4", "6", "type", "tracepoint")))
	m.OnCreated(created(bkpt("4.1", "6")))
	offline, _ := m.Insert(Request{Type: model.BreakBreak, Location: "main"})
	s.Channel.Take()

	if err := m.Edit(1, ColumnCond, " i == 3 "); err != nil {
		t.Fatalf("edit cond: %v", err)
	}
	if sent := s.Channel.Take(); !slices.Equal(sent, []string{"0223-break-condition 3 i == 3"}) {
		t.Fatalf("unexpected edit command: %q", sent)
	}
	if b, _ := m.Row(1); b.Cond != "" {
		t.Fatalf("live edits must wait for the backend, got cond %q", b.Cond)
	}
	m.OnDone(reply("0223"))
	if sent := s.Channel.Take(); !slices.Equal(sent, []string{"-break-info 3"}) {
		t.Fatalf("expected info fetch, got %q", sent)
	}
	m.OnList(listReply("", bkpt("3", "5", "cond", "i == 3")))
	if b, _ := m.Row(1); b.Cond != "i == 3" {
		t.Fatalf("expected cond from info reply, got %q", b.Cond)
	}

	if err := m.Edit(1, ColumnIgnore, ""); err != nil {
		t.Fatalf("clear ignore: %v", err)
	}
	if err := m.Edit(2, ColumnIgnore, "7"); err != nil {
		t.Fatalf("edit pass count: %v", err)
	}
	if sent := s.Channel.Take(); !slices.Equal(sent, []string{"0223-break-after 3 0", "0224-break-passcount 4 7"}) {
		t.Fatalf("unexpected ignore commands: %q", sent)
	}

	if err := m.Edit(1, ColumnIgnore, "x"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if err := m.Edit(3, ColumnCond, "y"); !errors.Is(err, ErrChildLocation) {
		t.Fatalf("expected ErrChildLocation, got %v", err)
	}
	if err := m.Edit(offline, ColumnScript, `"bt"`); err != nil {
		t.Fatalf("offline edit: %v", err)
	}
	if b, _ := m.Row(offline); b.Script != `"bt"` {
		t.Fatalf("expected offline script stored, got %q", b.Script)
	}

	s.Channel.DebugState = model.StateBusy
	if err := m.Edit(1, ColumnCond, "z"); !errors.Is(err, ErrNotSendable) {
		t.Fatalf("expected ErrNotSendable, got %v", err)
	}
	if len(s.Channel.Sent) != 0 {
		t.Fatalf("rejected edits must not send: %q", s.Channel.Sent)
	}
}

func TestToggle(t *testing.T) {
	s := testutil.NewSession(t, model.StateInactive)
	m := NewManager(s.Ctx)

	if err := m.Toggle("/src/a.c", 12); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	b, _ := m.Row(1)
	if b.Location != "/src/a.c:12" || b.Display != "a.c:12" || !b.RunApply || b.Discard || !b.Enabled {
		t.Fatalf("unexpected toggled row: %+v", b)
	}
	if s.Markers.Count("/src/a.c", 12, session.MarkerBreakEnabled) != 1 || !s.UI.Has("select-break 1") {
		t.Fatalf("expected marker and selection")
	}
	if err := m.Toggle("/src/a.c", 12); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if len(m.Rows()) != 0 || s.Markers.Total() != 0 {
		t.Fatalf("expected row and marker removed")
	}

	s.Channel.DebugState = model.StateReady
	if err := m.Toggle("/src/a.c", 20); err != nil {
		t.Fatalf("toggle live: %v", err)
	}
	if sent := s.Channel.Take(); !slices.Equal(sent, []string{"0102-break-insert /src/a.c:20"}) {
		t.Fatalf("unexpected toggle command: %q", sent)
	}
}

func TestToggleAmbiguousLine(t *testing.T) {
	s := testutil.NewSession(t, model.StateReady)
	m := NewManager(s.Ctx)
	m.OnCreated(created(bkpt("1", "5")))
	m.OnCreated(created(bkpt("2", "5")))
	if err := m.Toggle("/src/a.c", 5); !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
	if !s.UI.Has("ambiguous /src/a.c:5") || len(s.Channel.Sent) != 0 || len(m.Rows()) != 2 {
		t.Fatalf("ambiguous toggle must only inform the user")
	}
}

func TestToggleLocationDeletesParent(t *testing.T) {
	s := testutil.NewSession(t, model.StateReady)
	m := NewManager(s.Ctx)
	parent := tuple("bkpt", "number", "5", "type", "breakpoint", "addr", "<MULTIPLE>", "original-location", "f")
	child := tuple("", "number", "5.1", "addr", "0x10", "fullname", "/src/a.c", "line", "20")
	m.OnInserted(reply("", parent, child))
	if err := m.Toggle("/src/a.c", 20); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if sent := s.Channel.Take(); !slices.Equal(sent, []string{"0235-break-delete 5"}) {
		t.Fatalf("expected parent deletion, got %q", sent)
	}
}

func TestSessionClearAndHits(t *testing.T) {
	s := testutil.NewSession(t, model.StateReady)
	m := NewManager(s.Ctx)
	m.OnInserted(reply("", bkpt("1", "5", "times", "2", "disp", "del")))
	m.OnInserted(reply("", tuple("wpt", "number", "2", "type", "hw watchpoint", "exp", "x", "disp", "del")))
	m.OnCreated(created(bkpt("3", "7", "times", "1")))

	if m.Active() != 3 {
		t.Fatalf("expected 3 active, got %d", m.Active())
	}
	m.ResetHits()
	for _, b := range m.Rows() {
		if b.Times != 0 {
			t.Fatalf("expected hits reset: %+v", b)
		}
	}

	m.Clear()
	rows := m.Rows()
	if got := ids(rows); !slices.Equal(got, []string{"", ""}) {
		t.Fatalf("expected two cleared rows, got %v", got)
	}
	if !rows[0].Temporary || rows[1].Temporary {
		t.Fatalf("temporary is kept for breakpoints only: %+v", rows)
	}
	if m.Active() != 0 {
		t.Fatalf("cleared rows are not active")
	}
	if s.Markers.Count("/src/a.c", 7, session.MarkerBreakEnabled) != 0 {
		t.Fatalf("expected removed row unmarked")
	}

	m.DeleteAll()
	if len(m.Rows()) != 0 || s.Markers.Total() != 0 || s.Ctx.NextSCID() != 1 {
		t.Fatalf("expected empty list, no markers and restarted ids")
	}
}

func TestShiftWhileInactive(t *testing.T) {
	s := testutil.NewSession(t, model.StateInactive)
	m := NewManager(s.Ctx)
	m.Load([]model.BreakpointSection{
		{Type: model.BreakBreak, File: "/src/a.c", Line: 10, Location: "/src/a.c:10"},
		{Type: model.BreakBreak, File: "/src/a.c", Line: 4, Location: "/src/a.c:4"},
		{Type: model.BreakBreak, File: "/src/a.c", Line: 20, Location: "main", Func: "main"},
		{Type: model.BreakBreak, File: "/src/a.c", Line: 30, Location: "/src/a.c:30"},
	})

	// two lines inserted before line 10 (0-based 9)
	m.Shift("/src/a.c", 5, 2)
	if b, _ := m.Row(1); b.Line != 12 || b.Location != "/src/a.c:12" || b.Display != "a.c:12" {
		t.Fatalf("unexpected relocated row: %+v", b)
	}
	if b, _ := m.Row(2); b.Line != 4 {
		t.Fatalf("rows above the edit must not move: %+v", b)
	}
	if b, _ := m.Row(3); b.Line != 22 || b.Location != "main" {
		t.Fatalf("function locations keep their text: %+v", b)
	}

	// lines 0-based 30..32 deleted
	m.Shift("/src/a.c", 30, -3)
	if _, ok := m.Row(4); ok {
		t.Fatalf("expected row on a deleted line removed")
	}
	if s.Markers.Count("/src/a.c", 32, session.MarkerBreakEnabled) != 0 || s.Markers.Count("/src/a.c", 12, session.MarkerBreakEnabled) != 1 {
		t.Fatalf("unexpected markers: %v", s.Markers.Marks)
	}

	s.Channel.DebugState = model.StateDebug
	m.Shift("/src/a.c", 0, 5)
	if b, _ := m.Row(2); b.Line != 4 {
		t.Fatalf("active sessions leave lines to the backend")
	}
}

func TestSortedViews(t *testing.T) {
	s := testutil.NewSession(t, model.StateReady)
	m := NewManager(s.Ctx)
	m.OnCreated(created(bkpt("10", "3", "ignore", "5")))
	m.OnCreated(created(bkpt("2", "9", "ignore", "12")))
	m.OnCreated(created(bkpt("2.1", "1")))

	if got := ids(m.Sorted(OrderID)); !slices.Equal(got, []string{"2", "2.1", "10"}) {
		t.Fatalf("id order: %v", got)
	}
	if got := ids(m.Sorted(OrderLocation)); !slices.Equal(got, []string{"2.1", "10", "2"}) {
		t.Fatalf("location order: %v", got)
	}
	if got := ids(m.Sorted(OrderIgnore)); !slices.Equal(got, []string{"2.1", "10", "2"}) {
		t.Fatalf("ignore order: %v", got)
	}
	if got := ids(m.Sorted(OrderCreation)); !slices.Equal(got, []string{"10", "2", "2.1"}) {
		t.Fatalf("creation order: %v", got)
	}
}
