package model

import "strings"

// BreakType is the single-character display type of a breakpoint row. The
// byte value is also the persisted type code.
type BreakType byte

const (
	BreakBreak     BreakType = 'b'
	BreakHardware  BreakType = 'h'
	BreakTrace     BreakType = 't'
	BreakFastTrace BreakType = 'f'
	BreakWatch     BreakType = 'w'
	BreakAccess    BreakType = 'a'
	BreakRead      BreakType = 'r'
	BreakCatch     BreakType = 'c'
	BreakUnknown   BreakType = '?'
)

// breakTypeTexts is matched in order against the MI "type" field.
var breakTypeTexts = []struct {
	text string
	typ  BreakType
}{
	{"breakpoint", BreakBreak},
	{"hw breakpoint", BreakHardware},
	{"tracepoint", BreakTrace},
	{"fast tracepoint", BreakFastTrace},
	{"wpt", BreakWatch},
	{"watchpoint", BreakWatch},
	{"hw watchpoint", BreakWatch},
	{"hw-awpt", BreakAccess},
	{"acc watchpoint", BreakAccess},
	{"hw-rwpt", BreakRead},
	{"read watchpoint", BreakRead},
	{"catchpoint", BreakCatch},
}

// ParseBreakType maps an MI breakpoint type text to its display type.
func ParseBreakType(text string) BreakType {
	for _, bt := range breakTypeTexts {
		if bt.text == text {
			return bt.typ
		}
	}
	return BreakUnknown
}

func (t BreakType) in(set string) bool {
	return strings.IndexByte(set, byte(t)) >= 0
}

// IsBreak reports plain and hardware breakpoints.
func (t BreakType) IsBreak() bool { return t.in("bh") }

// IsTrace reports tracepoints and fast tracepoints.
func (t BreakType) IsTrace() bool { return t.in("tf") }

func (t BreakType) IsHardware() bool { return t.in("hf") }

// IsBort reports a breakpoint or a tracepoint of any kind.
func (t BreakType) IsBort() bool { return t.in("bhtf") }

// IsKnown reports types for which an apply command can be built.
func (t BreakType) IsKnown() bool { return t.in("btfwar") }

func (t BreakType) IsWatch() bool { return t.in("war") }

// WatchFlag is the -break-watch option letter, 0 for a plain write watch.
func (t BreakType) WatchFlag() byte {
	if t.in("ar") {
		return byte(t)
	}
	return 0
}

func (t BreakType) Label() string {
	switch t {
	case BreakBreak:
		return "break"
	case BreakHardware:
		return "hbreak"
	case BreakTrace:
		return "trace"
	case BreakFastTrace:
		return "ftrace"
	case BreakWatch:
		return "watch"
	case BreakAccess:
		return "access"
	case BreakRead:
		return "read"
	case BreakCatch:
		return "catch"
	default:
		return "??"
	}
}

// Breakpoint is one breakpoint, watchpoint, tracepoint or catchpoint row, or
// a location child ("N.M") of a multi-location breakpoint.
type Breakpoint struct {
	// ID is assigned by the backend; empty while unconfirmed or after the
	// backend forgot the breakpoint.
	ID        string
	SCID      int
	Type      BreakType
	Enabled   bool
	Temporary bool
	Pending   bool
	File      string
	Line      int
	Func      string
	Addr      string
	Location  string
	Display   string
	Times     int
	Ignore    string
	Cond      string
	Script    string
	RunApply  bool
	Discard   bool
	Missing   bool
}

// Leading reports whether the row is a primary breakpoint rather than a
// location child.
func (b Breakpoint) Leading() bool {
	return !strings.Contains(b.ID, ".")
}

// TypeLabel is the type column text, with ",t" for temporary rows.
func (b Breakpoint) TypeLabel() string {
	if b.Temporary {
		return b.Type.Label() + ",t"
	}
	return b.Type.Label()
}

// BreakpointSection is the persisted form of one breakpoint. Nil booleans and
// empty strings are keys absent from the section.
type BreakpointSection struct {
	Line      int
	Type      BreakType
	Enabled   *bool
	Pending   *bool
	RunApply  *bool
	Temporary *bool
	File      string
	Display   string
	Func      string
	Ignore    string
	Cond      string
	Script    string
	Location  string
}

type ThreadGroup struct {
	GID string
	PID string
}

// Thread state texts shown in the thread list.
const (
	ThreadTextRunning = "Running"
	ThreadTextStopped = "Stopped"
)

type Thread struct {
	ID       string
	GroupID  string
	PID      string
	State    string
	File     string
	Line     int
	BaseName string
	Func     string
	Addr     string
	TargetID string
	Core     string
}

func (t Thread) Stopped() bool { return t.State == ThreadTextStopped }

// ThreadState is the execution state of the selected thread. The order is
// meaningful: later values know more about the stop location.
type ThreadState int

const (
	ThreadBlank ThreadState = iota
	ThreadRunning
	ThreadStopped
	ThreadQueryFrame
	ThreadAtAssembler
	ThreadAtSource
)

func (s ThreadState) String() string {
	switch s {
	case ThreadBlank:
		return "blank"
	case ThreadRunning:
		return "running"
	case ThreadStopped:
		return "stopped"
	case ThreadQueryFrame:
		return "query_frame"
	case ThreadAtAssembler:
		return "at_assembler"
	case ThreadAtSource:
		return "at_source"
	default:
		return "unknown"
	}
}

// DebugState is the overall session state reported by the command channel.
type DebugState uint

const (
	StateInactive DebugState = 1 << iota
	StateBusy
	StateReady
	StateDebug
	StateHanging
)

const (
	StateSendable = StateReady | StateDebug | StateHanging
	StateActive   = StateDebug | StateHanging
	StateNotBusy  = StateInactive | StateSendable
)

func (s DebugState) Sendable() bool { return s&StateSendable != 0 }

// AsyncSupport records whether the backend emits breakpoint notifications.
type AsyncSupport int

const (
	AsyncUnknown AsyncSupport = iota - 1
	AsyncMissing
	AsyncSupported
)
