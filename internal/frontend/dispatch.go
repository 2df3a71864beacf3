// Package frontend routes parsed MI records to the breakpoint and thread
// managers and drives the session lifecycle.
package frontend

import (
	"errors"
	"fmt"
	"sync"

	"github.com/g960059/miscope/internal/breakpoint"
	"github.com/g960059/miscope/internal/correlation"
	"github.com/g960059/miscope/internal/mi"
	"github.com/g960059/miscope/internal/model"
	"github.com/g960059/miscope/internal/session"
	"github.com/g960059/miscope/internal/thread"
)

// Kind is the closed set of records the core reacts to.
type Kind int

const (
	KindUnknown Kind = iota
	KindBreakInserted
	KindBreakList
	KindBreakCreated
	KindBreakDeleted
	KindBreakDone
	KindFeatures
	KindGroupAdded
	KindGroupStarted
	KindGroupExited
	KindGroupRemoved
	KindThreadCreated
	KindThreadExited
	KindThreadSelected
	KindRunning
	KindStopped
	KindThreadInfo
	KindFrame
	KindSelectDone
	KindQuietError
	KindError
)

var kindNames = [...]string{
	KindUnknown:        "unknown",
	KindBreakInserted:  "break_inserted",
	KindBreakList:      "break_list",
	KindBreakCreated:   "break_created",
	KindBreakDeleted:   "break_deleted",
	KindBreakDone:      "break_done",
	KindFeatures:       "features",
	KindGroupAdded:     "group_added",
	KindGroupStarted:   "group_started",
	KindGroupExited:    "group_exited",
	KindGroupRemoved:   "group_removed",
	KindThreadCreated:  "thread_created",
	KindThreadExited:   "thread_exited",
	KindThreadSelected: "thread_selected",
	KindRunning:        "running",
	KindStopped:        "stopped",
	KindThreadInfo:     "thread_info",
	KindFrame:          "frame",
	KindSelectDone:     "select_done",
	KindQuietError:     "quiet_error",
	KindError:          "error",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind%d", int(k))
	}
	return kindNames[k]
}

var notifications = map[string]Kind{
	"=breakpoint-created":   KindBreakCreated,
	"=breakpoint-modified":  KindBreakCreated,
	"=breakpoint-deleted":   KindBreakDeleted,
	"=thread-group-added":   KindGroupAdded,
	"=thread-group-started": KindGroupStarted,
	"=thread-group-exited":  KindGroupExited,
	"=thread-group-removed": KindGroupRemoved,
	"=thread-created":       KindThreadCreated,
	"=thread-exited":        KindThreadExited,
	"=thread-selected":      KindThreadSelected,
	"*running":              KindRunning,
	"*stopped":              KindStopped,
}

var doneResults = map[string]Kind{
	"bkpt":            KindBreakInserted,
	"wpt":             KindBreakInserted,
	"hw-awpt":         KindBreakInserted,
	"hw-rwpt":         KindBreakInserted,
	"BreakpointTable": KindBreakList,
	"threads":         KindThreadInfo,
	"features":        KindFeatures,
}

// Classify maps a record to its kind. The decoded token is returned when
// the record carries one of ours; foreign tokens decode to the zero token.
func Classify(msg mi.Message) (Kind, correlation.Token) {
	var tok correlation.Token
	if raw, ok := msg.GrabToken(); ok {
		tok, _ = correlation.Decode(raw)
	}
	if kind, ok := notifications[msg.Class]; ok {
		return kind, tok
	}
	switch msg.Class {
	case "^done":
		switch tok.Op {
		case correlation.OpThreadFrame:
			return KindFrame, tok
		case correlation.OpThreadSelect:
			return KindSelectDone, tok
		case correlation.OpBreakEnable, correlation.OpBreakDisable, correlation.OpBreakInfo, correlation.OpBreakDelete:
			return KindBreakDone, tok
		}
		if len(msg.Results) > 0 {
			if kind, ok := doneResults[msg.Results[0].Name]; ok {
				return kind, tok
			}
		}
	case "^error":
		switch tok.Op {
		case correlation.OpThreadInfo, correlation.OpThreadFollow, correlation.OpThreadFrame, correlation.OpThreadSelect:
			return KindQuietError, tok
		}
		return KindError, tok
	}
	return KindUnknown, tok
}

type handler func(msg mi.Message, tok correlation.Token)

// Frontend owns one debugging session's managers. All entry points are
// serialized, so records may be fed from a reader goroutine while the
// caller issues user operations through Do.
type Frontend struct {
	mu       sync.Mutex
	ctx      *session.Context
	breaks   *breakpoint.Manager
	threads  *thread.Manager
	handlers map[Kind]handler
}

func New(ctx *session.Context, breaks *breakpoint.Manager, threads *thread.Manager) *Frontend {
	f := &Frontend{ctx: ctx, breaks: breaks, threads: threads}
	f.handlers = map[Kind]handler{
		KindBreakInserted:  func(msg mi.Message, _ correlation.Token) { breaks.OnInserted(msg) },
		KindBreakList:      func(msg mi.Message, _ correlation.Token) { breaks.OnList(msg) },
		KindBreakCreated:   func(msg mi.Message, _ correlation.Token) { breaks.OnCreated(msg) },
		KindBreakDeleted:   func(msg mi.Message, _ correlation.Token) { breaks.OnDeleted(msg) },
		KindBreakDone:      func(msg mi.Message, _ correlation.Token) { breaks.OnDone(msg) },
		KindFeatures:       func(msg mi.Message, _ correlation.Token) { breaks.OnFeatures(msg) },
		KindGroupAdded:     func(msg mi.Message, _ correlation.Token) { threads.OnGroupAdded(msg) },
		KindGroupStarted:   func(msg mi.Message, _ correlation.Token) { threads.OnGroupStarted(msg) },
		KindGroupExited:    func(msg mi.Message, _ correlation.Token) { threads.OnGroupExited(msg) },
		KindGroupRemoved:   func(msg mi.Message, _ correlation.Token) { threads.OnGroupRemoved(msg) },
		KindThreadCreated:  func(msg mi.Message, _ correlation.Token) { threads.OnCreated(msg) },
		KindThreadExited:   func(msg mi.Message, _ correlation.Token) { threads.OnExited(msg) },
		KindThreadSelected: func(msg mi.Message, _ correlation.Token) { threads.OnSelected(msg) },
		KindRunning:        func(msg mi.Message, _ correlation.Token) { threads.OnRunning(msg) },
		KindStopped: func(msg mi.Message, _ correlation.Token) {
			breaks.OnStopped(msg)
			threads.OnStopped(msg)
			// picks up breakpoints the backend deleted on its own
			if ctx.BreakAsync != model.AsyncSupported && ctx.State().Sendable() {
				ctx.Report(breaks.Refresh())
			}
		},
		KindThreadInfo: func(msg mi.Message, tok correlation.Token) {
			threads.OnInfo(msg, tok.Op == correlation.OpThreadFollow)
		},
		KindFrame:      threads.OnFrame,
		KindSelectDone: threads.OnSelectDone,
		KindQuietError: func(mi.Message, correlation.Token) { ctx.UI.Blink() },
		KindError: func(msg mi.Message, _ correlation.Token) {
			text, ok := msg.Results.Value("msg")
			if !ok {
				text = "unknown error"
			}
			ctx.Errorf("%s", text)
		},
	}
	return f
}

// Dispatch routes one record and reports how it was classified. Records of
// unknown kind are ignored.
func (f *Frontend) Dispatch(msg mi.Message) Kind {
	kind, tok := Classify(msg)
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.handlers[kind]; ok {
		h(msg, tok)
	}
	return kind
}

// Do runs fn with exclusive access to the managers.
func (f *Frontend) Do(fn func(breaks *breakpoint.Manager, threads *thread.Manager) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f.breaks, f.threads)
}

// Start runs the session-start sequence: probe breakpoint notifications and
// push the breakpoints marked for apply.
func (f *Frontend) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.breaks.QueryAsync()
	f.breaks.ApplyAll()
}

// Stop tears the session down. Breakpoint rows survive with their backend
// state cleared.
func (f *Frontend) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads.Clear()
	f.breaks.Clear()
	f.ctx.Reset()
}

// IsQuiet reports whether err is a precondition failure already signalled
// to the user.
func IsQuiet(err error) bool {
	return errors.Is(err, breakpoint.ErrNotSendable) ||
		errors.Is(err, breakpoint.ErrNoThread) ||
		errors.Is(err, breakpoint.ErrAmbiguous) ||
		errors.Is(err, thread.ErrNoSelection) ||
		errors.Is(err, thread.ErrNoProcess)
}
