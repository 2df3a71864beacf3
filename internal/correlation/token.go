// Package correlation encodes the tokens that tie an outbound MI command to
// its eventual reply. MI tokens must be digits, so a token is rendered as a
// "0" marker, a two-digit operation and the reference digits.
package correlation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrForeign   = errors.New("foreign token")
	ErrMalformed = errors.New("malformed token")
	ErrUnknownOp = errors.New("unknown token operation")
)

type Op int

const (
	OpNone Op = iota

	OpBreakApply   Op = 10
	OpBreakGoto    Op = 11
	OpBreakDiscard Op = 12
	OpBreakEnable  Op = 20
	OpBreakDisable Op = 21
	OpBreakInfo    Op = 22
	OpBreakDelete  Op = 23
	OpBreakList    Op = 24

	OpThreadInfo   Op = 40
	OpThreadFollow Op = 41
	OpThreadFrame  Op = 42
	OpThreadSelect Op = 43

	OpFeatures Op = 50
)

type refKind int

const (
	refNone refKind = iota
	refSCID
	refID
)

var opRefs = map[Op]refKind{
	OpBreakApply:   refSCID,
	OpBreakGoto:    refNone,
	OpBreakDiscard: refNone,
	OpBreakEnable:  refSCID,
	OpBreakDisable: refSCID,
	OpBreakInfo:    refID,
	OpBreakDelete:  refID,
	OpBreakList:    refNone,
	OpThreadInfo:   refNone,
	OpThreadFollow: refNone,
	OpThreadFrame:  refID,
	OpThreadSelect: refID,
	OpFeatures:     refNone,
}

func (op Op) String() string {
	switch op {
	case OpBreakApply:
		return "break_apply"
	case OpBreakGoto:
		return "break_goto"
	case OpBreakDiscard:
		return "break_discard"
	case OpBreakEnable:
		return "break_enable"
	case OpBreakDisable:
		return "break_disable"
	case OpBreakInfo:
		return "break_info"
	case OpBreakDelete:
		return "break_delete"
	case OpBreakList:
		return "break_list"
	case OpThreadInfo:
		return "thread_info"
	case OpThreadFollow:
		return "thread_follow"
	case OpThreadFrame:
		return "thread_frame"
	case OpThreadSelect:
		return "thread_select"
	case OpFeatures:
		return "features"
	default:
		return "op" + strconv.Itoa(int(op))
	}
}

// Token identifies the operation a reply answers and the record it concerns:
// SCID for creations not yet confirmed, ID for established records.
type Token struct {
	Op   Op
	SCID int
	ID   string
}

func Apply(scid int) Token { return Token{Op: OpBreakApply, SCID: scid} }

func Enable(scid int, on bool) Token { return Token{Op: enableOp(on), SCID: scid} }

func Info(id string) Token { return Token{Op: OpBreakInfo, ID: id} }

func Delete(id string) Token { return Token{Op: OpBreakDelete, ID: id} }

func Frame(tid string) Token { return Token{Op: OpThreadFrame, ID: tid} }

func Select(tid string) Token { return Token{Op: OpThreadSelect, ID: tid} }

func Plain(op Op) Token { return Token{Op: op} }

func enableOp(on bool) Op {
	if on {
		return OpBreakEnable
	}
	return OpBreakDisable
}

// Encode renders the wire token. Only the numeric prefix of an id is
// carried, since location children ("N.M") share the backend number N.
func (t Token) Encode() (string, error) {
	kind, ok := opRefs[t.Op]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownOp, int(t.Op))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "0%02d", int(t.Op))
	switch kind {
	case refSCID:
		if t.SCID <= 0 {
			return "", fmt.Errorf("%w: %s without scid", ErrMalformed, t.Op)
		}
		b.WriteString(strconv.Itoa(t.SCID))
	case refID:
		digits := leadingDigits(t.ID)
		if digits == "" {
			return "", fmt.Errorf("%w: %s with id %q", ErrMalformed, t.Op, t.ID)
		}
		b.WriteString(digits)
	}
	return b.String(), nil
}

// Decode parses an echoed token. Tokens not produced by Encode yield
// ErrForeign.
func Decode(raw string) (Token, error) {
	if raw == "" || raw[0] != '0' {
		return Token{}, fmt.Errorf("%w: %q", ErrForeign, raw)
	}
	if len(raw) < 3 || !isDigits(raw) {
		return Token{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	code, _ := strconv.Atoi(raw[1:3])
	op := Op(code)
	kind, ok := opRefs[op]
	if !ok {
		return Token{}, fmt.Errorf("%w: %q", ErrUnknownOp, raw)
	}
	ref := raw[3:]
	tok := Token{Op: op}
	switch kind {
	case refNone:
		if ref != "" {
			return Token{}, fmt.Errorf("%w: %q carries a reference", ErrMalformed, raw)
		}
	case refSCID:
		scid, err := strconv.Atoi(ref)
		if err != nil || scid <= 0 {
			return Token{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
		}
		tok.SCID = scid
	case refID:
		if ref == "" {
			return Token{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
		}
		tok.ID = ref
	}
	return tok, nil
}

// Command prefixes the command text with the encoded token.
func (t Token) Command(text string) (string, error) {
	wire, err := t.Encode()
	if err != nil {
		return "", err
	}
	return wire + text, nil
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
