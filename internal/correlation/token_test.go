package correlation

import (
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Token{
		Apply(7),
		Enable(12, true),
		Enable(12, false),
		Info("3"),
		Delete("14"),
		Frame("2"),
		Select("5"),
		Plain(OpBreakGoto),
		Plain(OpBreakList),
		Plain(OpFeatures),
	}
	for _, tok := range cases {
		wire, err := tok.Encode()
		if err != nil {
			t.Fatalf("encode %+v: %v", tok, err)
		}
		got, err := Decode(wire)
		if err != nil {
			t.Fatalf("decode %q: %v", wire, err)
		}
		if got != tok {
			t.Fatalf("round trip mismatch: in=%+v wire=%q out=%+v", tok, wire, got)
		}
	}
}

func TestEncodeWireShape(t *testing.T) {
	wire, err := Apply(7).Encode()
	if err != nil || wire != "0107" {
		t.Fatalf("unexpected apply token %q err=%v", wire, err)
	}
	wire, err = Delete("3.2").Encode()
	if err != nil || wire != "0233" {
		t.Fatalf("child id must encode its number only, got %q err=%v", wire, err)
	}
	cmd, err := Plain(OpBreakList).Command("-break-list")
	if err != nil || cmd != "024-break-list" {
		t.Fatalf("unexpected command %q err=%v", cmd, err)
	}
}

func TestEncodeRejectsMissingReference(t *testing.T) {
	if _, err := Apply(0).Encode(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed for scid 0, got %v", err)
	}
	if _, err := Info("").Encode(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed for empty id, got %v", err)
	}
	if _, err := (Token{Op: 99}).Encode(); !errors.Is(err, ErrUnknownOp) {
		t.Fatalf("expected unknown op, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]error{
		"":      ErrForeign,
		"17":    ErrForeign,
		"0":     ErrMalformed,
		"01a":   ErrMalformed,
		"099":   ErrUnknownOp,
		"010":   ErrMalformed,
		"0245":  ErrMalformed,
		"022":   ErrMalformed,
		"0100x": ErrMalformed,
	}
	for raw, want := range cases {
		if _, err := Decode(raw); !errors.Is(err, want) {
			t.Fatalf("Decode(%q) err=%v want %v", raw, err, want)
		}
	}
}
