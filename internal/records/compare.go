package records

import (
	"cmp"
	"strconv"
	"strings"
)

// CompareDottedID orders backend ids numerically, then by the location
// suffix, so "2" < "2.1" < "2.10" < "10". Empty ids sort first.
func CompareDottedID(a, b string) int {
	an, arest := splitNumber(a)
	bn, brest := splitNumber(b)
	if c := cmp.Compare(an, bn); c != 0 || a == "" || b == "" {
		return c
	}
	as, _ := splitNumber(strings.TrimPrefix(arest, "."))
	bs, _ := splitNumber(strings.TrimPrefix(brest, "."))
	return cmp.Compare(as, bs)
}

// CompareIdent orders identifiers such as "process 12" or "i2": when the
// parts before the first digit are equal the trailing numbers are compared,
// otherwise plain string order applies.
func CompareIdent(a, b string) int {
	ai := strings.IndexFunc(a, isDigit)
	bi := strings.IndexFunc(b, isDigit)
	if ai >= 0 && bi >= 0 && a[:ai] == b[:bi] {
		an, _ := splitNumber(a[ai:])
		bn, _ := splitNumber(b[bi:])
		return cmp.Compare(an, bn)
	}
	return strings.Compare(a, b)
}

// CompareNumeric orders decimal texts by value; non-numeric texts count as 0.
func CompareNumeric(a, b string) int {
	an, _ := strconv.Atoi(a)
	bn, _ := strconv.Atoi(b)
	return cmp.Compare(an, bn)
}

// CompareSeek orders source positions by file, then line.
func CompareSeek(fileA string, lineA int, fileB string, lineB int) int {
	if c := strings.Compare(fileA, fileB); c != 0 {
		return c
	}
	return cmp.Compare(lineA, lineB)
}

func splitNumber(s string) (int, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, _ := strconv.Atoi(s[:i])
	return n, s[i:]
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
