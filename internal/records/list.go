// Package records holds the ordered row containers owned by the managers.
package records

import "slices"

// List keeps rows in display order. Rows are pointers so callers mutate them
// in place; the list only tracks order and membership.
type List[T any] struct {
	rows []*T
}

func (l *List[T]) Len() int { return len(l.rows) }

func (l *List[T]) At(i int) *T { return l.rows[i] }

func (l *List[T]) Append(row *T) int {
	l.rows = append(l.rows, row)
	return len(l.rows) - 1
}

// InsertAfter places row right after index i; i < 0 inserts at the front.
func (l *List[T]) InsertAfter(i int, row *T) int {
	pos := i + 1
	if pos < 0 {
		pos = 0
	}
	if pos > len(l.rows) {
		pos = len(l.rows)
	}
	l.rows = slices.Insert(l.rows, pos, row)
	return pos
}

func (l *List[T]) RemoveAt(i int) *T {
	row := l.rows[i]
	l.rows = slices.Delete(l.rows, i, i+1)
	return row
}

// Remove drops row by identity and reports whether it was present.
func (l *List[T]) Remove(row *T) bool {
	i := l.IndexOf(row)
	if i < 0 {
		return false
	}
	l.RemoveAt(i)
	return true
}

func (l *List[T]) IndexOf(row *T) int {
	for i, r := range l.rows {
		if r == row {
			return i
		}
	}
	return -1
}

func (l *List[T]) Index(match func(*T) bool) int {
	return slices.IndexFunc(l.rows, match)
}

func (l *List[T]) Find(match func(*T) bool) (*T, bool) {
	i := l.Index(match)
	if i < 0 {
		return nil, false
	}
	return l.rows[i], true
}

// Each visits rows in order. The callback must not add or remove rows.
func (l *List[T]) Each(fn func(*T)) {
	for _, r := range l.rows {
		fn(r)
	}
}

// RemoveFunc drops every matching row and returns them in order.
func (l *List[T]) RemoveFunc(match func(*T) bool) []*T {
	var removed []*T
	kept := l.rows[:0]
	for _, r := range l.rows {
		if match(r) {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	clear(l.rows[len(kept):])
	l.rows = kept
	return removed
}

func (l *List[T]) Clear() {
	l.rows = nil
}

// Snapshot returns row copies in display order.
func (l *List[T]) Snapshot() []T {
	out := make([]T, 0, len(l.rows))
	for _, r := range l.rows {
		out = append(out, *r)
	}
	return out
}

// Sorted returns row copies ordered by cmp; equal rows keep display order.
func (l *List[T]) Sorted(cmp func(a, b T) int) []T {
	out := l.Snapshot()
	slices.SortStableFunc(out, cmp)
	return out
}
