// Package transcript stores parsed MI records as JSON lines, one record per
// line:
//
//	{"class":"^done","token":"0101","results":[{"name":"bkpt","items":[...]}]}
//
// Blank lines and lines starting with '#' are skipped on read.
package transcript

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/g960059/miscope/internal/mi"
)

const (
	scannerInitialBuffer = 64 * 1024
	scannerMaxBuffer     = 10 * 1024 * 1024
)

var ErrInvalidRecord = errors.New("invalid transcript record")

type record struct {
	Class   string   `json:"class"`
	Token   *string  `json:"token,omitempty"`
	Results mi.Nodes `json:"results"`
}

type Reader struct {
	scanner *bufio.Scanner
	line    int
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scannerInitialBuffer), scannerMaxBuffer)
	return &Reader{scanner: scanner}
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (mi.Message, error) {
	for r.scanner.Scan() {
		r.line++
		raw := strings.TrimSpace(r.scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return mi.Message{}, fmt.Errorf("%w: line %d: %v", ErrInvalidRecord, r.line, err)
		}
		msg, err := rec.message()
		if err != nil {
			return mi.Message{}, fmt.Errorf("%w: line %d: %v", ErrInvalidRecord, r.line, err)
		}
		return msg, nil
	}
	if err := r.scanner.Err(); err != nil {
		return mi.Message{}, fmt.Errorf("scan transcript: %w", err)
	}
	return mi.Message{}, io.EOF
}

func (rec record) message() (mi.Message, error) {
	if len(rec.Class) < 2 || !strings.ContainsRune("^*=+", rune(rec.Class[0])) {
		return mi.Message{}, fmt.Errorf("bad class %q", rec.Class)
	}
	msg := mi.Message{Class: rec.Class, Results: rec.Results}
	if rec.Token != nil {
		if *rec.Token == "" || strings.Trim(*rec.Token, "0123456789") != "" {
			return mi.Message{}, fmt.Errorf("bad token %q", *rec.Token)
		}
		msg.Token = *rec.Token
		msg.HasToken = true
	}
	if msg.Results == nil {
		msg.Results = mi.Nodes{}
	}
	return msg, nil
}

// ReadAll reads every record of r.
func ReadAll(r io.Reader) ([]mi.Message, error) {
	tr := NewReader(r)
	out := make([]mi.Message, 0)
	for {
		msg, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
}

type Writer struct {
	enc *json.Encoder
}

func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{enc: enc}
}

func (w *Writer) Write(msg mi.Message) error {
	rec := record{Class: msg.Class, Results: msg.Results}
	if msg.HasToken {
		token := msg.Token
		rec.Token = &token
	}
	if rec.Results == nil {
		rec.Results = mi.Nodes{}
	}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}
