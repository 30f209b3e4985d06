package sse

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

const DefaultMaxLineSize = 1 << 20

type Event struct {
	ID    string
	Event string
	Data  []byte
}

// Reader decodes a text/event-stream body into events. It does not
// reconnect and ignores the retry field.
type Reader struct {
	sc  *bufio.Scanner
	eof bool
}

func NewReader(r io.Reader) *Reader {
	return NewReaderSize(r, DefaultMaxLineSize)
}

func NewReaderSize(r io.Reader, maxLine int) *Reader {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(4096, maxLine)), maxLine)
	sc.Split(scanLines)
	return &Reader{sc: sc}
}

// Next returns the next event that carried at least one data line. It
// returns io.EOF once the body ends cleanly.
func (r *Reader) Next() (Event, error) {
	if r.eof {
		return Event{}, io.EOF
	}

	var ev Event
	var data bytes.Buffer
	hasData := false

	for r.sc.Scan() {
		line := r.sc.Bytes()
		if len(line) == 0 {
			if hasData {
				ev.Data = data.Bytes()
				return ev, nil
			}
			ev = Event{}
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field = line[:i]
			value = line[i+1:]
			if len(value) > 0 && value[0] == ' ' {
				value = value[1:]
			}
		}

		switch string(field) {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.Write(value)
			hasData = true
		case "event":
			ev.Event = string(value)
		case "id":
			ev.ID = string(value)
		}
	}

	if err := r.sc.Err(); err != nil {
		return Event{}, errors.Wrap(err, "read event stream")
	}
	r.eof = true
	if hasData {
		ev.Data = data.Bytes()
		return ev, nil
	}
	return Event{}, io.EOF
}

// scanLines splits on \n, \r\n or a lone \r.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if !atEOF {
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
