// Package sse decodes a server-sent-event byte stream into typed protocol
// events. Every decode or JSON failure is normalized into the domain error
// taxonomy here; nothing rawer escapes this boundary.
package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"lyricgate/internal/domain"
)

const readBufferSize = 4096

// Reader incrementally decodes one SSE stream. Chunks may split lines,
// multi-byte characters, and tag text anywhere; the trailing incomplete line
// of each chunk is carried into the next read rather than discarded.
type Reader struct {
	body io.Reader
	buf  []byte

	carry     []byte // bytes after the last line terminator
	eventType string // pending event: field for the current block
	data      []string

	queue    []domain.ProtocolEvent
	termErr  error // terminal error discovered while decoding
	finished bool
}

// NewReader creates a reader over an open response body.
func NewReader(body io.Reader) *Reader {
	return &Reader{
		body: body,
		buf:  make([]byte, readBufferSize),
	}
}

// Next returns the next protocol event in arrival order. It returns a
// terminal error instead once the stream settles: ServerError for an error
// event, ProtocolError for a malformed stream or one that closed without a
// terminal event, CancellationError when ctx fires. After a done event has
// been returned, Next returns io.EOF.
func (r *Reader) Next(ctx context.Context) (domain.ProtocolEvent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.ProtocolEvent{}, &domain.CancellationError{Err: err}
		}

		if len(r.queue) > 0 {
			ev := r.queue[0]
			r.queue = r.queue[1:]
			if ev.Type == domain.EventDone {
				r.finished = true
			}
			return ev, nil
		}

		if r.termErr != nil {
			return domain.ProtocolEvent{}, r.termErr
		}
		if r.finished {
			return domain.ProtocolEvent{}, io.EOF
		}

		n, err := r.body.Read(r.buf)
		if n > 0 {
			r.consume(r.buf[:n])
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.ProtocolEvent{}, &domain.CancellationError{Err: ctxErr}
			}
			// Deliver anything decoded from the final chunk first.
			if len(r.queue) > 0 || r.termErr != nil {
				continue
			}
			if err == io.EOF {
				return domain.ProtocolEvent{}, &domain.ProtocolError{Reason: domain.ErrNoResult.Error()}
			}
			return domain.ProtocolEvent{}, &domain.ProtocolError{Reason: domain.ErrNoResult.Error(), Err: err}
		}
	}
}

// consume splits a chunk into complete lines, carrying the trailing partial
// line. Splitting happens on the newline byte only, so multi-byte characters
// that straddle chunks reassemble before any text decoding happens.
func (r *Reader) consume(chunk []byte) {
	r.carry = append(r.carry, chunk...)
	for {
		idx := bytes.IndexByte(r.carry, '\n')
		if idx < 0 {
			return
		}
		line := string(bytes.TrimSuffix(r.carry[:idx], []byte("\r")))
		r.carry = r.carry[idx+1:]
		r.feedLine(line)
		if r.termErr != nil {
			return
		}
	}
}

// feedLine handles one complete line: field lines accumulate into the
// current block, a blank line dispatches it.
func (r *Reader) feedLine(line string) {
	if line == "" {
		r.dispatch()
		return
	}
	if strings.HasPrefix(line, ":") {
		return // comment
	}

	field, value := line, ""
	if idx := strings.Index(line, ":"); idx >= 0 {
		field = line[:idx]
		value = strings.TrimPrefix(line[idx+1:], " ")
	}

	switch field {
	case "event":
		r.eventType = value
	case "data":
		r.data = append(r.data, value)
	}
}

// dispatch turns the accumulated block into a protocol event.
func (r *Reader) dispatch() {
	eventType, data := r.eventType, strings.Join(r.data, "\n")
	r.eventType, r.data = "", nil

	if len(data) == 0 {
		return
	}

	switch domain.EventType(eventType) {
	case domain.EventToken, domain.EventReasoning:
		var text string
		if err := json.Unmarshal([]byte(data), &text); err != nil {
			r.termErr = &domain.ProtocolError{Reason: "malformed " + eventType + " payload", Err: err}
			return
		}
		r.queue = append(r.queue, domain.ProtocolEvent{
			Type: domain.EventType(eventType),
			Text: text,
		})

	case domain.EventDone:
		if !json.Valid([]byte(data)) {
			r.termErr = &domain.ProtocolError{Reason: "malformed done payload"}
			return
		}
		r.queue = append(r.queue, domain.ProtocolEvent{
			Type:    domain.EventDone,
			Payload: json.RawMessage(data),
		})

	case domain.EventError:
		var payload struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			r.termErr = &domain.ProtocolError{Reason: "malformed error payload", Err: err}
			return
		}
		msg := payload.Detail
		if msg == "" {
			msg = data
		}
		r.termErr = &domain.ServerError{Message: msg}

	default:
		// Unrecognized event names are skipped, not fatal.
	}
}
