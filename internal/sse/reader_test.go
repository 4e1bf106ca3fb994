package sse

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"lyricgate/internal/domain"
)

// chunkReader delivers at most size bytes per Read to exercise arbitrary
// chunk boundaries.
type chunkReader struct {
	data []byte
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.size
	if n > len(c.data) {
		n = len(c.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func readAll(t *testing.T, body io.Reader) ([]domain.ProtocolEvent, error) {
	t.Helper()
	r := NewReader(body)
	var events []domain.ProtocolEvent
	for {
		ev, err := r.Next(context.Background())
		if err != nil {
			if err == io.EOF {
				return events, nil
			}
			return events, err
		}
		events = append(events, ev)
		if ev.Type == domain.EventDone {
			return events, nil
		}
	}
}

const sampleStream = "event: reasoning\n" +
	"data: \"thinking about rhyme\"\n" +
	"\n" +
	"event: token\n" +
	"data: \"Hello \"\n" +
	"\n" +
	"event: token\n" +
	"data: \"world\"\n" +
	"\n" +
	"event: done\n" +
	"data: {\"title\": \"Song\"}\n" +
	"\n"

func TestReaderDecodesEventSequence(t *testing.T) {
	events, err := readAll(t, strings.NewReader(sampleStream))
	if err != nil {
		t.Fatal(err)
	}

	want := []struct {
		typ  domain.EventType
		text string
	}{
		{domain.EventReasoning, "thinking about rhyme"},
		{domain.EventToken, "Hello "},
		{domain.EventToken, "world"},
		{domain.EventDone, ""},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, w := range want {
		if events[i].Type != w.typ {
			t.Errorf("event %d: type = %q, want %q", i, events[i].Type, w.typ)
		}
		if events[i].Text != w.text {
			t.Errorf("event %d: text = %q, want %q", i, events[i].Text, w.text)
		}
	}
	if got := string(events[3].Payload); got != `{"title": "Song"}` {
		t.Errorf("done payload = %q", got)
	}
}

func TestReaderChunkingIndependence(t *testing.T) {
	whole, err := readAll(t, strings.NewReader(sampleStream))
	if err != nil {
		t.Fatal(err)
	}

	for _, size := range []int{1, 2, 3, 7, 16} {
		chunked, err := readAll(t, &chunkReader{data: []byte(sampleStream), size: size})
		if err != nil {
			t.Fatalf("chunk size %d: %v", size, err)
		}
		if len(chunked) != len(whole) {
			t.Fatalf("chunk size %d: got %d events, want %d", size, len(chunked), len(whole))
		}
		for i := range whole {
			if chunked[i].Type != whole[i].Type || chunked[i].Text != whole[i].Text ||
				string(chunked[i].Payload) != string(whole[i].Payload) {
				t.Errorf("chunk size %d: event %d differs", size, i)
			}
		}
	}
}

func TestReaderMultiByteCharacterAcrossChunks(t *testing.T) {
	// "héllo 🎵" in the token payload, delivered one byte at a time so both
	// the two-byte and four-byte sequences split across reads.
	stream := "event: token\ndata: \"héllo 🎵\"\n\nevent: done\ndata: {}\n\n"
	events, err := readAll(t, &chunkReader{data: []byte(stream), size: 1})
	if err != nil {
		t.Fatal(err)
	}
	if events[0].Text != "héllo 🎵" {
		t.Errorf("token text = %q, want %q", events[0].Text, "héllo 🎵")
	}
}

func TestReaderErrorEvent(t *testing.T) {
	stream := "event: error\ndata: {\"detail\": \"Quota exceeded.\"}\n\n"
	_, err := readAll(t, strings.NewReader(stream))

	var serverErr *domain.ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if serverErr.Message != "Quota exceeded." {
		t.Errorf("message = %q, want %q", serverErr.Message, "Quota exceeded.")
	}
}

func TestReaderTokensBeforeErrorAreDelivered(t *testing.T) {
	stream := "event: token\ndata: \"partial\"\n\nevent: error\ndata: {\"detail\": \"boom\"}\n\n"
	events, err := readAll(t, strings.NewReader(stream))
	if len(events) != 1 || events[0].Text != "partial" {
		t.Errorf("events before error = %+v, want the partial token", events)
	}
	var serverErr *domain.ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
}

func TestReaderEOFWithoutTerminal(t *testing.T) {
	stream := "event: token\ndata: \"only tokens\"\n\n"
	events, err := readAll(t, strings.NewReader(stream))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	var protoErr *domain.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	var serverErr *domain.ServerError
	if errors.As(err, &serverErr) {
		t.Error("EOF without terminal must not look like a ServerError")
	}
}

func TestReaderMalformedPayloads(t *testing.T) {
	tests := []struct {
		name   string
		stream string
	}{
		{name: "token not a JSON string", stream: "event: token\ndata: {broken\n\n"},
		{name: "done not valid JSON", stream: "event: done\ndata: {\"unclosed\"\n\n"},
		{name: "error not valid JSON", stream: "event: error\ndata: nope\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readAll(t, strings.NewReader(tt.stream))
			var protoErr *domain.ProtocolError
			if !errors.As(err, &protoErr) {
				t.Errorf("expected ProtocolError, got %v", err)
			}
		})
	}
}

func TestReaderIgnoresCommentsAndUnknownEvents(t *testing.T) {
	stream := ": keep-alive\n\nevent: ping\ndata: {}\n\nevent: done\ndata: {\"ok\": true}\n\n"
	events, err := readAll(t, strings.NewReader(stream))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Type != domain.EventDone {
		t.Errorf("events = %+v, want only done", events)
	}
}

func TestReaderCRLFLines(t *testing.T) {
	stream := "event: token\r\ndata: \"crlf\"\r\n\r\nevent: done\r\ndata: {}\r\n\r\n"
	events, err := readAll(t, strings.NewReader(stream))
	if err != nil {
		t.Fatal(err)
	}
	if events[0].Text != "crlf" {
		t.Errorf("token text = %q, want %q", events[0].Text, "crlf")
	}
}

func TestReaderCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	r := NewReader(pr)
	done := make(chan error, 1)
	go func() {
		_, err := r.Next(ctx)
		done <- err
	}()

	// Simulate the transport aborting the body read when the request context
	// is cancelled.
	cancel()
	pw.CloseWithError(context.Canceled)

	err := <-done
	if !domain.IsCancellation(err) {
		t.Fatalf("expected CancellationError, got %v", err)
	}
}

func TestReaderNextAfterDone(t *testing.T) {
	r := NewReader(strings.NewReader("event: done\ndata: {}\n\n"))
	if _, err := r.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(context.Background()); err != io.EOF {
		t.Errorf("Next after done = %v, want io.EOF", err)
	}
}
