// Package stream drives one streaming call end to end: authenticated
// connect, event decode, channel split, and settlement into a typed result
// or error.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"lyricgate/internal/domain"
	"lyricgate/internal/responses"
	"lyricgate/internal/splitter"
	"lyricgate/internal/sse"
	"lyricgate/internal/telemetry"
)

// Streamer opens an authenticated streaming call. Satisfied by
// *transport.Requester.
type Streamer interface {
	Stream(ctx context.Context, url string, payload any) (*http.Response, error)
}

// Callbacks receive progress while a stream runs. Any of them may be nil.
// OnChat carries the free-form narration; OnContent fires only when the
// structured channel has new data, so transcript-style callers can ignore
// it. OnReasoning stays separate because provisional thinking text is never
// authoritative and must not leak into either channel.
type Callbacks struct {
	OnChat      func(delta, total string)
	OnContent   func(delta, total string)
	OnReasoning func(delta, total string)
}

// Orchestrator composes the transport, reader, and splitter. One instance
// drives one logical stream at a time per Run call; concurrent Run calls own
// independent reader and splitter state.
type Orchestrator struct {
	requester Streamer
	openTag   string
	closeTag  string
	validator *responses.Validator
	metrics   *telemetry.Metrics
}

// New creates an orchestrator. validator and metrics may be nil.
func New(requester Streamer, openTag, closeTag string, validator *responses.Validator, metrics *telemetry.Metrics) *Orchestrator {
	return &Orchestrator{
		requester: requester,
		openTag:   openTag,
		closeTag:  closeTag,
		validator: validator,
		metrics:   metrics,
	}
}

// Run opens the streaming call and processes events in arrival order until
// the stream settles. It returns the done payload, or exactly one of the
// typed errors: AuthenticationError, ServerError, ProtocolError,
// CancellationError.
func (o *Orchestrator) Run(ctx context.Context, url string, payload any, cb Callbacks) (*domain.StreamResult, error) {
	streamID := uuid.NewString()
	started := time.Now()
	state := domain.StateConnecting
	slog.Debug("opening stream", "stream_id", streamID, "url", url)

	settle := func(next domain.StreamState) {
		if state.Terminal() {
			// Settlement happens exactly once; late transitions are ignored.
			return
		}
		state = next
		o.metrics.RecordSettlement(string(next), time.Since(started).Seconds())
		slog.Debug("stream settled", "stream_id", streamID, "state", state,
			"elapsed", time.Since(started).Round(time.Millisecond))
	}

	o.metrics.RecordStreamStart()

	resp, err := o.requester.Stream(ctx, url, payload)
	if err != nil {
		settle(settlementFor(err))
		return nil, err
	}
	defer resp.Body.Close()

	state = domain.StateStreaming
	reader := sse.NewReader(resp.Body)
	split := splitter.New(o.openTag, o.closeTag)
	var reasoning strings.Builder

	for {
		ev, err := reader.Next(ctx)
		if err != nil {
			settle(settlementFor(err))
			return nil, err
		}
		o.metrics.RecordEvent(string(ev.Type))

		switch ev.Type {
		case domain.EventToken:
			chatDelta, contentDelta := split.ProcessToken(ev.Text)
			if chatDelta != "" && cb.OnChat != nil {
				cb.OnChat(chatDelta, split.ChatText())
			}
			if contentDelta != "" && cb.OnContent != nil {
				cb.OnContent(contentDelta, split.ContentText())
			}

		case domain.EventReasoning:
			reasoning.WriteString(ev.Text)
			if cb.OnReasoning != nil {
				cb.OnReasoning(ev.Text, reasoning.String())
			}

		case domain.EventDone:
			result, err := o.decodeResult(ev.Payload)
			if err != nil {
				settle(domain.StateRejected)
				return nil, err
			}
			settle(domain.StateResolved)
			return result, nil
		}
	}
}

// decodeResult parses and, when a validator is configured, validates the
// done payload. Either failure is a ProtocolError: the server said nothing
// human-readable, so there is no message to carry.
func (o *Orchestrator) decodeResult(payload json.RawMessage) (*domain.StreamResult, error) {
	var parsed map[string]any
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, &domain.ProtocolError{Reason: "done payload is not an object", Err: err}
	}
	if o.validator != nil {
		if err := o.validator.Validate(payload); err != nil {
			return nil, &domain.ProtocolError{Reason: "done payload failed validation", Err: err}
		}
	}
	return &domain.StreamResult{Payload: parsed, Raw: payload}, nil
}

func settlementFor(err error) domain.StreamState {
	if domain.IsCancellation(err) {
		return domain.StateCancelled
	}
	return domain.StateRejected
}
