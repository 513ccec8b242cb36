package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/lmproxy/proxy-contract-tests/logging"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// DoneSentinel is the data payload that ends an event stream.
const DoneSentinel = "[DONE]"

// Event is one server-sent event's data payload.
type Event struct {
	// Data is the event's data lines joined with "\n".
	Data string

	// Value is the parsed JSON payload, or ldvalue.Null() if Data is not JSON.
	Value ldvalue.Value
}

// IsJSON reports whether Data parsed as a JSON document.
func (e Event) IsJSON() bool {
	return !e.Value.IsNull()
}

// EventStream reads a server-sent event response progressively. It is a single-pass
// sequence: once an event has been returned it cannot be read again, and once the stream
// has ended every further read returns nothing.
//
// The stream ends when the "[DONE]" sentinel arrives, when the body ends, or on a read
// error. Comment lines and fields other than "data" are ignored.
type EventStream struct {
	reader     *bufio.Reader
	body       io.Closer
	cancel     context.CancelFunc
	logger     logging.Logger
	pending    []string
	count      int
	eof        bool
	closed     bool
	terminated bool
	err        error
}

func newEventStream(body io.ReadCloser, cancel context.CancelFunc, logger logging.Logger) *EventStream {
	if logger == nil {
		logger = logging.NullLogger()
	}
	return &EventStream{
		reader: bufio.NewReader(body),
		body:   body,
		cancel: cancel,
		logger: logger,
	}
}

// NewEventStream wraps an arbitrary reader, such as a recorded response body.
func NewEventStream(body io.Reader, logger logging.Logger) *EventStream {
	rc, ok := body.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(body)
	}
	return newEventStream(rc, nil, logger)
}

// Next returns the next event, or false if the stream has ended.
func (s *EventStream) Next() (Event, bool) {
	for {
		if s.closed {
			return Event{}, false
		}
		if s.eof {
			// an event that was not followed by a blank line is still delivered
			if e, ok := s.dispatch(); ok {
				return e, true
			}
			s.finish()
			return Event{}, false
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			s.eof = true
			if err != io.EOF {
				s.err = fmt.Errorf("error reading event stream: %w", err)
			}
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if !s.eof {
				if e, ok := s.dispatch(); ok {
					return e, true
				}
			}
			continue
		}
		s.processField(line)
	}
}

// Events returns the stream as a range-over-func sequence. Breaking out of the loop closes
// the stream.
func (s *EventStream) Events() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		defer s.Close()
		for {
			e, ok := s.Next()
			if !ok || !yield(e) {
				return
			}
		}
	}
}

// Collect reads all remaining events.
func (s *EventStream) Collect() []Event {
	var ret []Event
	for e := range s.Events() {
		ret = append(ret, e)
	}
	return ret
}

// Count is the number of events returned so far, not counting the sentinel.
func (s *EventStream) Count() int {
	return s.count
}

// Terminated is true if the stream ended with the "[DONE]" sentinel rather than EOF or an error.
func (s *EventStream) Terminated() bool {
	return s.terminated
}

// Err returns the read error that ended the stream, if any.
func (s *EventStream) Err() error {
	return s.err
}

// Close releases the connection. It is safe to call more than once.
func (s *EventStream) Close() {
	s.finish()
}

func (s *EventStream) processField(line string) {
	if strings.HasPrefix(line, ":") {
		return
	}
	name, value := line, ""
	if i := strings.IndexByte(line, ':'); i >= 0 {
		name, value = line[:i], strings.TrimPrefix(line[i+1:], " ")
	}
	if name == "data" {
		s.pending = append(s.pending, value)
	}
}

func (s *EventStream) dispatch() (Event, bool) {
	if s.pending == nil {
		return Event{}, false
	}
	data := strings.Join(s.pending, "\n")
	s.pending = nil
	if data == DoneSentinel {
		s.logger.Printf("Stream ended with %s after %d events", DoneSentinel, s.count)
		s.terminated = true
		s.finish()
		return Event{}, false
	}
	s.count++
	s.logger.Printf("Stream event %d: %s", s.count, truncate(data, maxLoggedBody))
	e := Event{Data: data, Value: ldvalue.Null()}
	if v, ok := parseBody([]byte(data)); ok && strings.TrimSpace(data) != "" {
		e.Value = v
	}
	return e, true
}

func (s *EventStream) finish() {
	if s.closed {
		return
	}
	s.closed = true
	_ = s.body.Close()
	if s.cancel != nil {
		s.cancel()
	}
}
