package provider

import "context"

// FakeStream replays a fixed sequence of Events, for exercising C7
// without a network dependency.
type FakeStream struct {
	events []Event
	pos    int
	err    error
	closed bool
}

// NewFakeStream builds a Stream that yields events in order, then ends
// naturally (or returns err, if set, once events are exhausted).
func NewFakeStream(events []Event, err error) *FakeStream {
	return &FakeStream{events: events, err: err}
}

func (s *FakeStream) Next() (Event, bool, error) {
	if s.pos >= len(s.events) {
		return Event{}, false, s.err
	}
	e := s.events[s.pos]
	s.pos++
	return e, true, nil
}

func (s *FakeStream) Close() error {
	s.closed = true
	return nil
}

// FakeProvider returns a pre-built Stream (or fails) regardless of the
// Request it's asked to serve.
type FakeProvider struct {
	Resp      Stream
	StreamErr error
	LastReq   Request
}

func (p *FakeProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	p.LastReq = req
	if p.StreamErr != nil {
		return nil, p.StreamErr
	}
	return p.Resp, nil
}
