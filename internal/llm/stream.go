package llm

import (
	"context"
	"io"
	"sync"
)

// eventStream adapts a producer function to the Stream interface. The
// producer runs in its own goroutine and writes to the events channel;
// Recv surfaces its return error, or io.EOF on clean completion.
type eventStream struct {
	events chan Event
	errCh  chan error
	cancel context.CancelFunc

	mu     sync.Mutex
	err    error
	closed bool
}

func newEventStream(ctx context.Context, produce func(ctx context.Context, events chan<- Event) error) *eventStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &eventStream{
		events: make(chan Event, 16),
		errCh:  make(chan error, 1),
		cancel: cancel,
	}
	go func() {
		defer close(s.events)
		s.errCh <- produce(ctx, s.events)
	}()
	return s
}

func (s *eventStream) Recv() (Event, error) {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return Event{}, err
	}
	s.mu.Unlock()

	event, ok := <-s.events
	if ok {
		return event, nil
	}

	err := <-s.errCh
	if err == nil {
		err = io.EOF
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	return Event{}, err
}

func (s *eventStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	// Drain so the producer goroutine can exit.
	go func() {
		for range s.events {
		}
	}()
	return nil
}
