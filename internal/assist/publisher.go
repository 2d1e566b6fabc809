package assist

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
)

// Flusher pushes buffered bytes to the client immediately.
// http.ResponseWriter satisfies it via http.Flusher.
type Flusher interface {
	Flush()
}

// Publisher writes outbound events to the client as `data: <json>\n\n`
// records, in the order received, with no buffering or coalescing. The done
// channel is the disconnect signal: once it is closed every Publish becomes
// a no-op, but the publisher keeps accepting events so it never blocks the
// engine or aborts a tool mid-action.
type Publisher struct {
	w      io.Writer
	flush  Flusher
	done   <-chan struct{}
	logger *log.Logger
}

func NewPublisher(w io.Writer, flush Flusher, done <-chan struct{}, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{w: w, flush: flush, done: done, logger: logger}
}

// Publish writes one event. Write errors are logged and swallowed; the
// conversation outcome never depends on the client still listening.
func (p *Publisher) Publish(event any) {
	select {
	case <-p.done:
		return
	default:
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Printf("marshal outbound event: %v", err)
		return
	}
	if _, err := fmt.Fprintf(p.w, "data: %s\n\n", payload); err != nil {
		p.logger.Printf("write outbound event: %v", err)
		return
	}
	if p.flush != nil {
		p.flush.Flush()
	}
}
