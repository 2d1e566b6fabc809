package assist

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"
)

type countingFlusher struct {
	n int
}

func (f *countingFlusher) Flush() { f.n++ }

func TestPublisherWritesRecordsInOrder(t *testing.T) {
	var buf bytes.Buffer
	flusher := &countingFlusher{}
	done := make(chan struct{})

	pub := NewPublisher(&buf, flusher, done, log.New(io.Discard, "", 0))
	pub.Publish(NewTextDeltaEvent("Hello"))
	pub.Publish(NewTextDeltaEvent(" there"))
	pub.Publish(NewDoneEvent())

	records := strings.Split(strings.TrimSuffix(buf.String(), "\n\n"), "\n\n")
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3:\n%s", len(records), buf.String())
	}
	if records[0] != `data: {"type":"text_delta","content":"Hello"}` {
		t.Errorf("first record = %q", records[0])
	}
	if records[2] != `data: {"type":"done"}` {
		t.Errorf("last record = %q", records[2])
	}
	if flusher.n != 3 {
		t.Errorf("flushes = %d, want one per record", flusher.n)
	}
}

func TestPublisherSuppressesAfterDisconnect(t *testing.T) {
	var buf bytes.Buffer
	done := make(chan struct{})

	pub := NewPublisher(&buf, &countingFlusher{}, done, log.New(io.Discard, "", 0))
	pub.Publish(NewTextDeltaEvent("before"))
	close(done)
	pub.Publish(NewTextDeltaEvent("after"))
	pub.Publish(NewDoneEvent())

	out := buf.String()
	if !strings.Contains(out, "before") {
		t.Error("pre-disconnect event missing")
	}
	if strings.Contains(out, "after") || strings.Contains(out, "done") {
		t.Errorf("bytes written after disconnect:\n%s", out)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }

func TestPublisherSwallowsWriteErrors(t *testing.T) {
	done := make(chan struct{})
	pub := NewPublisher(failingWriter{}, nil, done, log.New(io.Discard, "", 0))
	// Must not panic or block.
	pub.Publish(NewTextDeltaEvent("hello"))
	pub.Publish(NewDoneEvent())
}
