package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// --- Fakes ---

// fakeReader serves scripted errors, then scripted messages, then
// cancels the run context so Run returns.
type fakeReader struct {
	errs    []error
	msgs    []kafka.Message
	cancel  context.CancelFunc
	commits []kafka.Message
	closed  bool
}

func (f *fakeReader) FetchMessage(_ context.Context) (kafka.Message, error) {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return kafka.Message{}, err
	}
	if len(f.msgs) == 0 {
		f.cancel()
		return kafka.Message{}, context.Canceled
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.commits = append(f.commits, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

type fakeWriter struct {
	failures int // fail this many writes before succeeding
	attempts int
	written  []kafka.Message
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func newTestConsumer(r *fakeReader, w *fakeWriter, h Handler) *Consumer {
	return &Consumer{
		reader:       r,
		dlq:          w,
		handler:      h,
		logger:       zap.NewNop(),
		fetchBackoff: time.Millisecond,
		dlqBackoff:   time.Millisecond,
	}
}

func runConsumer(t *testing.T, c *Consumer, r *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.cancel = cancel
	if err := c.Run(ctx); err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
}

func headerValue(t *testing.T, msg kafka.Message, key string) string {
	t.Helper()
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	t.Fatalf("header %q not found", key)
	return ""
}

// --- Tests ---

func TestConsumerRun_CommitsProcessed(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Partition: 0, Offset: 1, Value: []byte(`{"id":"a"}`)},
		{Partition: 0, Offset: 2, Value: []byte(`{"id":"b"}`)},
	}}
	writer := &fakeWriter{}

	var handled []string
	c := newTestConsumer(reader, writer, func(_ context.Context, payload []byte) error {
		handled = append(handled, string(payload))
		return nil
	})
	runConsumer(t, c, reader)

	if len(handled) != 2 {
		t.Fatalf("expected 2 handled payloads, got %d", len(handled))
	}
	if len(reader.commits) != 2 {
		t.Errorf("expected 2 commits, got %d", len(reader.commits))
	}
	if len(writer.written) != 0 {
		t.Errorf("expected empty dlq, got %d messages", len(writer.written))
	}
}

func TestConsumerRun_ParksFailedAndCommits(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Partition: 2, Offset: 7, Key: []byte("ev-7"), Value: []byte("bad payload")},
	}}
	writer := &fakeWriter{}

	c := newTestConsumer(reader, writer, func(_ context.Context, _ []byte) error {
		return errors.New("title is required")
	})
	runConsumer(t, c, reader)

	if len(writer.written) != 1 {
		t.Fatalf("expected 1 dlq message, got %d", len(writer.written))
	}
	parked := writer.written[0]
	if string(parked.Value) != "bad payload" {
		t.Errorf("dlq value = %q, want original payload", parked.Value)
	}
	if string(parked.Key) != "ev-7" {
		t.Errorf("dlq key = %q, want original key", parked.Key)
	}
	if got := headerValue(t, parked, "original_partition"); got != "2" {
		t.Errorf("original_partition = %q, want 2", got)
	}
	if got := headerValue(t, parked, "original_offset"); got != "7" {
		t.Errorf("original_offset = %q, want 7", got)
	}
	if got := headerValue(t, parked, "error"); got != "title is required" {
		t.Errorf("error header = %q", got)
	}

	// Parked messages are committed so the group moves past them.
	if len(reader.commits) != 1 {
		t.Fatalf("expected 1 commit, got %d", len(reader.commits))
	}
	if reader.commits[0].Offset != 7 {
		t.Errorf("committed offset = %d, want 7", reader.commits[0].Offset)
	}
}

func TestConsumerRun_DLQFailureSkipsCommit(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Partition: 0, Offset: 3, Value: []byte("bad")},
	}}
	writer := &fakeWriter{failures: dlqAttempts}

	c := newTestConsumer(reader, writer, func(_ context.Context, _ []byte) error {
		return errors.New("boom")
	})
	runConsumer(t, c, reader)

	if writer.attempts != dlqAttempts {
		t.Errorf("expected %d dlq attempts, got %d", dlqAttempts, writer.attempts)
	}
	if len(reader.commits) != 0 {
		t.Errorf("expected no commit when dlq write fails, got %d", len(reader.commits))
	}
}

func TestConsumerRun_DLQRetrySucceeds(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Partition: 0, Offset: 4, Value: []byte("bad")},
	}}
	writer := &fakeWriter{failures: 2}

	c := newTestConsumer(reader, writer, func(_ context.Context, _ []byte) error {
		return errors.New("boom")
	})
	runConsumer(t, c, reader)

	if writer.attempts != 3 {
		t.Errorf("expected 3 dlq attempts, got %d", writer.attempts)
	}
	if len(writer.written) != 1 {
		t.Errorf("expected 1 dlq message after retry, got %d", len(writer.written))
	}
	if len(reader.commits) != 1 {
		t.Errorf("expected commit after dlq retry succeeded, got %d", len(reader.commits))
	}
}

func TestConsumerRun_FetchErrorBacksOff(t *testing.T) {
	reader := &fakeReader{
		errs: []error{errors.New("broker gone"), errors.New("broker gone")},
		msgs: []kafka.Message{{Offset: 1, Value: []byte("ok")}},
	}
	writer := &fakeWriter{}

	var handled int
	c := newTestConsumer(reader, writer, func(_ context.Context, _ []byte) error {
		handled++
		return nil
	})
	runConsumer(t, c, reader)

	if handled != 1 {
		t.Errorf("expected loop to survive fetch errors, handled = %d", handled)
	}
	if len(reader.commits) != 1 {
		t.Errorf("expected 1 commit, got %d", len(reader.commits))
	}
}

func TestConsumerClose(t *testing.T) {
	reader := &fakeReader{}
	writer := &fakeWriter{}
	c := newTestConsumer(reader, writer, nil)

	if err := c.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reader.closed || !writer.closed {
		t.Error("expected both reader and dlq writer closed")
	}
}

func TestNewConsumer_Validation(t *testing.T) {
	noop := func(_ context.Context, _ []byte) error { return nil }

	if _, err := NewConsumer(Config{Topic: "t"}, noop, zap.NewNop()); err == nil {
		t.Error("expected error for missing brokers")
	}
	if _, err := NewConsumer(Config{Brokers: []string{"localhost:9092"}}, noop, zap.NewNop()); err == nil {
		t.Error("expected error for missing topic")
	}
}

func TestNewConsumer_DLQTopicDefault(t *testing.T) {
	c, err := NewConsumer(Config{
		Brokers: []string{"localhost:9092"},
		Topic:   "docdex.articles.v1",
		GroupID: "docdex-worker",
	}, func(_ context.Context, _ []byte) error { return nil }, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	w, ok := c.dlq.(*kafka.Writer)
	if !ok {
		t.Fatalf("dlq is %T, want *kafka.Writer", c.dlq)
	}
	if w.Topic != "docdex.articles.v1.dlq" {
		t.Errorf("dlq topic = %q, want docdex.articles.v1.dlq", w.Topic)
	}
}
