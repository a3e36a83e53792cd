package kafka

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	fetchErr  error
	fetches   int
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(_ context.Context) (kafka.Message, error) {
	f.fetches++
	return kafka.Message{}, f.fetchErr
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func newTestConsumer(reader *fakeReader, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  reader,
		topic:   "lostfound.items",
		logger:  ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}),
		handler: handler,
	}
}

func TestConsumeLoopExitsOnWrappedCancel(t *testing.T) {
	reader := &fakeReader{fetchErr: fmt.Errorf("fetching message: %w", context.Canceled)}
	c := newTestConsumer(reader, func(context.Context, *IncomingMessage) error { return nil })

	done := make(chan struct{})
	c.wg.Add(1)
	go func() {
		c.consumeLoop(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consume loop did not exit on wrapped context.Canceled")
	}
	assert.Equal(t, 1, reader.fetches)
}

func TestProcessMessageCommitsMalformed(t *testing.T) {
	reader := &fakeReader{}
	handled := 0
	c := newTestConsumer(reader, func(context.Context, *IncomingMessage) error {
		handled++
		return nil
	})

	c.processMessage(context.Background(), kafka.Message{Value: []byte("not json")})

	assert.Zero(t, handled)
	assert.Len(t, reader.committed, 1)
}

func TestProcessMessageSkipsCommitOnHandlerError(t *testing.T) {
	reader := &fakeReader{}
	c := newTestConsumer(reader, func(context.Context, *IncomingMessage) error {
		return fmt.Errorf("read model unavailable")
	})

	value := []byte(`{"event_type": "item.reported", "item_id": "lost-1"}`)
	c.processMessage(context.Background(), kafka.Message{Value: value})

	assert.Empty(t, reader.committed)
}

func TestProcessMessageCommitsAfterHandler(t *testing.T) {
	reader := &fakeReader{}
	var seen *IncomingMessage
	c := newTestConsumer(reader, func(_ context.Context, msg *IncomingMessage) error {
		seen = msg
		return nil
	})

	value := []byte(`{"event_type": "item.reported", "item_id": "lost-1"}`)
	c.processMessage(context.Background(), kafka.Message{Value: value})

	require.NotNil(t, seen)
	require.NotNil(t, seen.ItemEvent)
	assert.Equal(t, "lost-1", seen.ItemEvent.ItemID)
	assert.Len(t, reader.committed, 1)
}
