package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/abgdnv/bathifarms/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.records = append(f.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func (f *fakeProducer) Close() {
	f.closed = true
}

func Test_Publisher_Publish(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	event := events.CartChangedEvent{SessionID: "session-1", Reason: "add", Count: 2, Subtotal: 200}

	t.Run("record uses subject as topic and session as key", func(t *testing.T) {
		// given
		producer := &fakeProducer{}
		publisher := NewPublisher(producer, logger)

		// when
		err := publisher.Publish(context.Background(), event)

		// then
		require.NoError(t, err)
		require.Len(t, producer.records, 1)
		assert.Equal(t, "carts.changed", producer.records[0].Topic)
		assert.Equal(t, []byte("session-1"), producer.records[0].Key)
		expected, _ := event.Payload()
		assert.JSONEq(t, string(expected), string(producer.records[0].Value))
	})

	t.Run("produce error is returned", func(t *testing.T) {
		// given
		producer := &fakeProducer{err: errors.New("broker down")}
		publisher := NewPublisher(producer, logger)

		// when
		err := publisher.Publish(context.Background(), event)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker down")
	})

	t.Run("close closes client", func(t *testing.T) {
		producer := &fakeProducer{}
		NewPublisher(producer, logger).Close()
		assert.True(t, producer.closed)
	})
}
