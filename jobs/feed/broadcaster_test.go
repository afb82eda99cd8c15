package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lob/domain/book"
	"lob/infra/outbox"
)

func openTestOutbox(t *testing.T) *outbox.Outbox {
	t.Helper()
	ob, err := outbox.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ob.Close() })
	return ob
}

func appendTrade(t *testing.T, ob *outbox.Outbox, id uint64) {
	t.Helper()
	require.NoError(t, ob.Append(book.Trade{
		ID:          id,
		Symbol:      "RELIANCE",
		BuyOrderID:  id * 10,
		SellOrderID: id*10 + 1,
		Price:       decimal.RequireFromString("2501.00"),
		Qty:         300,
		Executed:    time.Unix(1700000000, 0),
	}))
}

func TestDrainPublishesAndAcks(t *testing.T) {
	ob := openTestOutbox(t)
	appendTrade(t, ob, 1)
	appendTrade(t, ob, 2)

	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer producer.Close()

	checked := 0
	checker := func(val []byte) error {
		checked++
		var ev Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		assert.Equal(t, 1, ev.V)
		assert.Equal(t, "trade", ev.Type)
		assert.Equal(t, "RELIANCE", ev.Symbol)
		assert.Equal(t, int64(300), ev.Qty)
		return nil
	}
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(checker)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(checker)

	b := newBroadcaster(ob, producer, "lob.trades", time.Millisecond, nil)
	b.drainOnce()

	assert.Equal(t, 2, checked)
	for id := uint64(1); id <= 2; id++ {
		rec, err := ob.Get(id)
		require.NoError(t, err)
		assert.Equal(t, outbox.StateAcked, rec.State)
	}
}

func TestDrainSkipsAcked(t *testing.T) {
	ob := openTestOutbox(t)
	appendTrade(t, ob, 1)
	appendTrade(t, ob, 2)
	require.NoError(t, ob.MarkAcked(1))

	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer producer.Close()
	producer.ExpectSendMessageAndSucceed()

	b := newBroadcaster(ob, producer, "lob.trades", time.Millisecond, nil)
	b.drainOnce()

	rec, err := ob.Get(2)
	require.NoError(t, err)
	assert.Equal(t, outbox.StateAcked, rec.State)
}

func TestPublishFailureMarksFailedAndRetries(t *testing.T) {
	ob := openTestOutbox(t)
	appendTrade(t, ob, 1)

	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer producer.Close()
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	b := newBroadcaster(ob, producer, "lob.trades", time.Millisecond, nil)
	b.drainOnce()

	rec, err := ob.Get(1)
	require.NoError(t, err)
	assert.Equal(t, outbox.StateFailed, rec.State)
	assert.Equal(t, uint32(2), rec.Retries)

	// Failed records stay pending and go out on the next pass.
	producer.ExpectSendMessageAndSucceed()
	b.drainOnce()

	rec, err = ob.Get(1)
	require.NoError(t, err)
	assert.Equal(t, outbox.StateAcked, rec.State)
}

func TestRunStopsOnCancel(t *testing.T) {
	ob := openTestOutbox(t)

	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer producer.Close()

	b := newBroadcaster(ob, producer, "lob.trades", time.Millisecond, nil)

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		b.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcaster did not stop on cancel")
	}
}

func TestEventFor(t *testing.T) {
	ev := eventFor(outbox.Record{
		TradeID:     7,
		Symbol:      "RELIANCE",
		BuyOrderID:  70,
		SellOrderID: 71,
		Price:       "2501",
		Qty:         300,
		Executed:    1700000000000000000,
	})
	assert.Equal(t, 1, ev.V)
	assert.Equal(t, "trade", ev.Type)
	assert.Equal(t, uint64(7), ev.TradeID)
	assert.Equal(t, "2501", ev.Price)
	assert.Equal(t, int64(1700000000000000000), ev.ExecutedAt)
}
