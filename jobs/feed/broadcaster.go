package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"lob/infra/outbox"
)

// Event is the versioned wire form of one executed trade.
type Event struct {
	V           int    `json:"v"`
	Type        string `json:"type"`
	TradeID     uint64 `json:"trade_id"`
	Symbol      string `json:"symbol"`
	BuyOrderID  uint64 `json:"buy_order_id"`
	SellOrderID uint64 `json:"sell_order_id"`
	Price       string `json:"price"`
	Qty         int64  `json:"qty"`
	ExecutedAt  int64  `json:"executed_at"`
}

func eventFor(rec outbox.Record) Event {
	return Event{
		V:           1,
		Type:        "trade",
		TradeID:     rec.TradeID,
		Symbol:      rec.Symbol,
		BuyOrderID:  rec.BuyOrderID,
		SellOrderID: rec.SellOrderID,
		Price:       rec.Price,
		Qty:         rec.Qty,
		ExecutedAt:  rec.Executed,
	}
}

// Broadcaster drains the trade outbox onto a Kafka topic. It consumes
// trades only through the outbox; it never touches the book.
type Broadcaster struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.Logger
}

// New connects a sync producer and wires the broadcaster.
func New(ob *outbox.Outbox, brokers []string, topic string, interval time.Duration, log *zap.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("feed producer: %w", err)
	}
	return newBroadcaster(ob, producer, topic, interval, log), nil
}

func newBroadcaster(ob *outbox.Outbox, producer sarama.SyncProducer, topic string, interval time.Duration, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{
		outbox:   ob,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}
}

// Run drives the drain loop until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("trade feed started", zap.String("topic", b.topic))

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("trade feed stopped")
			return
		case <-ticker.C:
			b.drainOnce()
		}
	}
}

// drainOnce publishes every un-acked record. Delivery is at-least-once:
// a crash between send and ack republishes on the next pass, and
// consumers dedupe on trade id.
func (b *Broadcaster) drainOnce() {
	err := b.outbox.ScanPending(func(rec outbox.Record) error {
		if err := b.outbox.MarkSent(rec.TradeID); err != nil {
			return err
		}

		payload, err := json.Marshal(eventFor(rec))
		if err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(rec.Symbol),
			Value: sarama.ByteEncoder(payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn("publish failed, will retry",
				zap.Uint64("trade_id", rec.TradeID),
				zap.Error(err))
			return b.outbox.MarkFailed(rec.TradeID)
		}

		return b.outbox.MarkAcked(rec.TradeID)
	})
	if err != nil {
		b.log.Error("outbox drain failed", zap.Error(err))
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
