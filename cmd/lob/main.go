package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"lob/display"
	"lob/domain/book"
	"lob/infra/outbox"
	"lob/jobs/feed"
	"lob/loader"
	"lob/service"
)

type config struct {
	Symbol string
	Depth  int
	CSV    string

	FeedEnabled  bool
	FeedBrokers  []string
	FeedTopic    string
	FeedInterval time.Duration
	OutboxDir    string
}

func loadConfig() (config, error) {
	v := viper.New()
	v.SetDefault("symbol", "RELIANCE")
	v.SetDefault("depth", 5)
	v.SetDefault("csv", "")
	v.SetDefault("feed.enabled", false)
	v.SetDefault("feed.brokers", []string{"localhost:9092"})
	v.SetDefault("feed.topic", "lob.trades")
	v.SetDefault("feed.interval", 250*time.Millisecond)
	v.SetDefault("outbox.dir", "./outbox")

	v.SetConfigName("lob")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("LOB")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config{}, err
		}
	}

	return config{
		Symbol:       v.GetString("symbol"),
		Depth:        v.GetInt("depth"),
		CSV:          v.GetString("csv"),
		FeedEnabled:  v.GetBool("feed.enabled"),
		FeedBrokers:  v.GetStringSlice("feed.brokers"),
		FeedTopic:    v.GetString("feed.topic"),
		FeedInterval: v.GetDuration("feed.interval"),
		OutboxDir:    v.GetString("outbox.dir"),
	}, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ---------------- Trade pipeline ----------------

	var sink service.TradeSink
	var bc *feed.Broadcaster

	if cfg.FeedEnabled {
		ob, err := outbox.Open(cfg.OutboxDir)
		if err != nil {
			logger.Fatal("outbox open failed", zap.Error(err))
		}
		defer ob.Close()
		sink = ob

		bc, err = feed.New(ob, cfg.FeedBrokers, cfg.FeedTopic, cfg.FeedInterval, logger)
		if err != nil {
			logger.Fatal("feed init failed", zap.Error(err))
		}
		defer bc.Close()
		go bc.Run(ctx)
	}

	// ---------------- Engine ----------------

	b := book.NewOrderBook(cfg.Symbol)
	engine := book.NewMatchingEngine(b)
	svc := service.New(engine, sink, logger)

	// ---------------- Order flow ----------------

	if cfg.CSV != "" {
		if err := submitCSV(svc, cfg.CSV); err != nil {
			logger.Fatal("csv load failed", zap.Error(err))
		}
	} else {
		runDemo(svc)
	}

	display.PrintBook(os.Stdout, svc.Snapshot(cfg.Depth))
	display.PrintTrades(os.Stdout, svc.Trades())

	if cfg.FeedEnabled {
		logger.Info("draining trade feed, ctrl-c to exit")
		<-ctx.Done()
	}
}

func submitCSV(svc *service.OrderService, path string) error {
	reqs, err := loader.ReadFile(path)
	if err != nil {
		return err
	}
	for _, r := range reqs {
		switch r.Type {
		case book.Market:
			_, err = svc.SubmitMarket(r.Side, r.Qty)
		default:
			_, err = svc.SubmitLimit(r.Side, r.Price, r.Qty)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// runDemo replays the classic five scenarios: build the book, full
// match, partial match, market order, cancellation.
func runDemo(svc *service.OrderService) {
	limit := func(side book.Side, price string, qty int64) {
		_, _ = svc.SubmitLimit(side, decimal.RequireFromString(price), qty)
	}

	// Scenario 1: build the book.
	limit(book.Bid, "2500.00", 500)
	limit(book.Bid, "2499.00", 1000)
	limit(book.Bid, "2498.00", 750)
	limit(book.Ask, "2501.00", 300)
	limit(book.Ask, "2502.00", 500)
	limit(book.Ask, "2503.00", 200)

	// Scenario 2: full match against the 300 @ 2501 ask.
	limit(book.Bid, "2501.00", 300)

	// Scenario 3: partial match, remainder rests at 2502.
	limit(book.Bid, "2502.00", 700)

	// Scenario 4: market sell hits the best bid.
	_, _ = svc.SubmitMarket(book.Ask, 200)

	// Scenario 5: cancel the resting 1000 @ 2499 bid.
	svc.Cancel(2)
}
