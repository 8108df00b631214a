package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fitgrid/platform/internal/infra"
)

// settlement-consumer drains settled-payment events from Kafka and logs
// them. Downstream billing integrations hang off this binary.

const settledTopic = "fitgrid.payment.payment.settled"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("settlement consumer failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, settledTopic, "settlement-consumer", cfg.KafkaEnabled, logger)
	if !consumer.Enabled() {
		return fmt.Errorf("kafka is disabled; set KAFKA_ENABLED=true and KAFKA_BROKERS")
	}
	defer consumer.Close()

	logger.Info("settlement consumer starting", "topic", settledTopic, "brokers", cfg.KafkaBrokers)

	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("settlement consumer shutting down")
				return nil
			}
			logger.Error("read message", "error", err)
			continue
		}

		var event struct {
			EventID     string          `json:"event_id"`
			AggregateID string          `json:"aggregate_id"`
			EventType   string          `json:"event_type"`
			Payload     json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("decode event", "error", err, "offset", msg.Offset)
			continue
		}

		logger.Info("payment settled",
			"event_id", event.EventID,
			"transaction_id", event.AggregateID,
			"tenant_id", string(msg.Key),
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
	}
}
