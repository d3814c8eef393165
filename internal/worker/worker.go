// Package worker consumes analysis.completed events and maintains
// best-effort usage statistics in Redis. Nothing in the analysis pipeline
// depends on these counters.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/IBM/sarama"

	"github.com/illegalcall/wodsense/internal/config"
	"github.com/illegalcall/wodsense/internal/events"
	"github.com/illegalcall/wodsense/pkg/database"
)

type Worker struct {
	cfg      *config.Config
	db       *database.Clients
	consumer sarama.ConsumerGroup
	ready    chan bool
}

func NewWorker(cfg *config.Config, db *database.Clients, consumer sarama.ConsumerGroup) *Worker {
	slog.Info("Initializing stats worker")
	return &Worker{
		cfg:      cfg,
		db:       db,
		consumer: consumer,
		ready:    make(chan bool),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	topics := []string{w.cfg.Kafka.Topic}
	slog.Info("Starting stats worker", "topics", topics)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for err := range w.consumer.Errors() {
			slog.Error("Kafka consumer error received", "error", err)
		}
	}()

	go func() {
		for {
			if err := w.consumer.Consume(ctx, topics, w); err != nil {
				slog.Error("Error from consumer.Consume", "error", err)
			}
			if ctx.Err() != nil {
				return
			}
			// Reset the ready channel after a new session is created
			w.ready = make(chan bool)
		}
	}()

	<-w.ready
	slog.Info("Stats worker ready")

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("Context cancelled; shutting down worker")
	}

	slog.Info("Stats worker shutting down gracefully")
	return nil
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (w *Worker) Setup(sarama.ConsumerGroupSession) error {
	close(w.ready)
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (w *Worker) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (w *Worker) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		// Stats are best-effort; a bad message is logged and skipped, never
		// allowed to wedge the partition.
		w.processMessage(session.Context(), message.Value)
		session.MarkMessage(message, "")
	}
	return nil
}

func (w *Worker) processMessage(ctx context.Context, value []byte) {
	var evt events.AnalysisCompleted
	if err := json.Unmarshal(value, &evt); err != nil {
		slog.Error("Failed to decode analysis event", "error", err)
		return
	}

	accountKey := fmt.Sprintf("stats:analyses:%s", evt.AccountID)
	if err := w.db.Redis.Incr(ctx, accountKey).Err(); err != nil {
		slog.Warn("Failed to bump account stats", "account_id", evt.AccountID, "error", err)
	}
	if err := w.db.Redis.Incr(ctx, "stats:analyses:total").Err(); err != nil {
		slog.Warn("Failed to bump global stats", "error", err)
	}
	if evt.Ephemeral {
		if err := w.db.Redis.Incr(ctx, "stats:analyses:ephemeral").Err(); err != nil {
			slog.Warn("Failed to bump ephemeral stats", "error", err)
		}
	}
}
