// Package events publishes analysis lifecycle events to Kafka. Publishing
// is strictly best-effort: no pipeline invariant depends on it.
package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// AnalysisCompleted is emitted after a commit (durable or ephemeral).
type AnalysisCompleted struct {
	AccountID   string    `json:"account_id"`
	WorkoutID   string    `json:"workout_id"`
	Ephemeral   bool      `json:"ephemeral"`
	Degraded    bool      `json:"degraded"`
	CompletedAt time.Time `json:"completed_at"`
}

// Publisher wraps a Kafka sync producer for analysis events.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// PublishAnalysisCompleted sends the event, logging (not returning)
// failures so the caller's success path is never blocked by the broker.
func (p *Publisher) PublishAnalysisCompleted(evt AnalysisCompleted) {
	if p == nil || p.producer == nil {
		return
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		slog.Error("Failed to marshal analysis event", "error", err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(evt.AccountID),
		Value: sarama.ByteEncoder(raw),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		slog.Warn("Failed to publish analysis event", "workout_id", evt.WorkoutID, "error", err)
	}
}
