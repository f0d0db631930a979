package notify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

const outcomeTopic = "entry_outcomes"

// KafkaSink publishes outcomes to a Kafka topic, keyed by account so a
// consumer sees one account's outcomes in order.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    outcomeTopic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (s *KafkaSink) Notify(ctx context.Context, o Outcome) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(o.AccountID),
		Value: data,
	})
}

func (s *KafkaSink) Close() error { return s.writer.Close() }
