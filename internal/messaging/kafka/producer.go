package kafka

import (
	"context"
	"fmt"

	"carrental/internal/domain/models"
	"carrental/internal/messaging"
	"carrental/internal/utils"

	"github.com/IBM/sarama"
)

// DeadLetterProducer writes unprocessable payment events to the DLQ topic.
type DeadLetterProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewDeadLetterProducer(producer sarama.SyncProducer, topic string) *DeadLetterProducer {
	return &DeadLetterProducer{producer: producer, topic: topic}
}

func DialDeadLetterProducer(ctx context.Context, brokers []string, topic string) (*DeadLetterProducer, error) {
	var producer sarama.SyncProducer
	err := messaging.Dial(ctx, "kafka", func() error {
		p, err := sarama.NewSyncProducer(brokers, NewConfig())
		if err != nil {
			return err
		}
		producer = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewDeadLetterProducer(producer, topic), nil
}

func (p *DeadLetterProducer) Publish(ctx context.Context, msg models.DeadLetterMessage) error {
	data, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("send dead letter to %s: %w", p.topic, err)
	}
	utils.LogEvent(utils.RequestIDFrom(ctx), "kafka", "dead_letter",
		fmt.Sprintf("topic=%s partition=%d offset=%d reason=%s", p.topic, partition, offset, utils.Truncate(msg.ErrorReason, 200)))
	return nil
}

func (p *DeadLetterProducer) Close() error {
	return p.producer.Close()
}
