package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"carrental/internal/domain/models"
	"carrental/internal/messaging"
	"carrental/internal/utils"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// DeadLetterPublisher routes dead letters to the DLQ queue on the feed exchange.
type DeadLetterPublisher struct {
	ch       publishChannel
	exchange string
	key      string

	conn    *amqp.Connection
	channel *amqp.Channel
}

func DialDeadLetterPublisher(ctx context.Context, url, exchange, dlqQueue string) (*DeadLetterPublisher, error) {
	p := &DeadLetterPublisher{exchange: exchange, key: dlqQueue}
	err := messaging.Dial(ctx, "rabbitmq", func() error {
		conn, ch, err := open(url, exchange)
		if err != nil {
			return err
		}
		if err := declareBoundQueue(ch, exchange, dlqQueue); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return err
		}
		p.conn, p.channel, p.ch = conn, ch, ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *DeadLetterPublisher) Publish(ctx context.Context, msg models.DeadLetterMessage) error {
	body, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, p.key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish dead letter to %s: %w", p.key, err)
	}
	utils.LogEvent(utils.RequestIDFrom(ctx), "rabbitmq", "dead_letter",
		fmt.Sprintf("queue=%s reason=%s", p.key, utils.Truncate(msg.ErrorReason, 200)))
	return nil
}

func (p *DeadLetterPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
