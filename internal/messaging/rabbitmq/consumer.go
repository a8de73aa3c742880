package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	"carrental/internal/messaging"
	"carrental/internal/utils"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Config struct {
	URL      string
	Exchange string
	Queue    string
	Workers  int
	Prefetch int
}

// Consumer drains a durable queue bound to a topic exchange with a fixed
// pool of workers sharing one channel.
type Consumer struct {
	cfg     Config
	handler messaging.Handler

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(ctx context.Context, cfg Config, handler messaging.Handler) (*Consumer, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = cfg.Workers * 2
	}
	c := &Consumer{cfg: cfg, handler: handler}
	if err := messaging.Dial(ctx, "rabbitmq", c.connect); err != nil {
		return nil, err
	}
	utils.LogEvent("", "rabbitmq", "consumer_ready", fmt.Sprintf("exchange=%s queue=%s workers=%d", cfg.Exchange, cfg.Queue, cfg.Workers))
	return c, nil
}

func (c *Consumer) connect() error {
	conn, ch, err := open(c.cfg.URL, c.cfg.Exchange)
	if err != nil {
		return err
	}
	if err := declareBoundQueue(ch, c.cfg.Exchange, c.cfg.Queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("set qos failed: %w", err)
	}
	c.conn = conn
	c.ch = ch
	return nil
}

// Run blocks until ctx is cancelled or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}
	serve(ctx, msgs, c.cfg.Workers, c.handler)
	return nil
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func serve(ctx context.Context, msgs <-chan amqp.Delivery, workers int, handler messaging.Handler) {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-msgs:
					if !ok {
						return
					}
					handleDelivery(ctx, handler, d)
				}
			}
		}()
	}
	wg.Wait()
}

func handleDelivery(ctx context.Context, handler messaging.Handler, d amqp.Delivery) {
	reqID := d.MessageId
	if reqID == "" {
		reqID = fmt.Sprintf("amqp-%d", d.DeliveryTag)
	}
	handler(utils.WithRequestID(ctx, reqID), d.Body)
	if err := d.Ack(false); err != nil {
		utils.LogError(reqID, "rabbitmq", "ack", d.RoutingKey, err)
	}
}

func open(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	return conn, ch, nil
}

// declareBoundQueue binds queue to exchange under its own name as routing key.
func declareBoundQueue(ch *amqp.Channel, exchange, queue string) error {
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", queue, err)
	}
	return nil
}
