package kafka

import (
	"context"
	"errors"
	"fmt"

	"carrental/internal/messaging"
	"carrental/internal/utils"

	"github.com/IBM/sarama"
)

// Consumer reads a topic through a consumer group. Each claimed partition
// is served by its own goroutine, so ordering holds within a partition.
type Consumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler messaging.Handler
	name    string
}

func NewConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	return config
}

func NewConsumer(ctx context.Context, brokers []string, groupID, topic string, handler messaging.Handler) (*Consumer, error) {
	var group sarama.ConsumerGroup
	err := messaging.Dial(ctx, "kafka", func() error {
		g, err := sarama.NewConsumerGroup(brokers, groupID, NewConfig())
		if err != nil {
			return err
		}
		group = g
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kafka consumer group %s: %w", groupID, err)
	}
	utils.LogEvent("", "kafka", "consumer_ready", fmt.Sprintf("group=%s topic=%s", groupID, topic))
	return &Consumer{group: group, topics: []string{topic}, handler: handler, name: groupID}, nil
}

// Run consumes until ctx is cancelled or the group is closed. Consume
// returns on every rebalance, hence the loop.
func (c *Consumer) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			utils.LogError("", "kafka", "consume", c.name, err)
		}
	}()

	h := groupHandler{handler: c.handler}
	for {
		if err := c.group.Consume(ctx, c.topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			utils.LogError("", "kafka", "consume", c.name, err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	handler messaging.Handler
}

func (groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			reqID := fmt.Sprintf("%s-%d-%d", msg.Topic, msg.Partition, msg.Offset)
			h.handler(utils.WithRequestID(session.Context(), reqID), msg.Value)
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
