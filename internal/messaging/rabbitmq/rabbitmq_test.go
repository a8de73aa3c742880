package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"carrental/internal/domain/models"
	"carrental/internal/utils"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeAcker struct {
	mu    sync.Mutex
	acked []uint64
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error { return nil }
func (a *fakeAcker) Reject(tag uint64, requeue bool) error         { return nil }

func TestServeAcksEveryDelivery(t *testing.T) {
	acker := &fakeAcker{}
	msgs := make(chan amqp.Delivery, 5)
	for i := 1; i <= 5; i++ {
		msgs <- amqp.Delivery{Acknowledger: acker, DeliveryTag: uint64(i), Body: []byte("x")}
	}
	close(msgs)

	var mu sync.Mutex
	handled := 0
	serve(context.Background(), msgs, 3, func(ctx context.Context, body []byte) {
		mu.Lock()
		handled++
		mu.Unlock()
	})

	if handled != 5 || len(acker.acked) != 5 {
		t.Fatalf("expected 5 handled and acked, got %d/%d", handled, len(acker.acked))
	}
}

func TestHandleDeliveryRequestID(t *testing.T) {
	acker := &fakeAcker{}
	var got []string
	h := func(ctx context.Context, body []byte) { got = append(got, utils.RequestIDFrom(ctx)) }

	handleDelivery(context.Background(), h, amqp.Delivery{Acknowledger: acker, DeliveryTag: 9, MessageId: "msg-1"})
	handleDelivery(context.Background(), h, amqp.Delivery{Acknowledger: acker, DeliveryTag: 10})

	if got[0] != "msg-1" || got[1] != "amqp-10" {
		t.Fatalf("unexpected request ids %v", got)
	}
}

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestDeadLetterPublisherPublish(t *testing.T) {
	ch := &fakeChannel{}
	p := &DeadLetterPublisher{ch: ch, exchange: "payments", key: "payments-dlq"}

	if err := p.Publish(context.Background(), models.DeadLetterMessage{OriginalMessage: `{"x":1}`, ErrorReason: "boom"}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if ch.exchange != "payments" || ch.key != "payments-dlq" || ch.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected publish %+v", ch)
	}
	var decoded map[string]any
	if err := json.Unmarshal(ch.msg.Body, &decoded); err != nil || decoded["originalMessage"] != `{"x":1}` {
		t.Fatalf("unexpected body %s", ch.msg.Body)
	}

	ch.err = errors.New("channel closed")
	if err := p.Publish(context.Background(), models.DeadLetterMessage{}); err == nil {
		t.Fatalf("expected publish error")
	}
}
