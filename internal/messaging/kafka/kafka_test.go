package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"carrental/internal/domain/models"
	"carrental/internal/utils"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	s.marked = append(s.marked, msg)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	msgs chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func TestConsumeClaimHandlesThenMarks(t *testing.T) {
	session := &fakeSession{ctx: context.Background()}
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 2)}
	claim.msgs <- &sarama.ConsumerMessage{Topic: "payments", Partition: 1, Offset: 7, Value: []byte(`{"a":1}`)}
	claim.msgs <- &sarama.ConsumerMessage{Topic: "payments", Partition: 1, Offset: 8, Value: []byte(`bad`)}
	close(claim.msgs)

	var bodies []string
	var reqIDs []string
	h := groupHandler{handler: func(ctx context.Context, body []byte) {
		if len(session.marked) != len(bodies) {
			t.Fatalf("message marked before handler finished")
		}
		bodies = append(bodies, string(body))
		reqIDs = append(reqIDs, utils.RequestIDFrom(ctx))
	}}

	if err := h.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim returned error: %v", err)
	}
	if len(bodies) != 2 || bodies[1] != "bad" {
		t.Fatalf("unexpected bodies %v", bodies)
	}
	if len(session.marked) != 2 {
		t.Fatalf("every message must be marked, got %d", len(session.marked))
	}
	if reqIDs[0] != "payments-1-7" {
		t.Fatalf("unexpected request id %q", reqIDs[0])
	}
}

func TestConsumeClaimStopsOnSessionEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	session := &fakeSession{ctx: ctx}
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage)}
	h := groupHandler{handler: func(context.Context, []byte) {}}

	done := make(chan error, 1)
	go func() { done <- h.ConsumeClaim(session, claim) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ConsumeClaim returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("ConsumeClaim did not stop")
	}
}

func TestDeadLetterProducerPublish(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var decoded map[string]any
		if err := json.Unmarshal(val, &decoded); err != nil {
			return err
		}
		if decoded["originalMessage"] != `{bad` || decoded["errorReason"] != "Invalid JSON format: x" {
			return errors.New("unexpected dead letter payload")
		}
		return nil
	})
	p := NewDeadLetterProducer(mock, "payments-dlq")

	err := p.Publish(context.Background(), models.DeadLetterMessage{
		OriginalMessage: `{bad`,
		ErrorReason:     "Invalid JSON format: x",
		Timestamp:       time.Date(2026, 6, 10, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestDeadLetterProducerPublishError(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := NewDeadLetterProducer(mock, "payments-dlq")

	if err := p.Publish(context.Background(), models.DeadLetterMessage{OriginalMessage: "x"}); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected broker error, got %v", err)
	}
	_ = p.Close()
}
