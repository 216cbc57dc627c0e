package broker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ratehub/rating-notifications/internal/broker"
	"github.com/ratehub/rating-notifications/internal/domain"
	"github.com/ratehub/rating-notifications/internal/store"
)

// fakeAck records which resolution the consumer chose for a delivery.
type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAck) Ack(multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

// failingStore rejects every append, simulating an unreachable backend.
type failingStore struct{}

func (failingStore) Append(context.Context, domain.Notification) error {
	return errors.New("store unreachable")
}

func (failingStore) TakeUpTo(context.Context, int64, int) ([]domain.Notification, error) {
	return nil, nil
}

func (failingStore) Count(context.Context, int64) (int, error) {
	return 0, nil
}

type counters struct {
	acked, requeued, discarded int
}

// newTestConsumer builds a consumer without a broker channel; tests drive
// the decision path through Handle directly.
func newTestConsumer(st store.Store) (*broker.Consumer, *counters) {
	c := &counters{}
	consumer := broker.NewConsumer(nil, "rating-notifications", st, zap.NewNop(), broker.Hooks{
		OnAcked:     func() { c.acked++ },
		OnRequeued:  func() { c.requeued++ },
		OnDiscarded: func() { c.discarded++ },
	})
	return consumer, c
}

func validPayload(t *testing.T, id string) []byte {
	t.Helper()
	body, err := json.Marshal(domain.Notification{
		ID:                id,
		ServiceProviderID: 123,
		CustomerID:        7,
		Score:             5,
		CreatedAt:         time.Now().UTC(),
		Kind:              domain.KindRatingCreated,
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestConsumer_StoredDeliveryIsAcked(t *testing.T) {
	st := store.NewMemoryStore()
	c, counters := newTestConsumer(st)
	ack := &fakeAck{}

	c.Handle(context.Background(), validPayload(t, "n-1"), false, ack)

	if !ack.acked || ack.nacked {
		t.Fatalf("expected ack, got acked=%v nacked=%v", ack.acked, ack.nacked)
	}
	if counters.acked != 1 {
		t.Fatalf("expected acked counter=1, got %d", counters.acked)
	}

	count, _ := st.Count(context.Background(), 123)
	if count != 1 {
		t.Fatalf("expected the notification in the store, count=%d", count)
	}
}

func TestConsumer_PoisonPayloadIsDiscardedWithoutRequeue(t *testing.T) {
	st := store.NewMemoryStore()
	c, counters := newTestConsumer(st)
	ack := &fakeAck{}

	c.Handle(context.Background(), []byte("not json at all"), false, ack)

	if ack.acked {
		t.Fatal("poison payload must not be acked")
	}
	if !ack.nacked || ack.requeue {
		t.Fatalf("expected nack without requeue, got nacked=%v requeue=%v", ack.nacked, ack.requeue)
	}
	if counters.discarded != 1 {
		t.Fatalf("expected discarded counter=1, got %d", counters.discarded)
	}

	count, _ := st.Count(context.Background(), 123)
	if count != 0 {
		t.Fatalf("expected no store mutation, count=%d", count)
	}
}

func TestConsumer_StoreFailureRequeues(t *testing.T) {
	c, counters := newTestConsumer(failingStore{})
	ack := &fakeAck{}

	c.Handle(context.Background(), validPayload(t, "n-2"), false, ack)

	if ack.acked {
		t.Fatal("delivery must not be acked when the store write fails")
	}
	if !ack.nacked || !ack.requeue {
		t.Fatalf("expected nack with requeue, got nacked=%v requeue=%v", ack.nacked, ack.requeue)
	}
	if counters.requeued != 1 {
		t.Fatalf("expected requeued counter=1, got %d", counters.requeued)
	}
}

// TestConsumer_RedeliveryAfterTransientFailureSucceeds replays the same
// payload once the store is writable again, as the broker would after a
// nack-requeue.
func TestConsumer_RedeliveryAfterTransientFailureSucceeds(t *testing.T) {
	payload := validPayload(t, "n-3")

	cFail, _ := newTestConsumer(failingStore{})
	first := &fakeAck{}
	cFail.Handle(context.Background(), payload, false, first)
	if !first.nacked || !first.requeue {
		t.Fatalf("expected first attempt to requeue, got %+v", first)
	}

	st := store.NewMemoryStore()
	cOK, _ := newTestConsumer(st)
	second := &fakeAck{}
	cOK.Handle(context.Background(), payload, true, second)
	if !second.acked {
		t.Fatal("expected redelivery to be acked once the store accepts the write")
	}

	count, _ := st.Count(context.Background(), 123)
	if count != 1 {
		t.Fatalf("expected the redelivered notification stored once, count=%d", count)
	}
}

// TestConsumer_DuplicateDeliveryStoresTwice documents the accepted
// at-least-once semantic: redelivered duplicates are not deduplicated.
func TestConsumer_DuplicateDeliveryStoresTwice(t *testing.T) {
	st := store.NewMemoryStore()
	c, _ := newTestConsumer(st)
	payload := validPayload(t, "dup")

	c.Handle(context.Background(), payload, false, &fakeAck{})
	c.Handle(context.Background(), payload, true, &fakeAck{})

	count, _ := st.Count(context.Background(), 123)
	if count != 2 {
		t.Fatalf("expected both deliveries stored, count=%d", count)
	}
}
