package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/peoplebase/peoplebase-backend/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventBody(t *testing.T, eventType string, data interface{}) []byte {
	t.Helper()
	ev, err := NewEvent(eventType, "org-service", "corr-1", data)
	require.NoError(t, err)
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	return body
}

func TestDispatch(t *testing.T) {
	c := newConsumer(nil, "customfield-service.org", logger.Nop())

	var got MembershipGrantedEvent
	var corr string
	c.RegisterHandler(EventMembershipGranted, func(ctx context.Context, e *Event) error {
		corr = CorrelationID(ctx)
		return e.UnmarshalData(&got)
	})
	c.RegisterHandler(EventCompanyDeleted, func(context.Context, *Event) error {
		return fmt.Errorf("db down")
	})

	body := eventBody(t, EventMembershipGranted, MembershipGrantedEvent{AccountID: 1, CompanyID: 2, Role: "admin"})
	assert.Equal(t, outcomeAck, c.dispatch(context.Background(), body, 0))
	assert.Equal(t, MembershipGrantedEvent{AccountID: 1, CompanyID: 2, Role: "admin"}, got)
	assert.Equal(t, "corr-1", corr)

	assert.Equal(t, outcomeReject, c.dispatch(context.Background(), []byte("{not json"), 0))
	assert.Equal(t, outcomeAck, c.dispatch(context.Background(), eventBody(t, "org.unknown", nil), 0))

	failing := eventBody(t, EventCompanyDeleted, CompanyDeletedEvent{CompanyID: 2})
	assert.Equal(t, outcomeRequeue, c.dispatch(context.Background(), failing, 0))
	assert.Equal(t, outcomeReject, c.dispatch(context.Background(), failing, MaxDeliveryAttempts))
}

func TestRun_ResumesAfterChannelClose(t *testing.T) {
	c := newConsumer(nil, "customfield-service.org", logger.Nop())

	handled := make(chan int64, 1)
	c.RegisterHandler(EventCompanyDeleted, func(_ context.Context, e *Event) error {
		var data CompanyDeletedEvent
		if err := e.UnmarshalData(&data); err != nil {
			return err
		}
		handled <- data.CompanyID
		return nil
	})

	closed := make(chan amqp.Delivery)
	close(closed)
	next := make(chan amqp.Delivery, 1)
	next <- amqp.Delivery{Body: eventBody(t, EventCompanyDeleted, CompanyDeletedEvent{CompanyID: 7})}

	resumes := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(ctx, closed, func(context.Context) (<-chan amqp.Delivery, error) {
			resumes++
			return next, nil
		})
	}()

	select {
	case id := <-handled:
		assert.Equal(t, int64(7), id)
	case <-time.After(2 * time.Second):
		t.Fatal("delivery after reconnect was not handled")
	}

	cancel()
	<-done
	assert.Equal(t, 1, resumes)
}

func TestRun_StopsWhenReconnectFails(t *testing.T) {
	c := newConsumer(nil, "customfield-service.org", logger.Nop())

	closed := make(chan amqp.Delivery)
	close(closed)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(context.Background(), closed, func(context.Context) (<-chan amqp.Delivery, error) {
			return nil, fmt.Errorf("broker unreachable")
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer kept running after a failed reconnect")
	}
}
