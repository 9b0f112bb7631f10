package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agentops/gatekeeper/service/messaging/memory"
)

func TestPublishConsumeAck(t *testing.T) {
	ctx := context.Background()
	queue := memory.NewQueue[string](memory.DefaultConfig())

	payload := "gate-created"
	assert.NoError(t, queue.Publish(ctx, &payload))

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "gate-created", *message.T())
	assert.NoError(t, message.Ack())

	// A message is settled exactly once.
	assert.Error(t, message.Ack())
}

func TestNackRetriesThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	queue := memory.NewQueue[int](memory.Config{
		MaxRetries:  2,
		RetryDelay:  time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 4,
	})

	payload := 7
	assert.NoError(t, queue.Publish(ctx, &payload))

	for attempt := 0; attempt < 3; attempt++ {
		waitCtx, cancel := context.WithTimeout(ctx, time.Second)
		message, err := queue.Consume(waitCtx)
		cancel()
		assert.NoError(t, err)
		assert.NoError(t, message.Nack(errors.New("handler failed")))
	}

	assert.Equal(t, 1, queue.DeadLetters())
}

func TestPublishDropsWhenFull(t *testing.T) {
	ctx := context.Background()
	queue := memory.NewQueue[string](memory.Config{QueueBuffer: 1})

	first, second := "a", "b"
	assert.NoError(t, queue.Publish(ctx, &first))
	assert.Error(t, queue.Publish(ctx, &second))
}

func TestConsumeHonoursContext(t *testing.T) {
	queue := memory.NewQueue[string](memory.DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := queue.Consume(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
