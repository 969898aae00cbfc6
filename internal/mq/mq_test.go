package mq

import (
	"context"
	"testing"
	"time"

	"github.com/morerecipes/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_PublishSubscribe(t *testing.T) {
	m := New(NewMemoryBackend(), "memory")
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.Subscribe(ctx, "recipe.events", func(_ context.Context, msg Message) error {
			received <- msg
			return nil
		})
	}()

	var got Message
	// Publish until the subscriber is registered; earlier messages are dropped.
	require.Eventually(t, func() bool {
		_, err := m.Publish(ctx, "recipe.events", []byte(`{"type":"recipe.created"}`), map[string]string{"type": "recipe.created"})
		if err != nil {
			return false
		}
		select {
		case msg := <-received:
			got = msg
			return true
		case <-time.After(10 * time.Millisecond):
			return false
		}
	}, time.Second, 20*time.Millisecond)

	assert.NotEmpty(t, got.ID)
	assert.JSONEq(t, `{"type":"recipe.created"}`, string(got.Data))
	assert.Equal(t, "recipe.created", got.Attributes["type"])

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestMemoryBackend_Closed(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err := b.Publish(context.Background(), "c", nil, nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, b.Subscribe(context.Background(), "c", nil), ErrClosed)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	m, err := Open(ctx, config.MQConfig{})
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = Open(ctx, config.MQConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", m.Name())
	require.NoError(t, m.Close())

	_, err = Open(ctx, config.MQConfig{Backend: "kafka"})
	assert.Error(t, err)

	_, err = Open(ctx, config.MQConfig{Backend: "rabbitmq"})
	assert.ErrorContains(t, err, "url is required")
}
