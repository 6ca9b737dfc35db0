package lib

import (
	"bytes"
	"context"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaConfig(t *testing.T) {
	p := GetKafkaProducerConfig("broker:9092", "api")
	assert.Equal(t, "broker:9092", p["bootstrap.servers"])
	assert.Equal(t, "api", p["client.id"])
	assert.Equal(t, "all", p["acks"])

	c := GetKafkaConsumerConfig("broker:9092", "audit")
	assert.Equal(t, "audit", c["group.id"])
}

func TestKafkaPublisherEncoding(t *testing.T) {
	// librdkafka connects lazily, so no broker is needed to enqueue.
	publisher, err := NewKafkaPublisher("127.0.0.1:1", "test")
	require.NoError(t, err)
	defer publisher.Close(10 * time.Millisecond)

	err = publisher.Publish(context.Background(), "transitions", "1", map[string]any{"ch": make(chan int)})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = publisher.Publish(ctx, "transitions", "1", map[string]any{"item_id": 1})
	assert.ErrorIs(t, err, context.Canceled)

	err = publisher.Publish(context.Background(), "transitions", "1", map[string]any{"item_id": 1})
	assert.NoError(t, err)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestConsumeTopicBacksOffWhenBrokerIsDown(t *testing.T) {
	out := &lockedBuffer{}
	log.SetOutput(out)
	defer log.SetOutput(os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	err := ConsumeTopic(ctx, "127.0.0.1:1", "test", "transitions", func(key []byte, value []byte) {
		t.Errorf("unexpected message %s", key)
	})
	assert.NoError(t, err)
	assert.LessOrEqual(t, strings.Count(out.String(), "Consumer error"), 3)
}
