package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

func GetKafkaProducerConfig(broker string, clientID string) kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": broker,
		"client.id":         clientID,
		"acks":              "all",
	}
}

func GetKafkaConsumerConfig(broker string, groupID string) kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": broker,
		"group.id":          groupID,
		"auto.offset.reset": "smallest",
		"retry.backoff.ms":  100,
	}
}

// KafkaPublisher produces JSON messages. Delivery failures are reported
// asynchronously and only logged.
type KafkaPublisher struct {
	producer *kafka.Producer
}

func NewKafkaPublisher(broker string, clientID string) (*KafkaPublisher, error) {
	log.Println("Initializing kafka Producer...")
	cfg := GetKafkaProducerConfig(broker, clientID)
	p, err := kafka.NewProducer(&cfg)
	if err != nil {
		log.Printf("[kafka] Error on producer: %s\n", err.Error())
		return nil, err
	}
	go func() {
		for e := range p.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					log.Printf("[kafka] Delivery failed for key %s: %s\n", string(ev.Key), ev.TopicPartition.Error.Error())
				}
			case kafka.Error:
				log.Printf("[kafka] Producer error: %s\n", ev.Error())
			}
		}
	}()
	return &KafkaPublisher{producer: p}, nil
}

func (k *KafkaPublisher) Publish(ctx context.Context, topic string, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[kafka] Error encoding payload for %s: %s\n", topic, err.Error())
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}, nil)
}

// Close waits up to timeout for queued messages before shutting down.
func (k *KafkaPublisher) Close(timeout time.Duration) {
	if left := k.producer.Flush(int(timeout.Milliseconds())); left > 0 {
		log.Printf("[kafka] %d message(s) not delivered before shutdown\n", left)
	}
	k.producer.Close()
}

const consumerBackoff = time.Second

// ConsumeTopic reads topic until ctx is done, handing each message to handle.
func ConsumeTopic(ctx context.Context, broker string, groupID string, topic string, handle func(key []byte, value []byte)) error {
	log.Println("Initializing kafka Consumer...")
	cfg := GetKafkaConsumerConfig(broker, groupID)
	consumer, err := kafka.NewConsumer(&cfg)
	if err != nil {
		log.Printf("[kafka] Error on consumer: %s\n", err.Error())
		return err
	}
	defer consumer.Close()
	if err := consumer.SubscribeTopics([]string{topic}, nil); err != nil {
		log.Printf("[kafka] Error subscribing to %s: %s\n", topic, err.Error())
		return err
	}
	log.Printf("[kafka] waiting for messages on %s...\n", topic)
	for ctx.Err() == nil {
		msg, err := consumer.ReadMessage(500 * time.Millisecond)
		if err != nil {
			kerr, ok := err.(kafka.Error)
			if ok && kerr.Code() == kafka.ErrTimedOut {
				continue
			}
			if ok && kerr.IsFatal() {
				return fmt.Errorf("kafka consumer on %s: %w", topic, err)
			}
			log.Printf("[kafka] Consumer error: %s\n", err.Error())
			select {
			case <-ctx.Done():
			case <-time.After(consumerBackoff):
			}
			continue
		}
		handle(msg.Key, msg.Value)
	}
	return nil
}

func KafkaCreateTopics(ctx context.Context, broker string, topics ...string) ([]kafka.TopicResult, error) {
	a, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": broker,
	})
	if err != nil {
		log.Printf("[kafka] Error on AdminClient: %s\n", err.Error())
		return nil, err
	}
	defer a.Close()
	topicsDef := []kafka.TopicSpecification{}
	for _, topic := range topics {
		topicsDef = append(topicsDef, kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     10,
			ReplicationFactor: 1,
		})
	}
	result, err := a.CreateTopics(ctx, topicsDef)
	if err != nil {
		log.Printf("[kafka] Error creating topics: %s\n", err.Error())
		return nil, err
	}
	return result, nil
}
