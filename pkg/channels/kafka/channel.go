// Package kafka provides the Kafka publisher and subscriber used by the event bus in production.
package kafka

import (
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

var ErrNoBrokers = errors.New("no Kafka brokers configured")

// Config describes a Kafka connection. Subscribers sharing a ConsumerGroup split the
// partitions between them, so each event is handled by one replica.
type Config struct {
	Brokers       []string
	ConsumerGroup string
	// FromNewest skips events published before the group first connected.
	FromNewest bool
}

// NewConfig builds a Config for serviceName from broker addresses, dropping blanks.
func NewConfig(brokers []string, serviceName string) Config {
	cleaned := make([]string, 0, len(brokers))

	for _, broker := range brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			cleaned = append(cleaned, broker)
		}
	}

	return Config{Brokers: cleaned, ConsumerGroup: "cg-" + serviceName}
}

// CreateChannel connects a publisher and a subscriber to the brokers in config.
func CreateChannel(logger watermill.LoggerAdapter, config Config) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(config.Brokers) == 0 {
		return nil, nil, ErrNoBrokers
	}

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               config.Brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: subscriberSaramaConfig(config),
			ConsumerGroup:         config.ConsumerGroup,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               config.Brokers,
			Marshaler:             kafka.NewWithPartitioningMarshaler(partitionKey),
			OverwriteSaramaConfig: publisherSaramaConfig(),
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return publisher, subscriber, nil
}

func subscriberSaramaConfig(config Config) *sarama.Config {
	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	if config.FromNewest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	return saramaConfig
}

// publisherSaramaConfig waits for all in-sync replicas so an accepted event is not lost.
func publisherSaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Net.MaxOpenRequests = 1

	return saramaConfig
}
