package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/hireflow/pkg/channels/gochannel"
	"github.com/dukex/hireflow/pkg/channels/kafka"
	"github.com/dukex/hireflow/pkg/eventbus"
)

const serviceName = "hireflow"

// NewEventBus creates the event bus for provider, "kafka" or "gochannel".
func NewEventBus(provider string, brokers []string, logger *slog.Logger, opts ...eventbus.Option) (eventbus.EventBus, error) {
	adapter := watermill.NewSlogLogger(logger)
	opts = append([]eventbus.Option{eventbus.WithLogger(logger)}, opts...)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(adapter, kafka.NewConfig(brokers, serviceName))
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, opts...), nil
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(adapter)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-process pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %q", provider)
	}
}
