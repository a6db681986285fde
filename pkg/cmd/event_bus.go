package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cadenza-io/cadenza/pkg/channels/gochannel"
	"github.com/cadenza-io/cadenza/pkg/channels/kafka"
	"github.com/cadenza-io/cadenza/pkg/eventbus"
)

// NewEventBus creates an event bus instance based on the provider. "kafka"
// connects to the given comma-separated broker list; "memory" runs
// in-process and is meant for development and tests.
func NewEventBus(provider, kafkaBrokers string, logger *slog.Logger) (eventbus.EventBus, message.Publisher) {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(splitBrokers(kafkaBrokers), watermill.NewSlogLogger(logger), "cadenza")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub), pub
	case "memory":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create in-memory pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub), pub
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}

func splitBrokers(brokers string) []string {
	var out []string

	for _, broker := range strings.Split(brokers, ",") {
		broker = strings.TrimSpace(broker)
		if broker != "" {
			out = append(out, broker)
		}
	}

	return out
}
