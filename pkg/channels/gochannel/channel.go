// Package gochannel provides the in-process message channel used for
// development and tests.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// CreateChannel creates the channel used by the in-memory event bus
// provider: buffered, non-blocking publishes.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	return newChannel(gochannel.Config{
		OutputChannelBuffer: 1000,
	}, logger)
}

// CreateTestChannel blocks each publish until the subscriber acks and keeps
// messages for late subscribers, which makes bus round-trip tests
// deterministic.
func CreateTestChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	return newChannel(gochannel.Config{
		OutputChannelBuffer:            10,
		Persistent:                     true,
		BlockPublishUntilSubscriberAck: true,
	}, logger)
}

func newChannel(config gochannel.Config, logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	// One GoChannel serves as both publisher and subscriber.
	pubSub := gochannel.NewGoChannel(config, logger)

	return pubSub, pubSub, nil
}
