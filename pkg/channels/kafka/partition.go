package kafka

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/hireflow/pkg/events"
)

// partitionKey keeps every event of one entity on the same partition, preserving their order.
func partitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(events.EventMetadataKey), nil
}
