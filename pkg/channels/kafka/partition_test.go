package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/hireflow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionKey(t *testing.T) {
	msg := message.NewMessage("msg-1", []byte(`{}`))
	msg.Metadata.Set(events.EventMetadataKey, "cand-1")

	key, err := partitionKey(events.Topic, msg)
	require.NoError(t, err)
	assert.Equal(t, "cand-1", key)
}

func TestNewConfig(t *testing.T) {
	config := NewConfig([]string{" kafka-1:9092", "", "kafka-2:9092 "}, "hireflow")

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, config.Brokers)
	assert.Equal(t, "cg-hireflow", config.ConsumerGroup)
	assert.False(t, config.FromNewest)
}

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	_, _, err := CreateChannel(nil, NewConfig(nil, "hireflow"))
	require.ErrorIs(t, err, ErrNoBrokers)

	_, _, err = CreateChannel(nil, NewConfig([]string{""}, "hireflow"))
	require.ErrorIs(t, err, ErrNoBrokers)
}

func TestSaramaConfigs(t *testing.T) {
	subscriber := subscriberSaramaConfig(Config{})
	assert.Equal(t, sarama.OffsetOldest, subscriber.Consumer.Offsets.Initial)

	newest := subscriberSaramaConfig(Config{FromNewest: true})
	assert.Equal(t, sarama.OffsetNewest, newest.Consumer.Offsets.Initial)

	publisher := publisherSaramaConfig()
	assert.Equal(t, sarama.WaitForAll, publisher.Producer.RequiredAcks)
	assert.True(t, publisher.Producer.Return.Successes)
	require.NoError(t, publisher.Validate())
}
