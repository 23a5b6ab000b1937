package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockEmitter(t *testing.T) (*KafkaEmitter, *mocks.SyncProducer) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	return &KafkaEmitter{
		producer: producer,
		topic:    "notifications",
		logger:   zap.NewNop(),
	}, producer
}

func TestKafkaEmitter_Send(t *testing.T) {
	emitter, producer := newMockEmitter(t)
	defer emitter.Close()

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "notifications", msg.Topic)

		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "alice", string(key))

		value, err := msg.Value.Encode()
		require.NoError(t, err)

		var event Event
		require.NoError(t, json.Unmarshal(value, &event))
		assert.Equal(t, "alice", event.TargetUserID)
		assert.Equal(t, KindCollaborationInvite, event.Kind)
		assert.Equal(t, "g1", event.Payload["group_id"])
		assert.False(t, event.EmittedAt.IsZero())
		return nil
	})

	emitter.Send(context.Background(), "alice", KindCollaborationInvite, map[string]any{"group_id": "g1"})
}

func TestKafkaEmitter_SendFailureDoesNotPanic(t *testing.T) {
	emitter, producer := newMockEmitter(t)
	defer emitter.Close()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	// Delivery failure is swallowed; the caller never sees it.
	emitter.Send(context.Background(), "bob", KindNewCollaborationEntry, nil)
}

func TestNopEmitter_Send(t *testing.T) {
	NopEmitter{}.Send(context.Background(), "anyone", KindCollaborationResponse, nil)
}
