package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_SubscribeAndUnsubscribe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bus := NewMemoryBus()

	var got []string
	unsubscribe, err := bus.Subscribe(ctx, "t", func(_ context.Context, msg *interfaces.Message) error {
		got = append(got, string(msg.Value))
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "t", []byte("one")))
	require.NoError(t, bus.Publish(ctx, "other", []byte("skip")))
	require.NoError(t, unsubscribe())
	require.NoError(t, bus.Publish(ctx, "t", []byte("two")))

	assert.Equal(t, []string{"one"}, got)
	assert.Len(t, bus.Published("t"), 2)
}

func TestPublishJSON_UsesKeyAndEventType(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bus := NewMemoryBus()

	payload := map[string]string{"provider_id": "cva"}
	require.NoError(t, PublishJSON(ctx, bus, DefaultActivityTopic, "cva", ActivityLoggedEvent, payload))

	msgs := bus.Published(DefaultActivityTopic)
	require.Len(t, msgs, 1)
	assert.Equal(t, "cva", msgs[0].Key)
	assert.Equal(t, ActivityLoggedEvent, msgs[0].Headers[HeaderEventType])

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(msgs[0].Value, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestMemoryBus_ClosedRejectsPublish(t *testing.T) {
	t.Parallel()

	bus := NewMemoryBus()
	require.NoError(t, bus.Close())
	assert.Error(t, bus.Publish(context.Background(), "t", []byte("x")))
}
