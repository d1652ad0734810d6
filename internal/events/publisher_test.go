package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatermillPublisher_PublishGradingEvent(t *testing.T) {
	logger := discardLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "grading")
	require.NoError(t, err)

	publisher := NewWatermillEventPublisher(pubSub, "grading", logger)
	event := NewSetupCompletedEvent(101, 3, 100, true, "educator-1")
	require.NoError(t, publisher.PublishGradingEvent(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(EventSetupCompleted), msg.Metadata.Get("event_type"))
		assert.Equal(t, eventSource, msg.Metadata.Get("source"))

		var decoded struct {
			Type EventType           `json:"type"`
			Data SetupCompletedEvent `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, EventSetupCompleted, decoded.Type)
		assert.Equal(t, int64(101), decoded.Data.CourseID)
		assert.Equal(t, 3, decoded.Data.GroupsCreated)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestMockEventPublisher(t *testing.T) {
	publisher := NewMockEventPublisher(discardLogger())
	ctx := context.Background()

	require.NoError(t, publisher.PublishGradingEvent(ctx, NewSetupFailedEvent(1, "create_groups", "boom", "u")))
	require.NoError(t, publisher.PublishGradingEvent(ctx, NewNeedsAttentionEvent(1, 90, []string{"Weights total 90.0% (should be 100%)"})))

	assert.Equal(t, []EventType{EventSetupFailed, EventNeedsAttention}, publisher.EventTypes())

	events := publisher.GetPublishedEvents()
	require.Len(t, events, 2)
	failed, ok := events[0].Data.(SetupFailedEvent)
	require.True(t, ok)
	assert.Equal(t, "create_groups", failed.Step)

	publisher.ClearEvents()
	assert.Empty(t, publisher.GetPublishedEvents())
}

func TestGenerateEventID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := GenerateEventID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
