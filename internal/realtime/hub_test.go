package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testHub() *Hub {
	return NewHub(zap.NewNop().Sugar())
}

func TestPublishReachesTopicSubscribers(t *testing.T) {
	h := testHub()

	ch, cancel := h.Subscribe(MeetingTopic("abc1234"))
	defer cancel()

	h.Publish(MeetingTopic("abc1234"), EventHostJoined, map[string]any{"started": true})

	select {
	case ev := <-ch:
		assert.Equal(t, EventHostJoined, ev.Name)
		assert.Equal(t, "meeting-abc1234", ev.Topic)
		assert.WithinDuration(t, time.Now(), ev.At, time.Second)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestPublishSkipsOtherTopics(t *testing.T) {
	h := testHub()

	ch, cancel := h.Subscribe(MeetingTopic("aaaaaaa"))
	defer cancel()

	h.Publish(MeetingTopic("bbbbbbb"), EventHostJoined, nil)

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelClosesChannel(t *testing.T) {
	h := testHub()
	topic := UserTopic(42)

	ch, cancel := h.Subscribe(topic)
	require.Equal(t, 1, h.SubscriberCount(topic))

	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, h.SubscriberCount(topic))

	// publishing into the void must not panic
	require.NotPanics(t, func() { h.Publish(topic, EventNotification, nil) })
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := testHub()
	topic := MeetingTopic("slow123")

	_, cancel := h.Subscribe(topic)
	defer cancel()

	done := make(chan struct{})
	go func() {
		// overflow the buffer; the hub drops instead of blocking
		for i := 0; i < subscriberBuffer*2; i++ {
			h.Publish(topic, EventHostJoined, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	h := testHub()
	topic := MeetingTopic("abc1234")

	ch1, cancel1 := h.Subscribe(topic)
	defer cancel1()
	ch2, cancel2 := h.Subscribe(topic)
	defer cancel2()

	h.Publish(topic, EventHostLeft, nil)

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventHostLeft, ev.Name)
		case <-time.After(time.Second):
			t.Fatal("subscriber missed event")
		}
	}
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "meeting-xyz", MeetingTopic("xyz"))
	assert.Equal(t, "17", UserTopic(17))
}
