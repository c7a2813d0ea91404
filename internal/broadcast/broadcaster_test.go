package broadcast

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskshare/taskshare/internal/models"
)

func change(kind, taskID string) models.Change {
	return models.Change{
		Kind:            kind,
		TaskID:          taskID,
		ActingPrincipal: models.PrincipalSummary{ID: "u1"},
	}
}

func TestPublish_FanOut(t *testing.T) {
	b := New(zerolog.Nop(), 4)

	first := b.Subscribe("s1")
	second := b.Subscribe("s2")
	require.Equal(t, 2, b.Subscribers())

	b.Publish(change(models.ChangeTaskDeleted, "t1"))

	for _, ch := range []<-chan models.Change{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, models.ChangeTaskDeleted, got.Kind)
			assert.Equal(t, "t1", got.TaskID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the change")
		}
	}
}

func TestPublish_PreservesOrderPerSubscriber(t *testing.T) {
	b := New(zerolog.Nop(), 8)
	ch := b.Subscribe("s1")

	for i := 0; i < 5; i++ {
		b.Publish(change(models.ChangeTaskUpdated, fmt.Sprintf("t%d", i)))
	}

	for i := 0; i < 5; i++ {
		got := <-ch
		assert.Equal(t, fmt.Sprintf("t%d", i), got.TaskID)
	}
}

func TestPublish_NeverBlocksOnFullBuffer(t *testing.T) {
	b := New(zerolog.Nop(), 1)
	ch := b.Subscribe("slow")

	// Nobody drains the channel; the second publish must drop, not block.
	done := make(chan struct{})
	go func() {
		b.Publish(change(models.ChangeTaskUpdated, "t1"))
		b.Publish(change(models.ChangeTaskUpdated, "t2"))
		b.Publish(change(models.ChangeTaskUpdated, "t3"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}

	got := <-ch
	assert.Equal(t, "t1", got.TaskID)
	select {
	case unexpected := <-ch:
		// Exactly one record fit the buffer; anything past it was dropped.
		assert.Fail(t, "unexpected record", "got %+v", unexpected)
	default:
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	b := New(zerolog.Nop(), 4)
	ch := b.Subscribe("s1")

	b.Unsubscribe("s1")
	assert.Equal(t, 0, b.Subscribers())

	_, open := <-ch
	assert.False(t, open, "channel should be closed after unsubscribe")

	// Unsubscribing twice is harmless.
	b.Unsubscribe("s1")
}

func TestPublish_AfterUnsubscribeDeliversNothing(t *testing.T) {
	b := New(zerolog.Nop(), 4)
	keep := b.Subscribe("keep")
	_ = b.Subscribe("gone")
	b.Unsubscribe("gone")

	b.Publish(change(models.ChangeTaskCreated, "t1"))

	got := <-keep
	assert.Equal(t, "t1", got.TaskID)
	assert.Equal(t, 1, b.Subscribers())
}

func TestSubscribe_ReplacesExistingSession(t *testing.T) {
	b := New(zerolog.Nop(), 4)
	old := b.Subscribe("s1")
	fresh := b.Subscribe("s1")
	require.Equal(t, 1, b.Subscribers())

	_, open := <-old
	assert.False(t, open, "replaced subscription should be closed")

	b.Publish(change(models.ChangeTaskCreated, "t1"))
	got := <-fresh
	assert.Equal(t, "t1", got.TaskID)
}
