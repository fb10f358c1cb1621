package bus

import (
	"testing"
	"time"

	"github.com/cppla/livewall/models"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	ch := make(chan models.Post, 10)
	if err := b.Subscribe("viewer-1", ch); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	b.Publish(models.Post{ID: 1, Content: "hello world"})

	select {
	case got := <-ch:
		if got.ID != 1 || got.Content != "hello world" {
			t.Errorf("unexpected post delivered: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for post")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	b := New()
	defer b.Close()

	ch := make(chan models.Post, 1)
	b.Subscribe("slow", ch)

	done := make(chan bool)
	go func() {
		b.Publish(models.Post{ID: 1})
		b.Publish(models.Post{ID: 2}) // buffer full, must drop
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Publish blocked on a full subscriber")
	}

	got := <-ch
	if got.ID != 1 {
		t.Errorf("expected post 1, got %d", got.ID)
	}
	if _, dropped := b.Stats(); dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", dropped)
	}
}

func TestFanOut(t *testing.T) {
	b := New()
	defer b.Close()

	a := make(chan models.Post, 5)
	c := make(chan models.Post, 5)
	b.Subscribe("a", a)
	b.Subscribe("b", c)

	b.Publish(models.Post{ID: 7})

	for _, ch := range []chan models.Post{a, c} {
		select {
		case got := <-ch:
			if got.ID != 7 {
				t.Errorf("expected post 7, got %d", got.ID)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the post")
		}
	}
}

func TestDuplicateSubscriberID(t *testing.T) {
	b := New()
	defer b.Close()

	ch := make(chan models.Post, 1)
	if err := b.Subscribe("dup", ch); err != nil {
		t.Fatalf("first Subscribe failed: %v", err)
	}
	if err := b.Subscribe("dup", ch); err != ErrSubscriberExists {
		t.Errorf("expected ErrSubscriberExists, got %v", err)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	defer b.Close()

	ch := make(chan models.Post, 5)
	b.Subscribe("gone", ch)
	if err := b.Unsubscribe("gone"); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if err := b.Unsubscribe("gone"); err != ErrSubscriberNotFound {
		t.Errorf("expected ErrSubscriberNotFound, got %v", err)
	}

	b.Publish(models.Post{ID: 3})
	select {
	case p := <-ch:
		t.Errorf("received post %d after unsubscribe", p.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClosedBus(t *testing.T) {
	b := New()
	b.Close()

	if err := b.Subscribe("x", make(chan models.Post, 1)); err != ErrBusClosed {
		t.Errorf("expected ErrBusClosed on Subscribe, got %v", err)
	}
	// Publish after close must be a silent no-op, not a panic.
	b.Publish(models.Post{ID: 1})
	if err := b.Close(); err != ErrBusClosed {
		t.Errorf("expected ErrBusClosed on second Close, got %v", err)
	}
}
