package chat

import (
	"sync"
	"testing"
	"time"
)

func TestFeedSendAppendsSentMessage(t *testing.T) {
	feed := NewFeed()
	feed.now = func() time.Time { return time.Date(2025, 3, 10, 15, 4, 0, 0, time.UTC) }

	msg, ok := feed.Send("Olá")
	if !ok {
		t.Fatalf("expected send to append")
	}
	if msg.ID == "" {
		t.Fatalf("expected generated message ID")
	}
	if !msg.Sent {
		t.Fatalf("expected sent direction")
	}
	if msg.Text != "Olá" {
		t.Fatalf("unexpected text: %q", msg.Text)
	}
	if msg.Time != "15:04" {
		t.Fatalf("unexpected display time: %q", msg.Time)
	}
	if feed.Len() != 1 {
		t.Fatalf("expected one message, got %d", feed.Len())
	}
}

func TestFeedSendRejectsWhitespace(t *testing.T) {
	feed := NewFeed()
	for _, text := range []string{"", "   ", "\n\t"} {
		if _, ok := feed.Send(text); ok {
			t.Fatalf("send(%q) should be a no-op", text)
		}
	}
	if feed.Len() != 0 {
		t.Fatalf("feed must stay empty, got %d messages", feed.Len())
	}
}

func TestFeedPreservesAppendOrder(t *testing.T) {
	feed := NewFeed()
	feed.Send("primeira")
	feed.Receive("segunda")
	feed.Send("terceira")

	msgs := feed.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "primeira" || msgs[1].Text != "segunda" || msgs[2].Text != "terceira" {
		t.Fatalf("unexpected order: %v", msgs)
	}
	if msgs[0].Sent != true || msgs[1].Sent != false {
		t.Fatalf("unexpected directions")
	}
}

func TestFeedMessagesReturnsCopy(t *testing.T) {
	feed := NewFeed()
	feed.Send("original")
	msgs := feed.Messages()
	msgs[0].Text = "mutated"
	if feed.Messages()[0].Text != "original" {
		t.Fatalf("Messages must return a copy")
	}
}

func TestFeedConcurrentSends(t *testing.T) {
	feed := NewFeed()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			feed.Send("mensagem")
		}()
	}
	wg.Wait()
	if feed.Len() != 50 {
		t.Fatalf("expected 50 messages, got %d", feed.Len())
	}
}

func TestFeedsRegistryReturnsSameFeed(t *testing.T) {
	feeds := NewFeeds()
	a := feeds.Get("conv-1")
	b := feeds.Get("conv-1")
	if a != b {
		t.Fatalf("expected the same feed instance per conversation")
	}
	if feeds.Get("conv-2") == a {
		t.Fatalf("expected distinct feeds per conversation")
	}
}
