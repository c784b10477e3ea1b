// Package chat holds the in-memory conversation feed. Messages live for the
// process lifetime only; nothing is persisted or dispatched to peers.
package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tesebook/pkg/domain"
)

// timeLayout renders the display timestamp the way the app shows it (HH:MM).
const timeLayout = "15:04"

// Feed is the append-only ordered message list of one conversation.
// Messages are appended, never mutated, removed, or reordered.
type Feed struct {
	mu       sync.RWMutex
	messages []domain.ChatMessage
	now      func() time.Time
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{now: time.Now}
}

// Send appends one sent-direction message with a fresh ID and a timestamp
// formatted at call time. Empty or whitespace-only text is a no-op and
// returns false.
func (f *Feed) Send(text string) (domain.ChatMessage, bool) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatMessage{}, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := domain.ChatMessage{
		ID:   uuid.NewString(),
		Text: text,
		Sent: true,
		Time: f.now().Format(timeLayout),
	}
	f.messages = append(f.messages, msg)
	return msg, true
}

// Receive appends one received-direction message. Used to seed
// conversations and by future delivery integration.
func (f *Feed) Receive(text string) (domain.ChatMessage, bool) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatMessage{}, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := domain.ChatMessage{
		ID:   uuid.NewString(),
		Text: text,
		Sent: false,
		Time: f.now().Format(timeLayout),
	}
	f.messages = append(f.messages, msg)
	return msg, true
}

// Messages returns the feed in append order, oldest first.
func (f *Feed) Messages() []domain.ChatMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.ChatMessage, len(f.messages))
	copy(out, f.messages)
	return out
}

// Len reports the number of messages.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.messages)
}

// Feeds is a registry of conversation feeds keyed by conversation ID.
type Feeds struct {
	mu    sync.Mutex
	feeds map[string]*Feed
}

// NewFeeds returns an empty registry.
func NewFeeds() *Feeds {
	return &Feeds{feeds: make(map[string]*Feed)}
}

// Get returns the feed for a conversation, creating it on first use.
func (r *Feeds) Get(conversationID string) *Feed {
	r.mu.Lock()
	defer r.mu.Unlock()
	feed, ok := r.feeds[conversationID]
	if !ok {
		feed = NewFeed()
		r.feeds[conversationID] = feed
	}
	return feed
}
