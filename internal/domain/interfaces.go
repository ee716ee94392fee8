package domain

import (
	"context"
	"time"
)

// Selector produces the deterministic daily selection for a date.
type Selector interface {
	Select(date time.Time) (DailySelection, error)
}

// CorpusClient fetches excerpt texts from the remote corpus API.
type CorpusClient interface {
	Fetch(ctx context.Context, excerpt Excerpt) (FetchedText, error)
}

// SpeechSynthesizer turns Hebrew text into a voice note.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ChannelTransport delivers formatted content to one recipient.
type ChannelTransport interface {
	SendText(ctx context.Context, chatID int64, chunks []MessageChunk) error
	SendAudio(ctx context.Context, chatID int64, audio []byte, caption string) error
}

// SubscriberRepo persists the broadcast recipient set.
type SubscriberRepo interface {
	Add(ctx context.Context, chatID int64) (bool, error)
	Remove(ctx context.Context, chatID int64) (bool, error)
	All(ctx context.Context) ([]Subscriber, error)
}

// BroadcastLog records finished broadcast runs for operators.
type BroadcastLog interface {
	Record(ctx context.Context, report BroadcastReport) error
}

// Cache is a simple TTL store, also used as the once-per-day broadcast guard.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) (bool, error)
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
