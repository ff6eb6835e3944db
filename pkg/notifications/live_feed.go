package notifications

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/cafetal/pkg/broadcast"
	"github.com/dmitrymomot/cafetal/pkg/cache"
	"github.com/dmitrymomot/cafetal/pkg/logger"
)

// LiveFeed pushes delivered in-app records to recipients that are currently
// listening, for example over server-sent events. Publishing is best effort:
// nothing is queued for recipients without a subscriber.
type LiveFeed struct {
	feeds  *cache.LRUCache[int64, *broadcast.MemoryBroadcaster[Record]]
	buffer int
	logger *slog.Logger
}

// LiveFeedOption configures a LiveFeed.
type LiveFeedOption func(*liveFeedOptions)

type liveFeedOptions struct {
	buffer   int
	maxFeeds int
	logger   *slog.Logger
}

// WithFeedBuffer sets the per-subscriber buffer. Default 16.
func WithFeedBuffer(n int) LiveFeedOption {
	return func(o *liveFeedOptions) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// WithMaxFeeds caps the number of recipient feeds kept in memory. The least
// recently used feed is closed when the cap is reached. Default 10000.
func WithMaxFeeds(n int) LiveFeedOption {
	return func(o *liveFeedOptions) {
		if n > 0 {
			o.maxFeeds = n
		}
	}
}

// WithFeedLogger sets the logger for the LiveFeed.
func WithFeedLogger(l *slog.Logger) LiveFeedOption {
	return func(o *liveFeedOptions) {
		o.logger = l
	}
}

// NewLiveFeed creates an empty feed registry.
func NewLiveFeed(opts ...LiveFeedOption) *LiveFeed {
	o := &liveFeedOptions{buffer: 16, maxFeeds: 10000, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	f := &LiveFeed{
		feeds:  cache.NewLRUCache[int64, *broadcast.MemoryBroadcaster[Record]](o.maxFeeds),
		buffer: o.buffer,
		logger: o.logger.With(logger.Component("live_feed")),
	}
	f.feeds.SetEvictCallback(func(recipientID int64, b *broadcast.MemoryBroadcaster[Record]) {
		_ = b.Close()
		f.logger.LogAttrs(context.Background(), slog.LevelDebug, "live feed closed", logger.RecipientID(recipientID))
	})
	return f
}

func (f *LiveFeed) feed(recipientID int64) *broadcast.MemoryBroadcaster[Record] {
	return f.feeds.GetOrCreate(recipientID, func() *broadcast.MemoryBroadcaster[Record] {
		return broadcast.NewMemoryBroadcaster[Record](f.buffer)
	})
}

// Subscribe returns a subscriber for one recipient's records. It ends when
// ctx is done or the feed is evicted.
func (f *LiveFeed) Subscribe(ctx context.Context, recipientID int64) broadcast.Subscriber[Record] {
	return f.feed(recipientID).Subscribe(ctx)
}

// Publish sends rec to the recipient's subscribers, if any.
func (f *LiveFeed) Publish(ctx context.Context, rec Record) {
	if _, ok := f.feeds.Get(rec.RecipientID); !ok {
		return
	}
	if err := f.feed(rec.RecipientID).Broadcast(ctx, broadcast.Message[Record]{Data: rec.Clone()}); err != nil {
		f.logger.LogAttrs(ctx, slog.LevelWarn, "live feed publish failed",
			logger.NotificationID(rec.ID),
			logger.RecipientID(rec.RecipientID),
			logger.Error(err),
		)
	}
}

// Close closes every feed and its subscribers.
func (f *LiveFeed) Close() error {
	f.feeds.Clear()
	return nil
}
