// Package mongostore persists notification records in a MongoDB collection.
// Status changes use a compare-and-set on the previous status instead of a
// transaction, so a standalone server is enough.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/cafetal/pkg/notifications"
)

var (
	ErrDuplicateID      = errors.New("mongostore: duplicate notification id")
	ErrConcurrentUpdate = errors.New("mongostore: record changed concurrently")
)

// casAttempts bounds the compare-and-set loop of a status change.
const casAttempts = 5

type document struct {
	ID           string         `bson:"_id"`
	Seq          bson.ObjectID  `bson:"seq"`
	RecipientID  int64          `bson:"recipient_id"`
	Channel      string         `bson:"channel"`
	Title        string         `bson:"title"`
	Message      string         `bson:"message"`
	Payload      map[string]any `bson:"payload,omitempty"`
	TemplateName string         `bson:"template_name,omitempty"`
	Status       string         `bson:"status"`
	ErrorMessage string         `bson:"error_message,omitempty"`
	CreatedAt    time.Time      `bson:"created_at"`
	SentAt       *time.Time     `bson:"sent_at,omitempty"`
	DeliveredAt  *time.Time     `bson:"delivered_at,omitempty"`
	ReadAt       *time.Time     `bson:"read_at,omitempty"`
}

func (d document) record() notifications.Record {
	return notifications.Record{
		ID:           d.ID,
		RecipientID:  d.RecipientID,
		Channel:      notifications.Channel(d.Channel),
		Title:        d.Title,
		Message:      d.Message,
		Payload:      d.Payload,
		TemplateName: d.TemplateName,
		Status:       notifications.Status(d.Status),
		ErrorMessage: d.ErrorMessage,
		CreatedAt:    d.CreatedAt,
		SentAt:       d.SentAt,
		DeliveredAt:  d.DeliveredAt,
		ReadAt:       d.ReadAt,
	}
}

// Store implements notifications.Storage.
type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store over coll.
func New(coll *mongo.Collection, opts ...Option) *Store {
	s := &Store{coll: coll, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndexes creates the listing and unread indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}},
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create notification indexes: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, rec notifications.Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = notifications.Lifecycle.Initial()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	doc := document{
		ID:           rec.ID,
		Seq:          bson.NewObjectID(),
		RecipientID:  rec.RecipientID,
		Channel:      string(rec.Channel),
		Title:        rec.Title,
		Message:      rec.Message,
		Payload:      rec.Payload,
		TemplateName: rec.TemplateName,
		Status:       string(rec.Status),
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    rec.CreatedAt,
		SentAt:       rec.SentAt,
		DeliveredAt:  rec.DeliveredAt,
		ReadAt:       rec.ReadAt,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}
		return "", fmt.Errorf("insert notification: %w", err)
	}
	return rec.ID, nil
}

func (s *Store) Get(ctx context.Context, id string) (*notifications.Record, error) {
	var doc document
	if err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notifications.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	rec := doc.record()
	return &rec, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status notifications.Status, errorMessage string) error {
	return s.compareAndSet(ctx, id, func(rec *notifications.Record) (bool, error) {
		if err := rec.Transition(status, errorMessage, s.now()); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (s *Store) MarkRead(ctx context.Context, id string, recipientID int64) (bool, error) {
	return notifications.ReadOutcome(s.compareAndSet(ctx, id, func(rec *notifications.Record) (bool, error) {
		return rec.MarkRead(recipientID, s.now())
	}))
}

// compareAndSet loads the record, applies change and writes the status
// fields back only if the stored status is still the one that was read.
// change reports false when nothing needs writing.
func (s *Store) compareAndSet(ctx context.Context, id string, change func(rec *notifications.Record) (bool, error)) error {
	for range casAttempts {
		rec, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		prev := rec.Status

		changed, err := change(rec)
		if err != nil || !changed {
			return err
		}

		res, err := s.coll.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: id}, {Key: "status", Value: string(prev)}},
			bson.D{{Key: "$set", Value: bson.D{
				{Key: "status", Value: string(rec.Status)},
				{Key: "error_message", Value: rec.ErrorMessage},
				{Key: "sent_at", Value: rec.SentAt},
				{Key: "delivered_at", Value: rec.DeliveredAt},
				{Key: "read_at", Value: rec.ReadAt},
			}}},
		)
		if err != nil {
			return fmt.Errorf("update notification: %w", err)
		}
		if res.MatchedCount == 1 {
			return nil
		}
	}
	return ErrConcurrentUpdate
}

func (s *Store) ListForUser(ctx context.Context, recipientID int64, opts notifications.ListOptions) ([]notifications.Record, error) {
	filter := bson.D{{Key: "recipient_id", Value: recipientID}}
	if opts.Channel != "" {
		filter = append(filter, bson.E{Key: "channel", Value: string(opts.Channel)})
	}

	find := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}).
		SetSkip(int64(max(opts.Offset, 0)))
	if opts.Limit > 0 {
		find.SetLimit(int64(opts.Limit))
	}

	cur, err := s.coll.Find(ctx, filter, find)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	recs := make([]notifications.Record, 0, len(docs))
	for _, d := range docs {
		recs = append(recs, d.record())
	}
	return recs, nil
}

func (s *Store) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{
		{Key: "recipient_id", Value: recipientID},
		{Key: "status", Value: bson.D{{Key: "$ne", Value: string(notifications.StatusRead)}}},
	})
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return int(n), nil
}
