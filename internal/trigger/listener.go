// Package trigger turns document creations in the messages collection into
// calls on the notification dispatcher.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/upay/backend/internal/domain"
)

// MessageHandler receives each created message.
type MessageHandler interface {
	HandleMessageCreated(ctx context.Context, msg *domain.Message)
}

// Event is one created document.
type Event struct {
	ID   string
	Data map[string]interface{}
}

type Options struct {
	Collection  string
	Concurrency int
	// CatchUp replays documents from the initial snapshot created within
	// this window before startup. Zero ignores the initial snapshot.
	CatchUp time.Duration
	// Timeout bounds a single dispatch. Dispatches outlive shutdown of the
	// listener up to this limit so pushes are not cut off midway.
	Timeout time.Duration
}

type Listener struct {
	client  *firestore.Client
	handler MessageHandler
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
}

func NewListener(client *firestore.Client, handler MessageHandler, opts Options, logger *zap.Logger) *Listener {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	return &Listener{
		client:  client,
		handler: handler,
		opts:    opts,
		logger:  logger.With(zap.String("collection", opts.Collection)),
		now:     time.Now,
	}
}

// Run listens until ctx is cancelled. The first snapshot lists every
// existing document; only the catch-up window of it is dispatched.
func (l *Listener) Run(ctx context.Context) error {
	started := l.now()
	it := l.client.Collection(l.opts.Collection).Snapshots(ctx)
	defer it.Stop()

	baseline := true
	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
				l.logger.Info("Listener stopped")
				return nil
			}
			return fmt.Errorf("listen on %s: %w", l.opts.Collection, err)
		}

		events := addedEvents(snap.Changes)
		if baseline {
			baseline = false
			var replay []Event
			if l.opts.CatchUp > 0 {
				replay = CreatedSince(events, started.Add(-l.opts.CatchUp))
			}
			l.logger.Info("Listener attached", zap.Int("existing", snap.Size), zap.Int("replayed", len(replay)))
			events = replay
		}

		l.Dispatch(ctx, events)
	}
}

// Dispatch hands events to the handler, at most Concurrency at a time, and
// waits for all of them.
func (l *Listener) Dispatch(ctx context.Context, events []Event) {
	if len(events) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(l.opts.Concurrency)
	for _, ev := range events {
		g.Go(func() error {
			dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.opts.Timeout)
			defer cancel()
			l.handler.HandleMessageCreated(dctx, domain.MessageFromData(ev.ID, ev.Data))
			return nil
		})
	}
	_ = g.Wait()
}

// CreatedSince keeps events whose createdAt is at or after since.
// Documents without a createdAt are dropped.
func CreatedSince(events []Event, since time.Time) []Event {
	var out []Event
	for _, ev := range events {
		created, ok := ev.Data[domain.FieldCreatedAt].(time.Time)
		if ok && !created.Before(since) {
			out = append(out, ev)
		}
	}
	return out
}

func addedEvents(changes []firestore.DocumentChange) []Event {
	var events []Event
	for _, ch := range changes {
		if ch.Kind != firestore.DocumentAdded || ch.Doc == nil {
			continue
		}
		events = append(events, Event{ID: ch.Doc.Ref.ID, Data: ch.Doc.Data()})
	}
	return events
}
