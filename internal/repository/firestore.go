package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/upay/backend/internal/domain"
)

// Collections names the Firestore collections the repository works on.
type Collections struct {
	Messages   string
	Identity   string
	Dispatches string
}

// FirestoreRepository implements the domain repositories on Cloud Firestore
type FirestoreRepository struct {
	client      *firestore.Client
	collections Collections
	dispatchTTL time.Duration
	now         func() time.Time
}

// NewFirestoreRepository creates a new Firestore repository. dispatchTTL is
// how long dispatch markers are kept; it is written as expireAt so a TTL
// policy on the collection can purge them.
func NewFirestoreRepository(client *firestore.Client, collections Collections, dispatchTTL time.Duration) *FirestoreRepository {
	return &FirestoreRepository{
		client:      client,
		collections: collections,
		dispatchTTL: dispatchTTL,
		now:         time.Now,
	}
}

// MarkMessageRead sets isRead and a server side readAt on an existing message
func (r *FirestoreRepository) MarkMessageRead(ctx context.Context, messageID string) error {
	_, err := r.client.Collection(r.collections.Messages).Doc(messageID).Update(ctx, []firestore.Update{
		{Path: domain.FieldIsRead, Value: true},
		{Path: domain.FieldReadAt, Value: firestore.ServerTimestamp},
	})
	return mapError(err)
}

// DeleteMessage deletes a message document
func (r *FirestoreRepository) DeleteMessage(ctx context.Context, messageID string) error {
	_, err := r.client.Collection(r.collections.Messages).Doc(messageID).Delete(ctx)
	return mapError(err)
}

// ListMessageIDsCreatedBefore returns ids of messages with createdAt < cutoff
func (r *FirestoreRepository) ListMessageIDsCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	iter := r.client.Collection(r.collections.Messages).
		Where(domain.FieldCreatedAt, "<", cutoff).
		Select().
		Documents(ctx)
	defer iter.Stop()

	var ids []string
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, doc.Ref.ID)
	}
	return ids, nil
}

// deleteTxOptions makes a batch delete a single commit attempt. A failed
// cleanup is picked up by the next scheduled run.
var deleteTxOptions = []firestore.TransactionOption{firestore.MaxAttempts(1)}

// DeleteMessages deletes the given messages in one atomic commit
func (r *FirestoreRepository) DeleteMessages(ctx context.Context, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if len(messageIDs) > domain.MaxBatchWrites {
		return fmt.Errorf("%d deletes exceed the %d write limit", len(messageIDs), domain.MaxBatchWrites)
	}

	col := r.client.Collection(r.collections.Messages)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, id := range messageIDs {
			if err := tx.Delete(col.Doc(id)); err != nil {
				return err
			}
		}
		return nil
	}, deleteTxOptions...)
}

// GetIdentity loads the identity record stored under key
func (r *FirestoreRepository) GetIdentity(ctx context.Context, key string) (*domain.Identity, error) {
	snap, err := r.client.Collection(r.collections.Identity).Doc(key).Get(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	var identity domain.Identity
	if err := snap.DataTo(&identity); err != nil {
		return nil, fmt.Errorf("decode identity %s: %w", key, err)
	}
	return &identity, nil
}

// UpsertIdentity merges update into the identity record, creating it if absent.
// Optional fields that are empty are not written so earlier values survive.
func (r *FirestoreRepository) UpsertIdentity(ctx context.Context, key string, update domain.IdentityUpdate) error {
	_, err := r.client.Collection(r.collections.Identity).Doc(key).Set(ctx, identityFields(update), firestore.MergeAll)
	return mapError(err)
}

// ClaimDispatch creates the dispatch marker for a message. Create fails if
// the document exists, which makes the claim atomic across replicas.
func (r *FirestoreRepository) ClaimDispatch(ctx context.Context, messageID, customerID string) error {
	now := r.now().UTC()
	_, err := r.client.Collection(r.collections.Dispatches).Doc(messageID).Create(ctx, map[string]interface{}{
		"messageId":    messageID,
		"customerId":   customerID,
		"dispatchedAt": firestore.ServerTimestamp,
		"expireAt":     now.Add(r.dispatchTTL),
	})
	if status.Code(err) == codes.AlreadyExists {
		return domain.ErrAlreadyDispatched
	}
	return mapError(err)
}

// Ping checks that the messages collection is reachable
func (r *FirestoreRepository) Ping(ctx context.Context) error {
	_, err := r.client.Collection(r.collections.Messages).Select().Limit(1).Documents(ctx).GetAll()
	return err
}

func identityFields(update domain.IdentityUpdate) map[string]interface{} {
	fields := map[string]interface{}{
		"nic":         update.NIC,
		"fcmToken":    update.FCMToken,
		"active":      true,
		"lastUpdated": firestore.ServerTimestamp,
	}
	if update.CustomerID != "" {
		fields["customerId"] = update.CustomerID
	}
	if update.Platform != "" {
		fields["platform"] = update.Platform
	}
	return fields
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return err
}
