package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
)

const (
	// RentCallCollectionName is the name of the rent call read model collection in MongoDB
	RentCallCollectionName = "rent_calls"
)

// RentCallRepository implements the obligation.Repository interface for MongoDB.
// Documents are keyed by rent call id and carry the stream revision they were projected from.
type RentCallRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewRentCallRepository creates a new MongoDB rent call repository
func NewRentCallRepository(logger *slog.Logger, db *mongo.Database) *RentCallRepository {
	return &RentCallRepository{
		collection: db.Collection(RentCallCollectionName),
		logger:     logger,
	}
}

// EnsureIndexes creates the lookup index used by the reconciliation candidate query
func (r *RentCallRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "entity_id", Value: 1}, {Key: "billing_month", Value: 1}},
			Options: options.Index().SetName("entity_month"),
		},
	})
	if err != nil {
		r.logger.Error("Failed to create rent call indexes", "error", err)
		return fmt.Errorf("failed to create rent call indexes: %w", err)
	}
	return nil
}

// Upsert replaces the stored document only when it holds an older revision. When a newer
// revision is already stored the filter misses, the upsert collides on _id and the write
// is dropped as stale.
func (r *RentCallRepository) Upsert(ctx context.Context, o *obligation.Obligation) error {
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now().UTC()
	}

	filter := bson.M{
		"_id":      o.ID,
		"revision": bson.M{"$lt": o.Revision},
	}
	_, err := r.collection.ReplaceOne(ctx, filter, o, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Skipping stale rent call projection",
				"rent_call_id", o.ID,
				"revision", o.Revision)
			return nil
		}
		r.logger.Error("Failed to upsert rent call",
			"rent_call_id", o.ID,
			"revision", o.Revision,
			"error", err)
		return fmt.Errorf("failed to upsert rent call: %w", err)
	}
	return nil
}

func (r *RentCallRepository) GetByID(ctx context.Context, id string) (*obligation.Obligation, error) {
	var o obligation.Obligation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, obligation.ErrNotFound{ID: id}
		}
		r.logger.Error("Failed to get rent call",
			"rent_call_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to get rent call: %w", err)
	}
	return &o, nil
}

// ListByEntityAndMonth returns the entity's rent calls for a billing month, ordered by id
func (r *RentCallRepository) ListByEntityAndMonth(ctx context.Context, entityID, billingMonth string) ([]obligation.Obligation, error) {
	filter := bson.M{
		"entity_id":     entityID,
		"billing_month": billingMonth,
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list rent calls",
			"entity_id", entityID,
			"billing_month", billingMonth,
			"error", err)
		return nil, fmt.Errorf("failed to list rent calls: %w", err)
	}
	defer cursor.Close(ctx)

	rentCalls := []obligation.Obligation{}
	if err := cursor.All(ctx, &rentCalls); err != nil {
		r.logger.Error("Failed to decode rent calls",
			"entity_id", entityID,
			"billing_month", billingMonth,
			"error", err)
		return nil, fmt.Errorf("failed to decode rent calls: %w", err)
	}
	return rentCalls, nil
}
