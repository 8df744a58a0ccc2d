package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/lifecycle"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// objectID parses a hex id. Malformed ids cannot match any document, so
// callers report them as not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.ErrNotFound
	}
	return oid, nil
}

// toDecimal128 fails for amounts Decimal128 cannot hold exactly
func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("%w: amount %s is not representable: %v", domain.ErrInvalidInput, d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func statusValues(states []lifecycle.Status) bson.A {
	out := make(bson.A, 0, len(states))
	for _, s := range states {
		out = append(out, string(s))
	}
	return out
}

// scopeFilter matches one document, optionally restricted to an owner
func scopeFilter(id, ownerID string) (bson.M, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": oid}
	if ownerID != "" {
		owner, err := objectID(ownerID)
		if err != nil {
			return nil, err
		}
		filter["user"] = owner
	}
	return filter, nil
}

// guardedFilter adds the allowed-status precondition to scopeFilter
func guardedFilter(id, ownerID string, allowed []lifecycle.Status) (bson.M, error) {
	if len(allowed) == 0 {
		return nil, fmt.Errorf("%w: empty status precondition", domain.ErrInvalidState)
	}
	filter, err := scopeFilter(id, ownerID)
	if err != nil {
		return nil, err
	}
	filter["status"] = bson.M{"$in": statusValues(allowed)}
	return filter, nil
}

// explainMiss is called after a guarded write matched nothing. It tells a
// missing document apart from one whose status moved.
func explainMiss(ctx context.Context, coll *mongo.Collection, id, ownerID string) error {
	filter, err := scopeFilter(id, ownerID)
	if err != nil {
		return err
	}
	var current struct {
		Status string `bson:"status"`
	}
	opts := options.FindOne().SetProjection(bson.M{"status": 1})
	if err := coll.FindOne(ctx, filter, opts).Decode(&current); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to read current status: %w", err)
	}
	return &domain.StaleStatusError{Current: lifecycle.Status(current.Status)}
}

// guardedUpdate applies update to the document if its status is allowed and
// decodes the post-image into out.
func guardedUpdate(ctx context.Context, coll *mongo.Collection, id, ownerID string, allowed []lifecycle.Status, update bson.M, out any) error {
	filter, err := guardedFilter(id, ownerID, allowed)
	if err != nil {
		return err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return explainMiss(ctx, coll, id, ownerID)
	}
	return err
}

// guardedDelete removes the document if its status is allowed and decodes
// the removed document into out.
func guardedDelete(ctx context.Context, coll *mongo.Collection, id, ownerID string, allowed []lifecycle.Status, out any) error {
	filter, err := guardedFilter(id, ownerID, allowed)
	if err != nil {
		return err
	}
	err = coll.FindOneAndDelete(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return explainMiss(ctx, coll, id, ownerID)
	}
	return err
}

// findOne decodes a single document or returns ErrNotFound
func findOne(ctx context.Context, coll *mongo.Collection, filter bson.M, out any) error {
	err := coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return err
}

// listFilter combines the owner scope with an optional keyword filter
func listFilter(ownerID string, keyword bson.M) (bson.M, error) {
	owner, err := objectID(ownerID)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"user": owner}
	if keyword != nil {
		filter = bson.M{"$and": bson.A{filter, keyword}}
	}
	return filter, nil
}
