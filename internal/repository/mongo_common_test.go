package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/lifecycle"
	"github.com/pawfam/backend/internal/query"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const (
	docID   = "507f1f77bcf86cd799439099"
	ownerID = "507f1f77bcf86cd799439011"
)

func TestDecimal128RoundTrip(t *testing.T) {
	for _, in := range []string{"77.97", "0", "105", "999999.99"} {
		v, err := toDecimal128(decimal.RequireFromString(in))
		require.NoError(t, err, in)
		assert.True(t, decimal.RequireFromString(in).Equal(fromDecimal128(v)), in)
	}
}

func TestDecimal128RejectsUnrepresentable(t *testing.T) {
	for _, in := range []string{
		"0.12345678901234567890123456789012345678",
		"1234567890123456789012345678901234567.89",
	} {
		_, err := toDecimal128(decimal.RequireFromString(in))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, in)
	}
}

func TestNewDocsPropagateAmountErrors(t *testing.T) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	require.NoError(t, err)
	bad := decimal.RequireFromString("1234567890123456789012345678901234567.89")

	_, err = newOrderDoc(&domain.Order{
		Items:       []domain.OrderItem{{Name: "Kibble", Price: decimal.NewFromInt(10), Quantity: 1}, {Name: "Toy", Price: bad, Quantity: 1}},
		TotalAmount: decimal.NewFromInt(10),
	}, owner)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "items[1].price")

	_, err = newDaycareDoc(&domain.DaycareBooking{
		Center:      domain.DaycareCenter{PricePerDay: decimal.NewFromInt(35)},
		TotalAmount: bad,
	}, owner)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "totalAmount")

	doc, err := newOrderDoc(&domain.Order{
		Items:       []domain.OrderItem{{Name: "Kibble", Price: decimal.RequireFromString("25.99"), Quantity: 3}},
		TotalAmount: decimal.RequireFromString("77.97"),
	}, owner)
	require.NoError(t, err)
	assert.Equal(t, "77.97", doc.TotalAmount.String())
}

func TestGuardedFilter(t *testing.T) {
	oid, _ := primitive.ObjectIDFromHex(docID)
	owner, _ := primitive.ObjectIDFromHex(ownerID)

	_, err := guardedFilter(docID, ownerID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	f, err := guardedFilter(docID, "", []lifecycle.Status{domain.OrderPending})
	require.NoError(t, err)
	assert.Equal(t, bson.M{
		"_id":    oid,
		"status": bson.M{"$in": bson.A{string(domain.OrderPending)}},
	}, f)

	f, err = guardedFilter(docID, ownerID, []lifecycle.Status{domain.OrderPending, domain.OrderProcessing})
	require.NoError(t, err)
	assert.Equal(t, bson.M{
		"_id":    oid,
		"user":   owner,
		"status": bson.M{"$in": bson.A{string(domain.OrderPending), string(domain.OrderProcessing)}},
	}, f)

	_, err = guardedFilter("not-an-id", ownerID, []lifecycle.Status{domain.OrderPending})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = guardedFilter(docID, "bogus", []lifecycle.Status{domain.OrderPending})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFilter(t *testing.T) {
	owner, _ := primitive.ObjectIDFromHex(ownerID)

	f, err := listFilter(ownerID, nil)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"user": owner}, f)

	kw := query.MongoKeyword("rex", "petName")
	f, err = listFilter(ownerID, kw)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$and": bson.A{bson.M{"user": owner}, kw}}, f)

	_, err = listFilter("", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGuardedWritesAgainstDriver(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "pawfam.productorders"
	oid, _ := primitive.ObjectIDFromHex(docID)
	owner, _ := primitive.ObjectIDFromHex(ownerID)
	stored := bson.D{
		{Key: "_id", Value: oid},
		{Key: "user", Value: owner},
		{Key: "status", Value: string(domain.OrderShipped)},
		{Key: "createdAt", Value: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	mt.Run("stale status", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "status", Value: string(domain.OrderShipped)}}),
		)
		var doc orderDoc
		update := bson.M{"$set": bson.M{"status": string(domain.OrderCancelled)}}
		err := guardedUpdate(context.Background(), mt.Coll, docID, ownerID, []lifecycle.Status{domain.OrderPending}, update, &doc)

		var stale *domain.StaleStatusError
		require.ErrorAs(mt, err, &stale)
		assert.Equal(mt, domain.OrderShipped, stale.Current)
		assert.ErrorIs(mt, err, domain.ErrInvalidState)
	})

	mt.Run("missing document", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)
		var doc orderDoc
		err := guardedDelete(context.Background(), mt.Coll, docID, ownerID, []lifecycle.Status{domain.OrderPending}, &doc)
		assert.ErrorIs(mt, err, domain.ErrNotFound)
	})

	mt.Run("applied", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: stored}))
		var doc orderDoc
		update := bson.M{"$set": bson.M{"status": string(domain.OrderShipped)}}
		err := guardedUpdate(context.Background(), mt.Coll, docID, ownerID, []lifecycle.Status{domain.OrderProcessing}, update, &doc)
		require.NoError(mt, err)
		assert.Equal(mt, oid, doc.ID)
		assert.Equal(mt, string(domain.OrderShipped), doc.Status)
	})
}
