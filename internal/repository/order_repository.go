package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/lifecycle"
	"github.com/pawfam/backend/internal/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderSearchFields are matched by the list keyword
var OrderSearchFields = []string{"items.name", "shippingAddress.fullName", "shippingAddress.city", "status"}

type orderItemDoc struct {
	ProductID string               `bson:"productId"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Quantity  int                  `bson:"quantity"`
	Image     string               `bson:"image,omitempty"`
}

type shippingAddressDoc struct {
	FullName string `bson:"fullName"`
	Email    string `bson:"email"`
	Address  string `bson:"address"`
	City     string `bson:"city"`
	State    string `bson:"state"`
	ZipCode  string `bson:"zipCode"`
}

type paymentDoc struct {
	Method     string `bson:"method"`
	Last4      string `bson:"cardLast4,omitempty"`
	ExpiryDate string `bson:"expiryDate,omitempty"`
}

type orderDoc struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	User            primitive.ObjectID   `bson:"user"`
	Items           []orderItemDoc       `bson:"items"`
	ShippingAddress shippingAddressDoc   `bson:"shippingAddress"`
	Payment         paymentDoc           `bson:"paymentInfo"`
	TotalAmount     primitive.Decimal128 `bson:"totalAmount"`
	Status          string               `bson:"status"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

func shippingToDoc(a domain.ShippingAddress) shippingAddressDoc {
	return shippingAddressDoc(a)
}

func newOrderDoc(o *domain.Order, owner primitive.ObjectID) (orderDoc, error) {
	items := make([]orderItemDoc, 0, len(o.Items))
	for i, it := range o.Items {
		price, err := toDecimal128(it.Price)
		if err != nil {
			return orderDoc{}, fmt.Errorf("items[%d].price: %w", i, err)
		}
		items = append(items, orderItemDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     price,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}
	total, err := toDecimal128(o.TotalAmount)
	if err != nil {
		return orderDoc{}, fmt.Errorf("totalAmount: %w", err)
	}
	return orderDoc{
		User:            owner,
		Items:           items,
		ShippingAddress: shippingToDoc(o.ShippingAddress),
		Payment: paymentDoc{
			Method:     string(o.Payment.Method),
			Last4:      o.Payment.Last4,
			ExpiryDate: o.Payment.ExpiryDate,
		},
		TotalAmount: total,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}, nil
}

func (d *orderDoc) toDomain() *domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     fromDecimal128(it.Price),
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}
	return &domain.Order{
		ID:              d.ID.Hex(),
		UserID:          d.User.Hex(),
		Items:           items,
		ShippingAddress: domain.ShippingAddress(d.ShippingAddress),
		Payment: domain.Payment{
			Method:     domain.PaymentMethod(d.Payment.Method),
			Last4:      d.Payment.Last4,
			ExpiryDate: d.Payment.ExpiryDate,
		},
		TotalAmount: fromDecimal128(d.TotalAmount),
		Status:      lifecycle.Status(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoOrderRepository implements domain.OrderRepository using MongoDB
type MongoOrderRepository struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongoOrderRepository creates a new order repository
func NewMongoOrderRepository(coll *mongo.Collection, logger *slog.Logger) *MongoOrderRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoOrderRepository{coll: coll, logger: logger}
}

// Create inserts a new order and fills in its ID
func (r *MongoOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	owner, err := primitive.ObjectIDFromHex(order.UserID)
	if err != nil {
		return fmt.Errorf("%w: invalid owner id", domain.ErrInvalidInput)
	}
	doc, err := newOrderDoc(order, owner)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		r.logger.Error("failed to create order",
			slog.String("user_id", order.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create order: %w", err)
	}
	order.ID = doc.ID.Hex()
	return nil
}

// GetByID retrieves an order regardless of owner
func (r *MongoOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, id, "")
}

// GetForOwner retrieves an order owned by ownerID
func (r *MongoOrderRepository) GetForOwner(ctx context.Context, id, ownerID string) (*domain.Order, error) {
	return r.get(ctx, id, ownerID)
}

func (r *MongoOrderRepository) get(ctx context.Context, id, ownerID string) (*domain.Order, error) {
	filter, err := scopeFilter(id, ownerID)
	if err != nil {
		return nil, err
	}
	var doc orderDoc
	if err := findOne(ctx, r.coll, filter, &doc); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns the owner's orders matching q
func (r *MongoOrderRepository) List(ctx context.Context, q domain.ListQuery) ([]*domain.Order, error) {
	filter, err := listFilter(q.OwnerID, query.MongoKeyword(q.Keyword, OrderSearchFields...))
	if err != nil {
		return []*domain.Order{}, nil
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(query.MongoSort(q.Sort)))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cur.Close(ctx)

	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	orders := make([]*domain.Order, 0, len(docs))
	for i := range docs {
		orders = append(orders, docs[i].toDomain())
	}
	return orders, nil
}

// ChangeStatus applies a conditional status update
func (r *MongoOrderRepository) ChangeStatus(ctx context.Context, change domain.StatusChange) (*domain.Order, error) {
	var doc orderDoc
	update := bson.M{"$set": bson.M{"status": string(change.To), "updatedAt": time.Now().UTC()}}
	if err := guardedUpdate(ctx, r.coll, change.ID, change.OwnerID, change.From, update, &doc); err != nil {
		return nil, wrapWrite("update order status", err)
	}
	return doc.toDomain(), nil
}

// UpdateShippingAddress replaces the address while the order status is in allowed
func (r *MongoOrderRepository) UpdateShippingAddress(ctx context.Context, id, ownerID string, allowed []lifecycle.Status, addr domain.ShippingAddress) (*domain.Order, error) {
	var doc orderDoc
	update := bson.M{"$set": bson.M{"shippingAddress": shippingToDoc(addr), "updatedAt": time.Now().UTC()}}
	if err := guardedUpdate(ctx, r.coll, id, ownerID, allowed, update, &doc); err != nil {
		return nil, wrapWrite("update shipping address", err)
	}
	return doc.toDomain(), nil
}

// Delete removes the order while its status is in allowed and returns it
func (r *MongoOrderRepository) Delete(ctx context.Context, id, ownerID string, allowed []lifecycle.Status) (*domain.Order, error) {
	var doc orderDoc
	if err := guardedDelete(ctx, r.coll, id, ownerID, allowed, &doc); err != nil {
		return nil, wrapWrite("delete order", err)
	}
	return doc.toDomain(), nil
}

// wrapWrite keeps domain errors as they are and annotates driver failures
func wrapWrite(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidState) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
