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

// DaycareSearchFields are matched by the list keyword
var DaycareSearchFields = []string{
	"petName", "petType", "daycareCenter.name", "daycareCenter.location",
	"specialInstructions", "status",
}

type daycareCenterDoc struct {
	Name        string               `bson:"name"`
	Location    string               `bson:"location"`
	PricePerDay primitive.Decimal128 `bson:"pricePerDay"`
}

type daycareDoc struct {
	ID                  primitive.ObjectID   `bson:"_id,omitempty"`
	User                primitive.ObjectID   `bson:"user"`
	Center              daycareCenterDoc     `bson:"daycareCenter"`
	PetName             string               `bson:"petName"`
	PetType             string               `bson:"petType"`
	PetAge              string               `bson:"petAge"`
	Email               string               `bson:"email"`
	MobileNumber        string               `bson:"mobileNumber"`
	StartDate           time.Time            `bson:"startDate"`
	EndDate             time.Time            `bson:"endDate"`
	SpecialInstructions string               `bson:"specialInstructions,omitempty"`
	TotalAmount         primitive.Decimal128 `bson:"totalAmount"`
	Status              string               `bson:"status"`
	CreatedAt           time.Time            `bson:"createdAt"`
	UpdatedAt           time.Time            `bson:"updatedAt"`
}

func newDaycareDoc(b *domain.DaycareBooking, owner primitive.ObjectID) (daycareDoc, error) {
	price, err := toDecimal128(b.Center.PricePerDay)
	if err != nil {
		return daycareDoc{}, fmt.Errorf("daycareCenter.pricePerDay: %w", err)
	}
	total, err := toDecimal128(b.TotalAmount)
	if err != nil {
		return daycareDoc{}, fmt.Errorf("totalAmount: %w", err)
	}
	return daycareDoc{
		User: owner,
		Center: daycareCenterDoc{
			Name:        b.Center.Name,
			Location:    b.Center.Location,
			PricePerDay: price,
		},
		PetName:             b.PetName,
		PetType:             b.PetType,
		PetAge:              b.PetAge,
		Email:               b.Email,
		MobileNumber:        b.MobileNumber,
		StartDate:           b.StartDate,
		EndDate:             b.EndDate,
		SpecialInstructions: b.SpecialInstructions,
		TotalAmount:         total,
		Status:              string(b.Status),
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}, nil
}

func (d *daycareDoc) toDomain() *domain.DaycareBooking {
	return &domain.DaycareBooking{
		ID:     d.ID.Hex(),
		UserID: d.User.Hex(),
		Center: domain.DaycareCenter{
			Name:        d.Center.Name,
			Location:    d.Center.Location,
			PricePerDay: fromDecimal128(d.Center.PricePerDay),
		},
		PetName:             d.PetName,
		PetType:             d.PetType,
		PetAge:              d.PetAge,
		Email:               d.Email,
		MobileNumber:        d.MobileNumber,
		StartDate:           d.StartDate,
		EndDate:             d.EndDate,
		SpecialInstructions: d.SpecialInstructions,
		TotalAmount:         fromDecimal128(d.TotalAmount),
		Status:              lifecycle.Status(d.Status),
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

// MongoDaycareRepository implements domain.DaycareRepository using MongoDB
type MongoDaycareRepository struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongoDaycareRepository creates a new daycare booking repository
func NewMongoDaycareRepository(coll *mongo.Collection, logger *slog.Logger) *MongoDaycareRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoDaycareRepository{coll: coll, logger: logger}
}

// Create inserts a new booking and fills in its ID
func (r *MongoDaycareRepository) Create(ctx context.Context, booking *domain.DaycareBooking) error {
	owner, err := primitive.ObjectIDFromHex(booking.UserID)
	if err != nil {
		return fmt.Errorf("%w: invalid owner id", domain.ErrInvalidInput)
	}
	doc, err := newDaycareDoc(booking, owner)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		r.logger.Error("failed to create booking",
			slog.String("user_id", booking.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create booking: %w", err)
	}
	booking.ID = doc.ID.Hex()
	return nil
}

// GetByID retrieves a booking regardless of owner
func (r *MongoDaycareRepository) GetByID(ctx context.Context, id string) (*domain.DaycareBooking, error) {
	return r.get(ctx, id, "")
}

// GetForOwner retrieves a booking owned by ownerID
func (r *MongoDaycareRepository) GetForOwner(ctx context.Context, id, ownerID string) (*domain.DaycareBooking, error) {
	return r.get(ctx, id, ownerID)
}

func (r *MongoDaycareRepository) get(ctx context.Context, id, ownerID string) (*domain.DaycareBooking, error) {
	filter, err := scopeFilter(id, ownerID)
	if err != nil {
		return nil, err
	}
	var doc daycareDoc
	if err := findOne(ctx, r.coll, filter, &doc); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns the owner's bookings matching q
func (r *MongoDaycareRepository) List(ctx context.Context, q domain.ListQuery) ([]*domain.DaycareBooking, error) {
	filter, err := listFilter(q.OwnerID, query.MongoKeyword(q.Keyword, DaycareSearchFields...))
	if err != nil {
		return []*domain.DaycareBooking{}, nil
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(query.MongoSort(q.Sort)))
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer cur.Close(ctx)

	var docs []daycareDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	bookings := make([]*domain.DaycareBooking, 0, len(docs))
	for i := range docs {
		bookings = append(bookings, docs[i].toDomain())
	}
	return bookings, nil
}

// ChangeStatus applies a conditional status update
func (r *MongoDaycareRepository) ChangeStatus(ctx context.Context, change domain.StatusChange) (*domain.DaycareBooking, error) {
	var doc daycareDoc
	update := bson.M{"$set": bson.M{"status": string(change.To), "updatedAt": time.Now().UTC()}}
	if err := guardedUpdate(ctx, r.coll, change.ID, change.OwnerID, change.From, update, &doc); err != nil {
		return nil, wrapWrite("update booking status", err)
	}
	return doc.toDomain(), nil
}

// UpdateDetails replaces the mutable booking fields while its status is in allowed
func (r *MongoDaycareRepository) UpdateDetails(ctx context.Context, booking *domain.DaycareBooking, allowed []lifecycle.Status) (*domain.DaycareBooking, error) {
	total, err := toDecimal128(booking.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("totalAmount: %w", err)
	}
	var doc daycareDoc
	update := bson.M{"$set": bson.M{
		"petName":             booking.PetName,
		"petType":             booking.PetType,
		"petAge":              booking.PetAge,
		"email":               booking.Email,
		"mobileNumber":        booking.MobileNumber,
		"startDate":           booking.StartDate,
		"endDate":             booking.EndDate,
		"specialInstructions": booking.SpecialInstructions,
		"totalAmount":         total,
		"updatedAt":           time.Now().UTC(),
	}}
	if err := guardedUpdate(ctx, r.coll, booking.ID, booking.UserID, allowed, update, &doc); err != nil {
		return nil, wrapWrite("update booking", err)
	}
	return doc.toDomain(), nil
}

// Delete removes the booking while its status is in allowed and returns it
func (r *MongoDaycareRepository) Delete(ctx context.Context, id, ownerID string, allowed []lifecycle.Status) (*domain.DaycareBooking, error) {
	var doc daycareDoc
	if err := guardedDelete(ctx, r.coll, id, ownerID, allowed, &doc); err != nil {
		return nil, wrapWrite("delete booking", err)
	}
	return doc.toDomain(), nil
}
