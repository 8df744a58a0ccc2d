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

// AdoptionSearchFields are matched by the list keyword
var AdoptionSearchFields = []string{"pet.name", "pet.type", "pet.breed", "pet.shelter", "status"}

type adoptionPetDoc struct {
	ID      string `bson:"id"`
	Name    string `bson:"name"`
	Type    string `bson:"type"`
	Breed   string `bson:"breed"`
	Age     string `bson:"age"`
	Shelter string `bson:"shelter"`
}

type applicantDoc struct {
	FullName string `bson:"fullName"`
	Email    string `bson:"email"`
	Phone    string `bson:"phone"`
	Address  string `bson:"address"`
}

type experienceDoc struct {
	Level            string `bson:"level"`
	Details          string `bson:"details,omitempty"`
	OtherPets        string `bson:"otherPets,omitempty"`
	OtherPetsDetails string `bson:"otherPetsDetails,omitempty"`
}

type visitDoc struct {
	Date time.Time `bson:"date"`
	Time string    `bson:"time"`
}

type adoptionDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	User           primitive.ObjectID `bson:"user"`
	Pet            adoptionPetDoc     `bson:"pet"`
	PersonalInfo   applicantDoc       `bson:"personalInfo"`
	Experience     experienceDoc      `bson:"experience"`
	VisitSchedule  visitDoc           `bson:"visitSchedule"`
	AdoptionReason string             `bson:"adoptionReason"`
	Status         string             `bson:"status"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

func newAdoptionDoc(a *domain.AdoptionApplication, owner primitive.ObjectID) adoptionDoc {
	return adoptionDoc{
		User:           owner,
		Pet:            adoptionPetDoc(a.Pet),
		PersonalInfo:   applicantDoc(a.PersonalInfo),
		Experience:     experienceDoc(a.Experience),
		VisitSchedule:  visitDoc(a.VisitSchedule),
		AdoptionReason: a.AdoptionReason,
		Status:         string(a.Status),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (d *adoptionDoc) toDomain() *domain.AdoptionApplication {
	return &domain.AdoptionApplication{
		ID:             d.ID.Hex(),
		UserID:         d.User.Hex(),
		Pet:            domain.AdoptionPet(d.Pet),
		PersonalInfo:   domain.ApplicantInfo(d.PersonalInfo),
		Experience:     domain.Experience(d.Experience),
		VisitSchedule:  domain.VisitSchedule(d.VisitSchedule),
		AdoptionReason: d.AdoptionReason,
		Status:         lifecycle.Status(d.Status),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// MongoAdoptionRepository implements domain.AdoptionRepository using MongoDB
type MongoAdoptionRepository struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongoAdoptionRepository creates a new adoption application repository
func NewMongoAdoptionRepository(coll *mongo.Collection, logger *slog.Logger) *MongoAdoptionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoAdoptionRepository{coll: coll, logger: logger}
}

// Create inserts a new application and fills in its ID
func (r *MongoAdoptionRepository) Create(ctx context.Context, app *domain.AdoptionApplication) error {
	owner, err := primitive.ObjectIDFromHex(app.UserID)
	if err != nil {
		return fmt.Errorf("%w: invalid owner id", domain.ErrInvalidInput)
	}
	doc := newAdoptionDoc(app, owner)
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		r.logger.Error("failed to create application",
			slog.String("user_id", app.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create application: %w", err)
	}
	app.ID = doc.ID.Hex()
	return nil
}

// GetByID retrieves an application regardless of owner
func (r *MongoAdoptionRepository) GetByID(ctx context.Context, id string) (*domain.AdoptionApplication, error) {
	return r.get(ctx, id, "")
}

// GetForOwner retrieves an application owned by ownerID
func (r *MongoAdoptionRepository) GetForOwner(ctx context.Context, id, ownerID string) (*domain.AdoptionApplication, error) {
	return r.get(ctx, id, ownerID)
}

func (r *MongoAdoptionRepository) get(ctx context.Context, id, ownerID string) (*domain.AdoptionApplication, error) {
	filter, err := scopeFilter(id, ownerID)
	if err != nil {
		return nil, err
	}
	var doc adoptionDoc
	if err := findOne(ctx, r.coll, filter, &doc); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns the owner's applications matching q
func (r *MongoAdoptionRepository) List(ctx context.Context, q domain.ListQuery) ([]*domain.AdoptionApplication, error) {
	filter, err := listFilter(q.OwnerID, query.MongoKeyword(q.Keyword, AdoptionSearchFields...))
	if err != nil {
		return []*domain.AdoptionApplication{}, nil
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(query.MongoSort(q.Sort)))
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer cur.Close(ctx)

	var docs []adoptionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode applications: %w", err)
	}
	apps := make([]*domain.AdoptionApplication, 0, len(docs))
	for i := range docs {
		apps = append(apps, docs[i].toDomain())
	}
	return apps, nil
}

// ChangeStatus applies a conditional status update
func (r *MongoAdoptionRepository) ChangeStatus(ctx context.Context, change domain.StatusChange) (*domain.AdoptionApplication, error) {
	var doc adoptionDoc
	update := bson.M{"$set": bson.M{"status": string(change.To), "updatedAt": time.Now().UTC()}}
	if err := guardedUpdate(ctx, r.coll, change.ID, change.OwnerID, change.From, update, &doc); err != nil {
		return nil, wrapWrite("update application status", err)
	}
	return doc.toDomain(), nil
}

// UpdateDetails replaces the applicant-editable fields while status is in allowed
func (r *MongoAdoptionRepository) UpdateDetails(ctx context.Context, app *domain.AdoptionApplication, allowed []lifecycle.Status) (*domain.AdoptionApplication, error) {
	var doc adoptionDoc
	update := bson.M{"$set": bson.M{
		"personalInfo":   applicantDoc(app.PersonalInfo),
		"experience":     experienceDoc(app.Experience),
		"visitSchedule":  visitDoc(app.VisitSchedule),
		"adoptionReason": app.AdoptionReason,
		"updatedAt":      time.Now().UTC(),
	}}
	if err := guardedUpdate(ctx, r.coll, app.ID, app.UserID, allowed, update, &doc); err != nil {
		return nil, wrapWrite("update application", err)
	}
	return doc.toDomain(), nil
}

// Delete removes the application while its status is in allowed and returns it
func (r *MongoAdoptionRepository) Delete(ctx context.Context, id, ownerID string, allowed []lifecycle.Status) (*domain.AdoptionApplication, error) {
	var doc adoptionDoc
	if err := guardedDelete(ctx, r.coll, id, ownerID, allowed, &doc); err != nil {
		return nil, wrapWrite("delete application", err)
	}
	return doc.toDomain(), nil
}
