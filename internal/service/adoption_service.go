package service

import (
	"context"
	"strings"
	"time"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/lifecycle"
	"github.com/pawfam/backend/internal/observability/metrics"
	"github.com/pawfam/backend/internal/query"
	"github.com/pawfam/backend/internal/security"
	"github.com/pawfam/backend/internal/validation"
)

const resourceApplication = "application"

// AdoptionPetInput identifies the listing applied for
type AdoptionPetInput struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Type    string `json:"type"`
	Breed   string `json:"breed"`
	Age     string `json:"age"`
	Shelter string `json:"shelter"`
}

type ApplicantInput struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,min=7,max=20"`
	Address  string `json:"address" validate:"required,max=500"`
}

type ExperienceInput struct {
	Level            string `json:"level" validate:"required"`
	Details          string `json:"details" validate:"max=2000"`
	OtherPets        string `json:"otherPets"`
	OtherPetsDetails string `json:"otherPetsDetails" validate:"max=2000"`
}

type VisitInput struct {
	Date string `json:"date" validate:"required"`
	Time string `json:"time" validate:"required,hhmm"`
}

// ApplicationDetailsInput holds the fields an applicant may set and later edit
type ApplicationDetailsInput struct {
	PersonalInfo   ApplicantInput  `json:"personalInfo"`
	Experience     ExperienceInput `json:"experience"`
	VisitSchedule  VisitInput      `json:"visitSchedule"`
	AdoptionReason string          `json:"adoptionReason" validate:"required,max=2000"`
}

// CreateApplicationInput is the create request
type CreateApplicationInput struct {
	Pet AdoptionPetInput `json:"pet"`
	ApplicationDetailsInput
}

// UpdateApplicationInput replaces the editable application fields
type UpdateApplicationInput struct {
	ApplicationDetailsInput
}

func (in *ApplicationDetailsInput) normalize() {
	in.PersonalInfo.FullName = strings.TrimSpace(in.PersonalInfo.FullName)
	in.PersonalInfo.Email = strings.ToLower(strings.TrimSpace(in.PersonalInfo.Email))
	in.PersonalInfo.Phone = strings.TrimSpace(in.PersonalInfo.Phone)
	in.PersonalInfo.Address = strings.TrimSpace(in.PersonalInfo.Address)
	in.Experience.Level = strings.TrimSpace(in.Experience.Level)
	in.VisitSchedule.Time = strings.TrimSpace(in.VisitSchedule.Time)
	in.AdoptionReason = strings.TrimSpace(in.AdoptionReason)
}

func (in *ApplicationDetailsInput) apply(app *domain.AdoptionApplication) error {
	date, err := parseDate("visitSchedule.date", in.VisitSchedule.Date)
	if err != nil {
		return err
	}
	app.PersonalInfo = domain.ApplicantInfo{
		FullName: in.PersonalInfo.FullName,
		Email:    in.PersonalInfo.Email,
		Phone:    in.PersonalInfo.Phone,
		Address:  in.PersonalInfo.Address,
	}
	app.Experience = domain.Experience{
		Level:            in.Experience.Level,
		Details:          strings.TrimSpace(in.Experience.Details),
		OtherPets:        strings.TrimSpace(in.Experience.OtherPets),
		OtherPetsDetails: strings.TrimSpace(in.Experience.OtherPetsDetails),
	}
	app.VisitSchedule = domain.VisitSchedule{Date: date, Time: in.VisitSchedule.Time}
	app.AdoptionReason = in.AdoptionReason
	return nil
}

// AdoptionService manages adoption applications
type AdoptionService struct {
	repo domain.AdoptionRepository
	*engine[*domain.AdoptionApplication]
	now func() time.Time
}

// NewAdoptionService creates a new adoption application service
func NewAdoptionService(repo domain.AdoptionRepository, deps Deps) *AdoptionService {
	return &AdoptionService{
		repo: repo,
		engine: newEngine[*domain.AdoptionApplication](resourceApplication, domain.AdoptionLifecycle, repo,
			func(a *domain.AdoptionApplication) lifecycle.Status { return a.Status }, deps),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a pending application owned by actor
func (s *AdoptionService) Create(ctx context.Context, actor domain.Actor, in CreateApplicationInput, idempotencyKey string) (*domain.AdoptionApplication, bool, error) {
	if err := s.authorize(actor, security.PermCreateResource); err != nil {
		return nil, false, err
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, false, err
	}
	app := &domain.AdoptionApplication{
		UserID: actor.UserID,
		Pet: domain.AdoptionPet{
			ID:      strings.TrimSpace(in.Pet.ID),
			Name:    strings.TrimSpace(in.Pet.Name),
			Type:    strings.TrimSpace(in.Pet.Type),
			Breed:   strings.TrimSpace(in.Pet.Breed),
			Age:     strings.TrimSpace(in.Pet.Age),
			Shelter: strings.TrimSpace(in.Pet.Shelter),
		},
		Status: domain.AdoptionLifecycle.Initial(),
	}
	if err := in.apply(app); err != nil {
		return nil, false, err
	}

	return createOnce(ctx, s.Idem, resourceApplication, actor, idempotencyKey,
		func(ctx context.Context, id string) (*domain.AdoptionApplication, error) {
			return s.repo.GetForOwner(ctx, id, actor.UserID)
		},
		func(ctx context.Context) (*domain.AdoptionApplication, string, error) {
			now := s.now()
			app.CreatedAt, app.UpdatedAt = now, now
			if err := s.repo.Create(ctx, app); err != nil {
				return nil, "", err
			}
			metrics.ObserveCreated(resourceApplication)
			s.Audit.LogAction(ctx, actor.UserID, "create", resourceApplication, app.ID, "success", app.Pet.ID)
			return app, app.ID, nil
		},
	)
}

// List returns the actor's applications. Only createdAt ordering applies.
func (s *AdoptionService) List(ctx context.Context, actor domain.Actor, search, rawSort string) ([]*domain.AdoptionApplication, error) {
	if err := s.authorize(actor, security.PermReadOwn); err != nil {
		return nil, err
	}
	sort, err := query.ParseSort(rawSort, query.FieldCreatedAt)
	if err != nil {
		return nil, domain.FieldError("sort", err.Error())
	}
	return s.repo.List(ctx, domain.ListQuery{OwnerID: actor.UserID, Keyword: query.Keyword(search), Sort: sort})
}

// Get returns one of the actor's applications
func (s *AdoptionService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.AdoptionApplication, error) {
	return s.get(ctx, actor, id)
}

// UpdateStatus moves an application along its review lifecycle. Vendors only.
func (s *AdoptionService) UpdateStatus(ctx context.Context, actor domain.Actor, id, status string) (*domain.AdoptionApplication, error) {
	return s.updateStatus(ctx, actor, id, status)
}

// Revoke withdraws an open application
func (s *AdoptionService) Revoke(ctx context.Context, actor domain.Actor, id string) (*domain.AdoptionApplication, error) {
	return s.cancel(ctx, actor, id)
}

// Update replaces applicant info, experience, visit and reason
func (s *AdoptionService) Update(ctx context.Context, actor domain.Actor, id string, in UpdateApplicationInput) (*domain.AdoptionApplication, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return s.edit(ctx, actor, id, func(cur *domain.AdoptionApplication, allowed []lifecycle.Status) (*domain.AdoptionApplication, error) {
		next := *cur
		if err := in.apply(&next); err != nil {
			return nil, err
		}
		return s.repo.UpdateDetails(ctx, &next, allowed)
	})
}

// Delete removes a decided or withdrawn application and returns it
func (s *AdoptionService) Delete(ctx context.Context, actor domain.Actor, id string) (*domain.AdoptionApplication, error) {
	return s.remove(ctx, actor, id)
}
