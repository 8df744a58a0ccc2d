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
	"github.com/shopspring/decimal"
)

const resourceBooking = "booking"

// DaycareCenterInput is the center snapshot chosen by the client
type DaycareCenterInput struct {
	Name        string          `json:"name" validate:"required"`
	Location    string          `json:"location" validate:"required"`
	PricePerDay decimal.Decimal `json:"pricePerDay"`
}

// BookingDetailsInput holds the fields an owner may set and later edit
type BookingDetailsInput struct {
	PetName             string `json:"petName" validate:"required,max=100"`
	PetType             string `json:"petType" validate:"required,oneof=dog cat bird other"`
	PetAge              string `json:"petAge" validate:"required,max=50"`
	Email               string `json:"email" validate:"required,email"`
	MobileNumber        string `json:"mobileNumber" validate:"required,mobile10"`
	StartDate           string `json:"startDate" validate:"required"`
	EndDate             string `json:"endDate" validate:"required"`
	SpecialInstructions string `json:"specialInstructions" validate:"max=1000"`
}

// CreateBookingInput is the create request. Any client-sent total is ignored.
type CreateBookingInput struct {
	DaycareCenter DaycareCenterInput `json:"daycareCenter"`
	BookingDetailsInput
}

// UpdateBookingInput replaces the editable booking fields
type UpdateBookingInput struct {
	BookingDetailsInput
}

func (in *BookingDetailsInput) normalize() {
	in.PetName = strings.TrimSpace(in.PetName)
	in.PetType = strings.ToLower(strings.TrimSpace(in.PetType))
	in.PetAge = strings.TrimSpace(in.PetAge)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.MobileNumber = strings.TrimSpace(in.MobileNumber)
	in.SpecialInstructions = strings.TrimSpace(in.SpecialInstructions)
}

// dates parses and orders the booking window
func (in *BookingDetailsInput) dates() (time.Time, time.Time, error) {
	start, err := parseDate("startDate", in.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("endDate", in.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, domain.FieldError("endDate", "must not be before startDate")
	}
	return start, end, nil
}

// DaycareService manages daycare bookings
type DaycareService struct {
	repo domain.DaycareRepository
	*engine[*domain.DaycareBooking]
	now func() time.Time
}

// NewDaycareService creates a new daycare booking service
func NewDaycareService(repo domain.DaycareRepository, deps Deps) *DaycareService {
	return &DaycareService{
		repo: repo,
		engine: newEngine[*domain.DaycareBooking](resourceBooking, domain.DaycareLifecycle, repo,
			func(b *domain.DaycareBooking) lifecycle.Status { return b.Status }, deps),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create validates in, computes the total and persists a pending booking
// owned by actor. idempotencyKey may be empty.
func (s *DaycareService) Create(ctx context.Context, actor domain.Actor, in CreateBookingInput, idempotencyKey string) (*domain.DaycareBooking, bool, error) {
	if err := s.authorize(actor, security.PermCreateResource); err != nil {
		return nil, false, err
	}
	in.normalize()
	in.DaycareCenter.Name = strings.TrimSpace(in.DaycareCenter.Name)
	in.DaycareCenter.Location = strings.TrimSpace(in.DaycareCenter.Location)
	if err := validation.Struct(in); err != nil {
		return nil, false, err
	}
	if err := checkPrice("daycareCenter.pricePerDay", in.DaycareCenter.PricePerDay); err != nil {
		return nil, false, err
	}
	start, end, err := in.dates()
	if err != nil {
		return nil, false, err
	}

	return createOnce(ctx, s.Idem, resourceBooking, actor, idempotencyKey,
		func(ctx context.Context, id string) (*domain.DaycareBooking, error) {
			return s.repo.GetForOwner(ctx, id, actor.UserID)
		},
		func(ctx context.Context) (*domain.DaycareBooking, string, error) {
			now := s.now()
			booking := &domain.DaycareBooking{
				UserID: actor.UserID,
				Center: domain.DaycareCenter{
					Name:        in.DaycareCenter.Name,
					Location:    in.DaycareCenter.Location,
					PricePerDay: in.DaycareCenter.PricePerDay,
				},
				PetName:             in.PetName,
				PetType:             in.PetType,
				PetAge:              in.PetAge,
				Email:               in.Email,
				MobileNumber:        in.MobileNumber,
				StartDate:           start,
				EndDate:             end,
				SpecialInstructions: in.SpecialInstructions,
				TotalAmount:         domain.DaycareTotal(start, end, in.DaycareCenter.PricePerDay),
				Status:              domain.DaycareLifecycle.Initial(),
				CreatedAt:           now,
				UpdatedAt:           now,
			}
			if err := s.repo.Create(ctx, booking); err != nil {
				return nil, "", err
			}
			metrics.ObserveCreated(resourceBooking)
			s.Audit.LogAction(ctx, actor.UserID, "create", resourceBooking, booking.ID, "success", "")
			return booking, booking.ID, nil
		},
	)
}

// List returns the actor's bookings. rawSort accepts createdAt and totalAmount keys.
func (s *DaycareService) List(ctx context.Context, actor domain.Actor, search, rawSort string) ([]*domain.DaycareBooking, error) {
	if err := s.authorize(actor, security.PermReadOwn); err != nil {
		return nil, err
	}
	sort, err := query.ParseSort(rawSort, query.FieldCreatedAt, query.FieldTotalAmount)
	if err != nil {
		return nil, domain.FieldError("sort", err.Error())
	}
	return s.repo.List(ctx, domain.ListQuery{OwnerID: actor.UserID, Keyword: query.Keyword(search), Sort: sort})
}

// Get returns one of the actor's bookings
func (s *DaycareService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.DaycareBooking, error) {
	return s.get(ctx, actor, id)
}

// UpdateStatus moves a booking along its lifecycle. Vendors only.
func (s *DaycareService) UpdateStatus(ctx context.Context, actor domain.Actor, id, status string) (*domain.DaycareBooking, error) {
	return s.updateStatus(ctx, actor, id, status)
}

// Cancel cancels a pending or confirmed booking
func (s *DaycareService) Cancel(ctx context.Context, actor domain.Actor, id string) (*domain.DaycareBooking, error) {
	return s.cancel(ctx, actor, id)
}

// Update replaces the editable fields and recomputes the total from the
// stored center price.
func (s *DaycareService) Update(ctx context.Context, actor domain.Actor, id string, in UpdateBookingInput) (*domain.DaycareBooking, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	start, end, err := in.dates()
	if err != nil {
		return nil, err
	}

	return s.edit(ctx, actor, id, func(cur *domain.DaycareBooking, allowed []lifecycle.Status) (*domain.DaycareBooking, error) {
		next := *cur
		next.PetName = in.PetName
		next.PetType = in.PetType
		next.PetAge = in.PetAge
		next.Email = in.Email
		next.MobileNumber = in.MobileNumber
		next.StartDate = start
		next.EndDate = end
		next.SpecialInstructions = in.SpecialInstructions
		next.TotalAmount = domain.DaycareTotal(start, end, cur.Center.PricePerDay)
		return s.repo.UpdateDetails(ctx, &next, allowed)
	})
}

// Delete removes a finished or cancelled booking and returns it
func (s *DaycareService) Delete(ctx context.Context, actor domain.Actor, id string) (*domain.DaycareBooking, error) {
	return s.remove(ctx, actor, id)
}
