package domain

import (
	"context"
	"fmt"

	"github.com/pawfam/backend/internal/lifecycle"
	"github.com/pawfam/backend/internal/query"
)

// ListQuery scopes a list call to one owner
type ListQuery struct {
	OwnerID string
	Keyword string
	Sort    query.Sort
}

// StatusChange is a conditional status update. The store applies To only if
// the resource exists, belongs to OwnerID (when set) and its current status is
// one of From. From must never be empty.
type StatusChange struct {
	ID      string
	OwnerID string
	From    []lifecycle.Status
	To      lifecycle.Status
}

// StaleStatusError reports that a conditional write lost its precondition:
// the resource exists but its status is not in the allowed set.
type StaleStatusError struct {
	Current lifecycle.Status
}

func (e *StaleStatusError) Error() string {
	return fmt.Sprintf("resource status is %s", e.Current)
}

func (e *StaleStatusError) Unwrap() error { return ErrInvalidState }

// OrderRepository defines data access for orders.
// Owner-scoped methods return ErrNotFound for resources of other users.
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetForOwner(ctx context.Context, id, ownerID string) (*Order, error)
	List(ctx context.Context, q ListQuery) ([]*Order, error)
	ChangeStatus(ctx context.Context, change StatusChange) (*Order, error)
	UpdateShippingAddress(ctx context.Context, id, ownerID string, allowed []lifecycle.Status, addr ShippingAddress) (*Order, error)
	Delete(ctx context.Context, id, ownerID string, allowed []lifecycle.Status) (*Order, error)
}

// DaycareRepository defines data access for daycare bookings
type DaycareRepository interface {
	Create(ctx context.Context, booking *DaycareBooking) error
	GetByID(ctx context.Context, id string) (*DaycareBooking, error)
	GetForOwner(ctx context.Context, id, ownerID string) (*DaycareBooking, error)
	List(ctx context.Context, q ListQuery) ([]*DaycareBooking, error)
	ChangeStatus(ctx context.Context, change StatusChange) (*DaycareBooking, error)
	// UpdateDetails replaces the mutable fields (pet, contact, dates,
	// instructions, total) of booking if its status is in allowed.
	UpdateDetails(ctx context.Context, booking *DaycareBooking, allowed []lifecycle.Status) (*DaycareBooking, error)
	Delete(ctx context.Context, id, ownerID string, allowed []lifecycle.Status) (*DaycareBooking, error)
}

// AdoptionRepository defines data access for adoption applications
type AdoptionRepository interface {
	Create(ctx context.Context, app *AdoptionApplication) error
	GetByID(ctx context.Context, id string) (*AdoptionApplication, error)
	GetForOwner(ctx context.Context, id, ownerID string) (*AdoptionApplication, error)
	List(ctx context.Context, q ListQuery) ([]*AdoptionApplication, error)
	ChangeStatus(ctx context.Context, change StatusChange) (*AdoptionApplication, error)
	// UpdateDetails replaces applicant info, experience, visit schedule and
	// reason of app if its status is in allowed.
	UpdateDetails(ctx context.Context, app *AdoptionApplication, allowed []lifecycle.Status) (*AdoptionApplication, error)
	Delete(ctx context.Context, id, ownerID string, allowed []lifecycle.Status) (*AdoptionApplication, error)
}
