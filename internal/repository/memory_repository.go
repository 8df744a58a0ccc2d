package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/lifecycle"
	"github.com/pawfam/backend/internal/query"
	"github.com/shopspring/decimal"
)

// MemoryUserRepository is an in-process domain.UserRepository used with
// STORE_DRIVER=memory and in tests.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
	byName  map[string]string
}

// NewMemoryUserRepository creates an empty user store
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
		byName:  make(map[string]string),
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := r.byEmail[email]; taken {
		return fmt.Errorf("%w: user already exists", domain.ErrConflict)
	}
	if _, taken := r.byName[user.Username]; taken {
		return fmt.Errorf("%w: user already exists", domain.ErrConflict)
	}

	now := time.Now().UTC()
	user.ID = newID()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[email] = user.ID
	r.byName[user.Username] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(id)
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(r.byEmail[strings.ToLower(email)])
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(r.byName[username])
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryUserRepository) copyOf(id string) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// MemoryOrderRepository is an in-process domain.OrderRepository
type MemoryOrderRepository struct {
	t *table[domain.Order]
}

// NewMemoryOrderRepository creates an empty order store
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{t: newTable(
		func(o *domain.Order) string { return o.UserID },
		func(o *domain.Order) lifecycle.Status { return o.Status },
		func(o *domain.Order) *domain.Order {
			cp := *o
			cp.Items = slices.Clone(o.Items)
			return &cp
		},
	)}
}

var orderKeys = query.Keys[*domain.Order]{
	CreatedAt:   func(o *domain.Order) time.Time { return o.CreatedAt },
	TotalAmount: func(o *domain.Order) decimal.Decimal { return o.TotalAmount },
}

func (r *MemoryOrderRepository) Create(_ context.Context, order *domain.Order) error {
	order.ID = newID()
	r.t.insert(order.ID, order)
	return nil
}

func (r *MemoryOrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	return r.t.get(id, "")
}

func (r *MemoryOrderRepository) GetForOwner(_ context.Context, id, ownerID string) (*domain.Order, error) {
	return r.t.get(id, ownerID)
}

func (r *MemoryOrderRepository) List(_ context.Context, q domain.ListQuery) ([]*domain.Order, error) {
	out := r.t.list(q.OwnerID, q.Sort.Desc, func(o *domain.Order) bool {
		values := []string{o.ShippingAddress.FullName, o.ShippingAddress.City, string(o.Status)}
		for _, it := range o.Items {
			values = append(values, it.Name)
		}
		return query.Match(q.Keyword, values...)
	})
	query.SortSlice(out, q.Sort, orderKeys)
	return out, nil
}

func (r *MemoryOrderRepository) ChangeStatus(_ context.Context, c domain.StatusChange) (*domain.Order, error) {
	return r.t.mutate(c.ID, c.OwnerID, c.From, func(o *domain.Order) {
		o.Status = c.To
		o.UpdatedAt = time.Now().UTC()
	})
}

func (r *MemoryOrderRepository) UpdateShippingAddress(_ context.Context, id, ownerID string, allowed []lifecycle.Status, addr domain.ShippingAddress) (*domain.Order, error) {
	return r.t.mutate(id, ownerID, allowed, func(o *domain.Order) {
		o.ShippingAddress = addr
		o.UpdatedAt = time.Now().UTC()
	})
}

func (r *MemoryOrderRepository) Delete(_ context.Context, id, ownerID string, allowed []lifecycle.Status) (*domain.Order, error) {
	return r.t.remove(id, ownerID, allowed)
}

// MemoryDaycareRepository is an in-process domain.DaycareRepository
type MemoryDaycareRepository struct {
	t *table[domain.DaycareBooking]
}

// NewMemoryDaycareRepository creates an empty booking store
func NewMemoryDaycareRepository() *MemoryDaycareRepository {
	return &MemoryDaycareRepository{t: newTable(
		func(b *domain.DaycareBooking) string { return b.UserID },
		func(b *domain.DaycareBooking) lifecycle.Status { return b.Status },
		func(b *domain.DaycareBooking) *domain.DaycareBooking {
			cp := *b
			return &cp
		},
	)}
}

var daycareKeys = query.Keys[*domain.DaycareBooking]{
	CreatedAt:   func(b *domain.DaycareBooking) time.Time { return b.CreatedAt },
	TotalAmount: func(b *domain.DaycareBooking) decimal.Decimal { return b.TotalAmount },
}

func (r *MemoryDaycareRepository) Create(_ context.Context, booking *domain.DaycareBooking) error {
	booking.ID = newID()
	r.t.insert(booking.ID, booking)
	return nil
}

func (r *MemoryDaycareRepository) GetByID(_ context.Context, id string) (*domain.DaycareBooking, error) {
	return r.t.get(id, "")
}

func (r *MemoryDaycareRepository) GetForOwner(_ context.Context, id, ownerID string) (*domain.DaycareBooking, error) {
	return r.t.get(id, ownerID)
}

func (r *MemoryDaycareRepository) List(_ context.Context, q domain.ListQuery) ([]*domain.DaycareBooking, error) {
	out := r.t.list(q.OwnerID, q.Sort.Desc, func(b *domain.DaycareBooking) bool {
		return query.Match(q.Keyword,
			b.PetName, b.PetType, b.Center.Name, b.Center.Location,
			b.SpecialInstructions, string(b.Status),
		)
	})
	query.SortSlice(out, q.Sort, daycareKeys)
	return out, nil
}

func (r *MemoryDaycareRepository) ChangeStatus(_ context.Context, c domain.StatusChange) (*domain.DaycareBooking, error) {
	return r.t.mutate(c.ID, c.OwnerID, c.From, func(b *domain.DaycareBooking) {
		b.Status = c.To
		b.UpdatedAt = time.Now().UTC()
	})
}

func (r *MemoryDaycareRepository) UpdateDetails(_ context.Context, booking *domain.DaycareBooking, allowed []lifecycle.Status) (*domain.DaycareBooking, error) {
	return r.t.mutate(booking.ID, booking.UserID, allowed, func(b *domain.DaycareBooking) {
		b.PetName = booking.PetName
		b.PetType = booking.PetType
		b.PetAge = booking.PetAge
		b.Email = booking.Email
		b.MobileNumber = booking.MobileNumber
		b.StartDate = booking.StartDate
		b.EndDate = booking.EndDate
		b.SpecialInstructions = booking.SpecialInstructions
		b.TotalAmount = booking.TotalAmount
		b.UpdatedAt = time.Now().UTC()
	})
}

func (r *MemoryDaycareRepository) Delete(_ context.Context, id, ownerID string, allowed []lifecycle.Status) (*domain.DaycareBooking, error) {
	return r.t.remove(id, ownerID, allowed)
}

// MemoryAdoptionRepository is an in-process domain.AdoptionRepository
type MemoryAdoptionRepository struct {
	t *table[domain.AdoptionApplication]
}

// NewMemoryAdoptionRepository creates an empty application store
func NewMemoryAdoptionRepository() *MemoryAdoptionRepository {
	return &MemoryAdoptionRepository{t: newTable(
		func(a *domain.AdoptionApplication) string { return a.UserID },
		func(a *domain.AdoptionApplication) lifecycle.Status { return a.Status },
		func(a *domain.AdoptionApplication) *domain.AdoptionApplication {
			cp := *a
			return &cp
		},
	)}
}

var adoptionKeys = query.Keys[*domain.AdoptionApplication]{
	CreatedAt: func(a *domain.AdoptionApplication) time.Time { return a.CreatedAt },
}

func (r *MemoryAdoptionRepository) Create(_ context.Context, app *domain.AdoptionApplication) error {
	app.ID = newID()
	r.t.insert(app.ID, app)
	return nil
}

func (r *MemoryAdoptionRepository) GetByID(_ context.Context, id string) (*domain.AdoptionApplication, error) {
	return r.t.get(id, "")
}

func (r *MemoryAdoptionRepository) GetForOwner(_ context.Context, id, ownerID string) (*domain.AdoptionApplication, error) {
	return r.t.get(id, ownerID)
}

func (r *MemoryAdoptionRepository) List(_ context.Context, q domain.ListQuery) ([]*domain.AdoptionApplication, error) {
	out := r.t.list(q.OwnerID, q.Sort.Desc, func(a *domain.AdoptionApplication) bool {
		return query.Match(q.Keyword, a.Pet.Name, a.Pet.Type, a.Pet.Breed, a.Pet.Shelter, string(a.Status))
	})
	query.SortSlice(out, q.Sort, adoptionKeys)
	return out, nil
}

func (r *MemoryAdoptionRepository) ChangeStatus(_ context.Context, c domain.StatusChange) (*domain.AdoptionApplication, error) {
	return r.t.mutate(c.ID, c.OwnerID, c.From, func(a *domain.AdoptionApplication) {
		a.Status = c.To
		a.UpdatedAt = time.Now().UTC()
	})
}

func (r *MemoryAdoptionRepository) UpdateDetails(_ context.Context, app *domain.AdoptionApplication, allowed []lifecycle.Status) (*domain.AdoptionApplication, error) {
	return r.t.mutate(app.ID, app.UserID, allowed, func(a *domain.AdoptionApplication) {
		a.PersonalInfo = app.PersonalInfo
		a.Experience = app.Experience
		a.VisitSchedule = app.VisitSchedule
		a.AdoptionReason = app.AdoptionReason
		a.UpdatedAt = time.Now().UTC()
	})
}

func (r *MemoryAdoptionRepository) Delete(_ context.Context, id, ownerID string, allowed []lifecycle.Status) (*domain.AdoptionApplication, error) {
	return r.t.remove(id, ownerID, allowed)
}
