package service

import (
	"context"
	"fmt"
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

const resourceOrder = "order"

// OrderItemInput is one checkout line
type OrderItemInput struct {
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" validate:"gte=1,lte=999"`
	Image     string          `json:"image"`
}

// ShippingAddressInput is the delivery address
type ShippingAddressInput struct {
	FullName string `json:"fullName" validate:"required,letters"`
	Email    string `json:"email" validate:"required,email"`
	Address  string `json:"address" validate:"required,max=500"`
	City     string `json:"city" validate:"required,letters"`
	State    string `json:"state" validate:"required,letters"`
	ZipCode  string `json:"zipCode" validate:"required,zip6"`
}

func (a *ShippingAddressInput) normalize() {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.Address = strings.TrimSpace(a.Address)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.ZipCode = strings.TrimSpace(a.ZipCode)
}

func (a ShippingAddressInput) toDomain() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName: a.FullName,
		Email:    a.Email,
		Address:  a.Address,
		City:     a.City,
		State:    a.State,
		ZipCode:  a.ZipCode,
	}
}

// PaymentInput is validated and then reduced to a masked descriptor.
// Method defaults to card.
type PaymentInput struct {
	Method     string `json:"method" validate:"oneof=card cod"`
	CardNumber string `json:"cardNumber" validate:"required_if=Method card,cardnum"`
	ExpiryDate string `json:"expiryDate" validate:"required_if=Method card,expiry"`
	CVV        string `json:"cvv" validate:"required_if=Method card,cvv"`
}

func (p *PaymentInput) normalize() {
	p.Method = strings.ToLower(strings.TrimSpace(p.Method))
	if p.Method == "" {
		p.Method = string(domain.PaymentCard)
	}
	p.CardNumber = strings.Join(strings.Fields(p.CardNumber), "")
	p.ExpiryDate = strings.TrimSpace(p.ExpiryDate)
	p.CVV = strings.TrimSpace(p.CVV)
}

// mask keeps what may be persisted: the last four digits and the expiry
func (p PaymentInput) mask() domain.Payment {
	if domain.PaymentMethod(p.Method) != domain.PaymentCard {
		return domain.Payment{Method: domain.PaymentMethod(p.Method)}
	}
	last4 := p.CardNumber
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	return domain.Payment{Method: domain.PaymentCard, Last4: last4, ExpiryDate: p.ExpiryDate}
}

// CreateOrderInput is the checkout request. Any client-sent total is ignored.
type CreateOrderInput struct {
	Items           []OrderItemInput     `json:"items" validate:"required,min=1,dive"`
	ShippingAddress ShippingAddressInput `json:"shippingAddress"`
	PaymentInfo     PaymentInput         `json:"paymentInfo"`
}

// OrderService manages product orders
type OrderService struct {
	repo domain.OrderRepository
	*engine[*domain.Order]
	now func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(repo domain.OrderRepository, deps Deps) *OrderService {
	return &OrderService{
		repo: repo,
		engine: newEngine[*domain.Order](resourceOrder, domain.OrderLifecycle, repo,
			func(o *domain.Order) lifecycle.Status { return o.Status }, deps),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create validates in, computes the total from the line items and persists
// a pending order owned by actor. idempotencyKey may be empty.
func (s *OrderService) Create(ctx context.Context, actor domain.Actor, in CreateOrderInput, idempotencyKey string) (*domain.Order, bool, error) {
	if err := s.authorize(actor, security.PermCreateResource); err != nil {
		return nil, false, err
	}
	in.ShippingAddress.normalize()
	in.PaymentInfo.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, false, err
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	for i, it := range in.Items {
		if err := checkPrice(fmt.Sprintf("items[%d].price", i), it.Price); err != nil {
			return nil, false, err
		}
		items = append(items, domain.OrderItem{
			ProductID: strings.TrimSpace(it.ProductID),
			Name:      strings.TrimSpace(it.Name),
			Price:     it.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}

	return createOnce(ctx, s.Idem, resourceOrder, actor, idempotencyKey,
		func(ctx context.Context, id string) (*domain.Order, error) {
			return s.repo.GetForOwner(ctx, id, actor.UserID)
		},
		func(ctx context.Context) (*domain.Order, string, error) {
			now := s.now()
			order := &domain.Order{
				UserID:          actor.UserID,
				Items:           items,
				ShippingAddress: in.ShippingAddress.toDomain(),
				Payment:         in.PaymentInfo.mask(),
				TotalAmount:     domain.OrderTotal(items),
				Status:          domain.OrderLifecycle.Initial(),
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := s.repo.Create(ctx, order); err != nil {
				return nil, "", err
			}
			metrics.ObserveCreated(resourceOrder)
			s.Audit.LogAction(ctx, actor.UserID, "create", resourceOrder, order.ID, "success", "")
			return order, order.ID, nil
		},
	)
}

// List returns the actor's orders
func (s *OrderService) List(ctx context.Context, actor domain.Actor, search, rawSort string) ([]*domain.Order, error) {
	if err := s.authorize(actor, security.PermReadOwn); err != nil {
		return nil, err
	}
	sort, err := query.ParseSort(rawSort, query.FieldCreatedAt, query.FieldTotalAmount)
	if err != nil {
		return nil, domain.FieldError("sort", err.Error())
	}
	return s.repo.List(ctx, domain.ListQuery{OwnerID: actor.UserID, Keyword: query.Keyword(search), Sort: sort})
}

// Get returns one of the actor's orders
func (s *OrderService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error) {
	return s.get(ctx, actor, id)
}

// UpdateStatus moves an order along its lifecycle. Vendors only.
func (s *OrderService) UpdateStatus(ctx context.Context, actor domain.Actor, id, status string) (*domain.Order, error) {
	return s.updateStatus(ctx, actor, id, status)
}

// Cancel cancels an order that has not shipped yet
func (s *OrderService) Cancel(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error) {
	return s.cancel(ctx, actor, id)
}

// UpdateShippingAddress changes where a pending or processing order goes
func (s *OrderService) UpdateShippingAddress(ctx context.Context, actor domain.Actor, id string, in ShippingAddressInput) (*domain.Order, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return s.edit(ctx, actor, id, func(_ *domain.Order, allowed []lifecycle.Status) (*domain.Order, error) {
		return s.repo.UpdateShippingAddress(ctx, id, actor.UserID, allowed, in.toDomain())
	})
}

// Delete removes a delivered or cancelled order and returns it
func (s *OrderService) Delete(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error) {
	return s.remove(ctx, actor, id)
}
