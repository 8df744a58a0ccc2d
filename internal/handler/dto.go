package handler

import (
	"encoding/json"
	"time"

	"github.com/pawfam/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// money renders an exact decimal as a JSON number
func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// UserResponse is the public view of an account. The password hash never
// leaves the service.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func toUser(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: string(u.Role)}
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
	Message string       `json:"message"`
}

type DaycareCenterResponse struct {
	Name        string      `json:"name"`
	Location    string      `json:"location"`
	PricePerDay json.Number `json:"pricePerDay"`
}

// BookingResponse is the wire form of a daycare booking
type BookingResponse struct {
	ID                  string                `json:"_id"`
	User                string                `json:"user"`
	DaycareCenter       DaycareCenterResponse `json:"daycareCenter"`
	PetName             string                `json:"petName"`
	PetType             string                `json:"petType"`
	PetAge              string                `json:"petAge"`
	Email               string                `json:"email"`
	MobileNumber        string                `json:"mobileNumber"`
	StartDate           time.Time             `json:"startDate"`
	EndDate             time.Time             `json:"endDate"`
	SpecialInstructions string                `json:"specialInstructions,omitempty"`
	TotalAmount         json.Number           `json:"totalAmount"`
	Status              string                `json:"status"`
	CreatedAt           time.Time             `json:"createdAt"`
	UpdatedAt           time.Time             `json:"updatedAt"`
}

func toBooking(b *domain.DaycareBooking) BookingResponse {
	return BookingResponse{
		ID:   b.ID,
		User: b.UserID,
		DaycareCenter: DaycareCenterResponse{
			Name:        b.Center.Name,
			Location:    b.Center.Location,
			PricePerDay: money(b.Center.PricePerDay),
		},
		PetName:             b.PetName,
		PetType:             b.PetType,
		PetAge:              b.PetAge,
		Email:               b.Email,
		MobileNumber:        b.MobileNumber,
		StartDate:           b.StartDate,
		EndDate:             b.EndDate,
		SpecialInstructions: b.SpecialInstructions,
		TotalAmount:         money(b.TotalAmount),
		Status:              string(b.Status),
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

type OrderItemResponse struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	Price     json.Number `json:"price"`
	Quantity  int         `json:"quantity"`
	Image     string      `json:"image,omitempty"`
}

type ShippingAddressResponse struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipCode"`
}

// PaymentResponse is the masked payment descriptor
type PaymentResponse struct {
	Method     string `json:"method"`
	CardLast4  string `json:"cardLast4,omitempty"`
	ExpiryDate string `json:"expiryDate,omitempty"`
}

// OrderResponse is the wire form of a product order
type OrderResponse struct {
	ID              string                  `json:"_id"`
	User            string                  `json:"user"`
	Items           []OrderItemResponse     `json:"items"`
	ShippingAddress ShippingAddressResponse `json:"shippingAddress"`
	PaymentInfo     PaymentResponse         `json:"paymentInfo"`
	TotalAmount     json.Number             `json:"totalAmount"`
	Status          string                  `json:"status"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

func toOrder(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     money(it.Price),
			Quantity:  it.Quantity,
			Image:     it.Image,
		}
	}
	a := o.ShippingAddress
	return OrderResponse{
		ID:    o.ID,
		User:  o.UserID,
		Items: items,
		ShippingAddress: ShippingAddressResponse{
			FullName: a.FullName, Email: a.Email, Address: a.Address,
			City: a.City, State: a.State, ZipCode: a.ZipCode,
		},
		PaymentInfo: PaymentResponse{
			Method:     string(o.Payment.Method),
			CardLast4:  o.Payment.Last4,
			ExpiryDate: o.Payment.ExpiryDate,
		},
		TotalAmount: money(o.TotalAmount),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

type AdoptionPetResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Breed   string `json:"breed,omitempty"`
	Age     string `json:"age,omitempty"`
	Shelter string `json:"shelter,omitempty"`
}

type ApplicantResponse struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type ExperienceResponse struct {
	Level            string `json:"level"`
	Details          string `json:"details,omitempty"`
	OtherPets        string `json:"otherPets,omitempty"`
	OtherPetsDetails string `json:"otherPetsDetails,omitempty"`
}

type VisitResponse struct {
	Date time.Time `json:"date"`
	Time string    `json:"time"`
}

// ApplicationResponse is the wire form of an adoption application
type ApplicationResponse struct {
	ID             string              `json:"_id"`
	User           string              `json:"user"`
	Pet            AdoptionPetResponse `json:"pet"`
	PersonalInfo   ApplicantResponse   `json:"personalInfo"`
	Experience     ExperienceResponse  `json:"experience"`
	VisitSchedule  VisitResponse       `json:"visitSchedule"`
	AdoptionReason string              `json:"adoptionReason"`
	Status         string              `json:"status"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

func toApplication(a *domain.AdoptionApplication) ApplicationResponse {
	return ApplicationResponse{
		ID:             a.ID,
		User:           a.UserID,
		Pet:            AdoptionPetResponse(a.Pet),
		PersonalInfo:   ApplicantResponse(a.PersonalInfo),
		Experience:     ExperienceResponse(a.Experience),
		VisitSchedule:  VisitResponse(a.VisitSchedule),
		AdoptionReason: a.AdoptionReason,
		Status:         string(a.Status),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func mapAll[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, len(items))
	for i, it := range items {
		out[i] = fn(it)
	}
	return out
}
