package domain

import (
	"time"

	"github.com/pawfam/backend/internal/lifecycle"
	"github.com/shopspring/decimal"
)

// Daycare booking statuses
const (
	DaycarePending   lifecycle.Status = "pending"
	DaycareConfirmed lifecycle.Status = "confirmed"
	DaycareCancelled lifecycle.Status = "cancelled"
	DaycareCompleted lifecycle.Status = "completed"
)

// DaycareLifecycle governs daycare bookings
var DaycareLifecycle = lifecycle.New(lifecycle.Config{
	Name:     "booking",
	States:   []lifecycle.Status{DaycarePending, DaycareConfirmed, DaycareCancelled, DaycareCompleted},
	Initial:  DaycarePending,
	Terminal: []lifecycle.Status{DaycareCompleted, DaycareCancelled},
	Transitions: map[lifecycle.Status][]lifecycle.Status{
		DaycarePending:   {DaycareConfirmed, DaycareCancelled},
		DaycareConfirmed: {DaycareCompleted, DaycareCancelled},
	},
	Cancellable: []lifecycle.Status{DaycarePending, DaycareConfirmed},
	CancelTo:    DaycareCancelled,
	Editable:    []lifecycle.Status{DaycarePending, DaycareConfirmed},
})

// Pet types accepted for daycare
var PetTypes = []string{"dog", "cat", "bird", "other"}

// DaycareCenter is a snapshot of the center at booking time, not a live reference
type DaycareCenter struct {
	Name        string
	Location    string
	PricePerDay decimal.Decimal
}

// DaycareBooking represents a daycare reservation for one pet
type DaycareBooking struct {
	ID                  string
	UserID              string
	Center              DaycareCenter
	PetName             string
	PetType             string
	PetAge              string
	Email               string
	MobileNumber        string
	StartDate           time.Time
	EndDate             time.Time
	SpecialInstructions string
	TotalAmount         decimal.Decimal
	Status              lifecycle.Status
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

const day = 24 * time.Hour

// BookingDays returns the number of started days between start and end.
// Same-day bookings count as zero days.
func BookingDays(start, end time.Time) int {
	diff := end.Sub(start)
	if diff <= 0 {
		return 0
	}
	days := diff / day
	if diff%day != 0 {
		days++
	}
	return int(days)
}

// DaycareTotal returns days x pricePerDay
func DaycareTotal(start, end time.Time, pricePerDay decimal.Decimal) decimal.Decimal {
	return pricePerDay.Mul(decimal.NewFromInt(int64(BookingDays(start, end))))
}
