package validation

import (
	"testing"

	"github.com/pawfam/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Contact struct {
	Phone string `json:"phone" validate:"required,mobile10"`
	Zip   string `json:"zip" validate:"zip6"`
}

type visit struct {
	Time string `json:"time" validate:"required,hhmm"`
}

type Request struct {
	Name string `json:"name" validate:"required,letters"`
	Contact
	Visit visit    `json:"visit"`
	Tags  []string `json:"tags" validate:"min=1"`
}

func TestStructReportsJSONPaths(t *testing.T) {
	err := Struct(Request{Name: "R2D2", Contact: Contact{Phone: "123", Zip: "12"}, Visit: visit{Time: "24:00"}})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must contain only letters and spaces", verr.Fields["name"])
	assert.Equal(t, "must be exactly 10 digits", verr.Fields["phone"])
	assert.Equal(t, "must be exactly 6 digits", verr.Fields["zip"])
	assert.Equal(t, "must be a time in HH:MM format", verr.Fields["visit.time"])
	assert.Equal(t, "must contain at least 1 item(s)", verr.Fields["tags"])
}

func TestEmptyOptionalFieldsPass(t *testing.T) {
	err := Struct(Request{Name: "Asha Rao", Contact: Contact{Phone: "9876543210"}, Visit: visit{Time: "09:30"}, Tags: []string{"x"}})
	assert.NoError(t, err)
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "petName", fieldPath("CreateBookingInput.BookingDetailsInput.petName"))
	assert.Equal(t, "shippingAddress.zipCode", fieldPath("CreateOrderInput.shippingAddress.zipCode"))
	assert.Equal(t, "items[1].price", fieldPath("CreateOrderInput.items[1].price"))
}
