package service

import (
	"github.com/pawfam/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// maxUnitPrice caps a single price so computed totals stay well inside
// what the stores can hold exactly.
var maxUnitPrice = decimal.NewFromInt(1_000_000)

// checkPrice accepts positive amounts with at most two decimal places
func checkPrice(field string, d decimal.Decimal) error {
	switch {
	case !d.IsPositive():
		return domain.FieldError(field, "must be greater than 0")
	case !d.Equal(d.Round(2)):
		return domain.FieldError(field, "must have at most 2 decimal places")
	case d.GreaterThan(maxUnitPrice):
		return domain.FieldError(field, "must not exceed "+maxUnitPrice.String())
	}
	return nil
}
