// Package validation checks request structs against their `validate` tags
// and reports failures as a domain.ValidationError keyed by JSON field path.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pawfam/backend/internal/domain"
)

var (
	zipRE     = regexp.MustCompile(`^\d{6}$`)
	mobileRE  = regexp.MustCompile(`^\d{10}$`)
	cardRE    = regexp.MustCompile(`^\d{14,16}$`)
	expiryRE  = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvvRE     = regexp.MustCompile(`^\d{3}$`)
	lettersRE = regexp.MustCompile(`^[A-Za-z ]+$`)
	clockRE   = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

var custom = map[string]*regexp.Regexp{
	"zip6":     zipRE,
	"mobile10": mobileRE,
	"cardnum":  cardRE,
	"expiry":   expiryRE,
	"cvv":      cvvRE,
	"letters":  lettersRE,
	"hhmm":     clockRE,
}

var messages = map[string]string{
	"zip6":     "must be exactly 6 digits",
	"mobile10": "must be exactly 10 digits",
	"cardnum":  "must be 14 to 16 digits",
	"expiry":   "must be in MM/YY format",
	"cvv":      "must be 3 digits",
	"letters":  "must contain only letters and spaces",
	"hhmm":     "must be a time in HH:MM format",
	"email":    "must be a valid email address",
	"required": "is required",
	"dive":     "is invalid",
}

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		for tag, re := range custom {
			re := re
			// Empty values pass; presence is the job of required.
			_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				s := fl.Field().String()
				return s == "" || re.MatchString(s)
			})
		}
		instance = v
	})
	return instance
}

// Struct validates s and returns nil or a *domain.ValidationError
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := fieldPath(fe.Namespace())
		if _, seen := fields[key]; !seen {
			fields[key] = message(fe)
		}
	}
	return domain.NewValidationError(fields)
}

// fieldPath keeps only JSON names: "CreateBookingInput.BookingDetailsInput.petName"
// becomes "petName". Go type names (root and embedded structs) start upper-case.
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	kept := parts[:0]
	for i, p := range parts {
		if i == len(parts)-1 || p == "" || !unicode.IsUpper(rune(p[0])) {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}

func message(fe validator.FieldError) string {
	if m, ok := messages[fe.Tag()]; ok {
		return m
	}
	switch fe.Tag() {
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "required_if":
		return "is required"
	case "gtefield":
		return "must not be before " + fe.Param()
	}
	return "failed " + fe.Tag() + " check"
}
