// Package query holds the search and sort semantics for owner-scoped list
// endpoints. The same rules are rendered two ways: as MongoDB filter/sort
// documents and as in-process predicates for the memory store.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field is a sortable attribute
type Field string

const (
	FieldCreatedAt   Field = "createdAt"
	FieldTotalAmount Field = "totalAmount"
)

// ErrUnsupportedSort is returned by ParseSort for unknown or disallowed keys
var ErrUnsupportedSort = errors.New("unsupported sort")

// Sort selects ordering of a list
type Sort struct {
	Field Field
	Desc  bool
}

// DefaultSort is newest first
var DefaultSort = Sort{Field: FieldCreatedAt, Desc: true}

func (s Sort) String() string {
	dir := "asc"
	if s.Desc {
		dir = "desc"
	}
	return string(s.Field) + "-" + dir
}

// ParseSort parses keys like "createdAt-desc" or "totalAmount-asc".
// An empty value yields DefaultSort. allowed restricts the usable fields.
func ParseSort(raw string, allowed ...Field) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSort, nil
	}

	name, dir, ok := strings.Cut(raw, "-")
	if !ok {
		dir = "desc"
	}

	var s Sort
	switch strings.ToLower(dir) {
	case "asc":
	case "desc":
		s.Desc = true
	default:
		return Sort{}, fmt.Errorf("%w %q: direction must be asc or desc", ErrUnsupportedSort, raw)
	}

	for _, f := range allowed {
		if strings.EqualFold(string(f), name) {
			s.Field = f
			return s, nil
		}
	}
	return Sort{}, fmt.Errorf("%w %q", ErrUnsupportedSort, raw)
}

// Keyword normalises a free-text search term
func Keyword(raw string) string {
	return strings.TrimSpace(raw)
}

// Match reports whether any value contains keyword, ignoring case.
// An empty keyword matches everything.
func Match(keyword string, values ...string) bool {
	if keyword == "" {
		return true
	}
	needle := strings.ToLower(keyword)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// MongoKeyword returns an $or filter matching keyword as a literal,
// case-insensitive substring of any of fields. It returns nil for an empty keyword.
func MongoKeyword(keyword string, fields ...string) bson.M {
	if keyword == "" || len(fields) == 0 {
		return nil
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: pattern})
	}
	return bson.M{"$or": or}
}

// MongoSort renders s as a sort document with _id as tiebreaker
func MongoSort(s Sort) bson.D {
	dir := 1
	if s.Desc {
		dir = -1
	}
	return bson.D{{Key: string(s.Field), Value: dir}, {Key: "_id", Value: dir}}
}

// Keys extracts the sortable attributes of an item
type Keys[T any] struct {
	CreatedAt   func(T) time.Time
	TotalAmount func(T) decimal.Decimal
}

// SortSlice orders items in place according to s
func SortSlice[T any](items []T, s Sort, keys Keys[T]) {
	less := func(a, b T) int {
		switch s.Field {
		case FieldTotalAmount:
			if keys.TotalAmount != nil {
				return keys.TotalAmount(a).Cmp(keys.TotalAmount(b))
			}
		}
		return keys.CreatedAt(a).Compare(keys.CreatedAt(b))
	}
	sort.SliceStable(items, func(i, j int) bool {
		c := less(items[i], items[j])
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
}
