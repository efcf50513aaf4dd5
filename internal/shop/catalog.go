package shop

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type SortOrder string

const (
	SortNewest         SortOrder = "newest"
	SortPriceHighToLow SortOrder = "price_high_to_low"
	SortPriceLowToHigh SortOrder = "price_low_to_high"
	SortPopularity     SortOrder = "popularity"
)

// ParseSortOrder maps a query value to a SortOrder. Empty means newest.
func ParseSortOrder(v string) (SortOrder, error) {
	switch s := SortOrder(strings.TrimSpace(v)); s {
	case "":
		return SortNewest, nil
	case SortNewest, SortPriceHighToLow, SortPriceLowToHigh, SortPopularity:
		return s, nil
	default:
		return "", NewValidationError("sort", errors.New("unknown sort order "+strconv.Quote(v)))
	}
}

// Filter narrows a product listing. Zero values disable each criterion.
type Filter struct {
	Query      string
	Categories []string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	MinRating  float64
}

func (f Filter) Match(p Product) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if len(f.Categories) > 0 && !containsString(f.Categories, p.Category) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return p.Rating >= f.MinRating
}

// ApplyFilter returns the matching products in the requested order.
// The input slice is not modified.
func ApplyFilter(products []Product, f Filter, order SortOrder) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}

	var less func(a, b Product) bool
	switch order {
	case SortPriceHighToLow:
		less = func(a, b Product) bool { return a.Price.GreaterThan(b.Price) }
	case SortPriceLowToHigh:
		less = func(a, b Product) bool { return a.Price.LessThan(b.Price) }
	case SortPopularity:
		less = func(a, b Product) bool { return a.Rating > b.Rating }
	default:
		less = func(a, b Product) bool { return newerID(a.ID, b.ID) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// newerID orders numeric ids numerically and falls back to string order.
func newerID(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return ai > bi
	}
	return a > b
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

var (
	standardShipping = decimal.NewFromInt(5)
	expressShipping  = decimal.NewFromInt(15)
)

// ShippingCost returns the flat fee for a method. Empty means standard.
func ShippingCost(m ShippingMethod) (decimal.Decimal, error) {
	switch m {
	case "", ShippingStandard:
		return standardShipping, nil
	case ShippingExpress:
		return expressShipping, nil
	default:
		return decimal.Zero, NewValidationError("shippingMethod", errors.New("unknown shipping method "+strconv.Quote(string(m))))
	}
}
