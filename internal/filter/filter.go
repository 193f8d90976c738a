// Package filter derives the visible subset of an itinerary list from a
// free-text search and a category filter. Everything here is pure: no state
// is kept between calls and inputs are never modified.
package filter

import (
	"strings"

	"github.com/pkordes/itinerary-sync/backend/internal/domain"
)

// All is the category filter that matches every category.
const All = "all"

// Category is either All or a single domain.Category.
type Category string

// ParseCategory maps query text to a filter. Empty and "all" (any case) mean
// All; anything else must be a known category.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, All) {
		return All, nil
	}
	c, err := domain.ParseCategory(s)
	if err != nil {
		return "", err
	}
	return Category(c), nil
}

// Apply returns the itineraries whose destination or activities contain
// search (case-insensitive, surrounding whitespace ignored) and whose
// category matches cat. Order is preserved. A blank search matches everything.
func Apply(items []domain.Itinerary, search string, cat Category) []domain.Itinerary {
	needle := strings.ToLower(strings.TrimSpace(search))

	out := make([]domain.Itinerary, 0, len(items))
	for _, it := range items {
		if !matchesCategory(it, cat) || !matchesSearch(it, needle) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matchesSearch(it domain.Itinerary, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(it.Destination), needle) ||
		strings.Contains(strings.ToLower(it.Activities), needle)
}

func matchesCategory(it domain.Itinerary, cat Category) bool {
	return cat == All || cat == "" || string(it.Category) == string(cat)
}
