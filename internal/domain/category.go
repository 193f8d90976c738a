package domain

import (
	"fmt"
	"strings"
)

// Category is the closed set of itinerary categories.
// Values are stored and sent on the wire in lowercase.
type Category string

const (
	CategoryAdventure   Category = "adventure"
	CategoryLeisure     Category = "leisure"
	CategoryWork        Category = "work"
	CategoryFamily      Category = "family"
	CategoryRomantic    Category = "romantic"
	CategoryBackpacking Category = "backpacking"
)

// DefaultCategory is used when a create request omits the category.
const DefaultCategory = CategoryAdventure

var categories = []Category{
	CategoryAdventure,
	CategoryLeisure,
	CategoryWork,
	CategoryFamily,
	CategoryRomantic,
	CategoryBackpacking,
}

// Categories returns every valid category in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts user input into a Category. Matching ignores case and
// surrounding whitespace. Returns ErrValidation for anything outside the set.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrValidation, s)
	}
	return c, nil
}
