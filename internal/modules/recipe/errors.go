package recipe

import (
	"errors"
	"fmt"
)

var (
	// ErrRecipe marks malformed or incomplete reference data.
	ErrRecipe = errors.New("invalid recipe")
	// ErrRecipeNotFound is returned when a selector does not resolve to a recipe file.
	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrInvalidSelector is returned for empty selectors or selectors escaping the recipe source.
	ErrInvalidSelector = errors.New("invalid recipe selector")
)

func recipeErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrRecipe, fmt.Sprintf(format, args...))
}
