package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("vocabstate", func(fl validator.FieldLevel) bool {
		return State(fl.Field().String()).Valid()
	})
	return v
}

// ValidateItem checks a single item against the vocab schema.
func ValidateItem(item *VocabItem) error {
	if err := validate.Struct(item); err != nil {
		return fmt.Errorf("item %q: %w", item.ID, err)
	}
	return nil
}

// ValidateItems checks every item and rejects duplicate ids.
func ValidateItems(items []VocabItem) error {
	seen := make(map[string]struct{}, len(items))
	for i := range items {
		if err := ValidateItem(&items[i]); err != nil {
			return fmt.Errorf("content[%d]: %w", i, err)
		}
		if _, dup := seen[items[i].ID]; dup {
			return fmt.Errorf("content[%d]: duplicate id %q", i, items[i].ID)
		}
		seen[items[i].ID] = struct{}{}
	}
	return nil
}

// ValidateCourse checks a course index entry.
func ValidateCourse(c *Course) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("course %q: %w", c.Filename, err)
	}
	return nil
}
