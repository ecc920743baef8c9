package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"moviesync/internal/models"
)

// Validation errors.
var (
	ErrMissingField = errors.New("review field is required")
	ErrInvalidField = errors.New("review field is invalid")
)

// Validator checks raw reviews before transformation.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(),
	}
}

// Validate checks that the author, date and body of a raw review are present.
func (v *Validator) Validate(raw models.RawReview) error {
	// Whitespace-only fields count as missing.
	trimmed := models.RawReview{
		Author:     strings.TrimSpace(raw.Author),
		DateText:   strings.TrimSpace(raw.DateText),
		Title:      raw.Title,
		Body:       strings.TrimSpace(raw.Body),
		RatingText: raw.RatingText,
	}

	err := v.validate.Struct(trimmed)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		if first.Tag() == "required" {
			return fmt.Errorf("%w: %s", ErrMissingField, first.Field())
		}

		return fmt.Errorf("%w: %s (%s)", ErrInvalidField, first.Field(), first.Tag())
	}

	return fmt.Errorf("%w: %v", ErrInvalidField, err)
}
