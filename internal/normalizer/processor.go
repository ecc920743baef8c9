// Package normalizer turns scraped review fragments into normalized review records.
package normalizer

import (
	"fmt"

	"moviesync/internal/models"
)

// Processor handles review validation and transformation.
type Processor struct {
	validator   *Validator
	transformer *Transformer
}

// NewProcessor creates a new processor instance.
func NewProcessor() *Processor {
	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(),
	}
}

// Process validates a raw review and transforms it into a normalized review.
func (p *Processor) Process(raw models.RawReview) (models.Review, error) {
	// 1. Validate the input data
	if err := p.validator.Validate(raw); err != nil {
		return models.Review{}, fmt.Errorf("validation failed: %w", err)
	}

	// 2. Transform the data
	review, err := p.transformer.Transform(raw)
	if err != nil {
		return models.Review{}, fmt.Errorf("transformation failed: %w", err)
	}

	return review, nil
}
