package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	// exhausted retries are still recognizable as a conflict
	assert.ErrorIs(t, ErrConcurrentModification, ErrConflict)

	err := validationErr("qty must be positive")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "qty must be positive")

	err = transitionErr("order already %s", "cancelled")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "order already cancelled")
}
