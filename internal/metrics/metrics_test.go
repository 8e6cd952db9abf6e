package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kerhoff/WishSync/internal/errs"
)

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "validation", StatusLabel(errs.NewValidation("bad input")))
	assert.Equal(t, "validation", StatusLabel(errs.NewForbidden("admin only")))
	assert.Equal(t, "not_found", StatusLabel(errs.NewNotFound("Wish", "abc")))
	assert.Equal(t, "error", StatusLabel(errors.New("boom")))

	// Wrapped errors keep their classification.
	wrapped := fmt.Errorf("failed to lookup wish: %w", errs.NewNotFound("Wish", "abc"))
	assert.Equal(t, "not_found", StatusLabel(wrapped))
}
