package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "an account with this email already exists",
		(&ConflictError{Field: "email"}).Error())
	assert.Equal(t, "account not found",
		(&NotFoundError{Entity: "account"}).Error())
	assert.Equal(t, "username may only contain letters and digits",
		(&ValidationError{Field: "username", Reason: "username may only contain letters and digits"}).Error())
}

func TestKindsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("purchase failed: %w", ErrInsufficientFunds)
	assert.True(t, errors.Is(wrapped, ErrInsufficientFunds))

	var notFound *NotFoundError
	wrapped = fmt.Errorf("lookup failed: %w", &NotFoundError{Entity: "item"})
	assert.True(t, errors.As(wrapped, &notFound))
	assert.Equal(t, "item", notFound.Entity)
}
