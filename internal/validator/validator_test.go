package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	ierr "github.com/vendaflow/vendaflow/internal/errors"
)

type sampleRequest struct {
	Email string `validate:"required,email"`
	Name  string `validate:"required"`
}

func TestValidateRequestEnumeratesEveryField(t *testing.T) {
	NewValidator()

	err := ValidateRequest(&sampleRequest{Email: "not-an-email"})
	assert.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	// Both violated fields are reported, not just the first
	assert.Contains(t, err.Error(), "Email")
	assert.Contains(t, err.Error(), "Name")

	assert.NoError(t, ValidateRequest(&sampleRequest{Email: "ana@test.com", Name: "Ana"}))
}

func TestValidateRequestFailsClosedWithoutInit(t *testing.T) {
	validate = nil
	defer NewValidator()

	err := ValidateRequest(&sampleRequest{Email: "ana@test.com", Name: "Ana"})
	assert.Error(t, err)
	assert.False(t, ierr.IsValidation(err))
}
