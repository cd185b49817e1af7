package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/zatekoja/doctorconsole/pkg/errors"
)

type sample struct {
	ID     string `validate:"required"`
	Status string `validate:"oneof=waiting completed"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{ID: "a1", Status: "waiting"}))

	err := Struct(sample{Status: "lost"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "sample.ID failed required")
	assert.Contains(t, err.Error(), "sample.Status failed oneof=waiting completed")
}
