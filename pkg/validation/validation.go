// Package validation wraps a shared validator for payloads crossing the
// console boundary.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/zatekoja/doctorconsole/pkg/errors"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Struct validates s against its `validate` tags and returns a VALIDATION AppError on failure
func Struct(s interface{}) error {
	if err := instance().Struct(s); err != nil {
		return apperrors.NewValidationError(FormatError(err))
	}
	return nil
}

// FormatError formats validation errors into a readable string
func FormatError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}

	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Param() != "" {
			messages = append(messages, fmt.Sprintf("%s failed %s=%s", e.Namespace(), e.Tag(), e.Param()))
		} else {
			messages = append(messages, fmt.Sprintf("%s failed %s", e.Namespace(), e.Tag()))
		}
	}
	return strings.Join(messages, ", ")
}
