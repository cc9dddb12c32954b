package util

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func init() {
	validate = validator.New()
}

// ValidationError DTO 校验失败，只保留第一个失败字段
type ValidationError struct {
	Field string
	Tag   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Field [%s] failed validation [%s]", e.Field, e.Tag)
}

func ValidateDTO(dto any) error {
	if err := validate.Struct(dto); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			firstError := vErrs[0]
			return &ValidationError{Field: firstError.Field(), Tag: firstError.Tag()}
		}
		return err
	}
	return nil
}

// ValidUsername 仅允许字母、数字与下划线
func ValidUsername(username string) bool {
	return usernameRegex.MatchString(username)
}
