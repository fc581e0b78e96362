package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/flashaudit/pkg/audit"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("pagesize", validatePageSize)
	})
	return validate
}

// validatePageSize accepts powers of two the audit store supports.
func validatePageSize(fl validator.FieldLevel) bool {
	n := fl.Field().Uint()
	return n >= audit.MinPageSize && n <= audit.MaxPageSize && n&(n-1) == 0
}

// Validate checks cfg against its validate tags. All violations are
// reported, one per line.
func Validate(cfg *Config) error {
	err := getValidator().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "\n"))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "pagesize":
		return fmt.Sprintf("%s: %v is not a power of two between %d and %d (pagesize)",
			field, fe.Value(), audit.MinPageSize, audit.MaxPageSize)
	case "required", "required_if":
		return fmt.Sprintf("%s is required (%s)", field, fe.Tag())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s: %v fails %s=%s", field, fe.Value(), fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s: %v fails %s", field, fe.Value(), fe.Tag())
	}
}
