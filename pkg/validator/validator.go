package validator

import (
	"fmt"

	playground "github.com/go-playground/validator/v10"
)

// Validator validates structs via `validate` tags.
type Validator interface {
	Validate(obj interface{}) error
}

type validator struct {
	v *playground.Validate
}

func New() Validator {
	return &validator{v: playground.New()}
}

func (va *validator) Validate(obj interface{}) error {
	if err := va.v.Struct(obj); err != nil {
		if errs, ok := err.(playground.ValidationErrors); ok && len(errs) > 0 {
			first := errs[0]
			return fmt.Errorf("%s failed %q validation", first.Field(), first.Tag())
		}
		return err
	}
	return nil
}
