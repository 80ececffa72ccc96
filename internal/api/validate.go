package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkRequest validates req against its struct tags and returns the first
// failure in a readable form.
func checkRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	e := verrs[0]
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: field is required", e.Field())
	case "max":
		return fmt.Errorf("%s: must not exceed %s characters", e.Field(), e.Param())
	}
	return fmt.Errorf("%s: validation failed (%s)", e.Field(), e.Tag())
}
