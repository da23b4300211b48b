package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/campusshare/campusshare/internal/errs"
	"github.com/campusshare/campusshare/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("resource_status", func(fl validator.FieldLevel) bool {
		return model.ResourceStatus(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("borrow_status", func(fl validator.FieldLevel) bool {
		return model.BorrowStatus(fl.Field().String()).IsValid()
	})

	return v
}

// validateStruct runs struct tags and converts failures into an
// *errs.ValidationError naming every offending field.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	out := errs.Validation()
	for _, fe := range verrs {
		out.Add(fe.Field(), fieldMessage(fe))
	}
	return out.Err()
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "resource_status":
		return field + " must be one of " + joinStatuses(model.ResourceStatuses)
	case "borrow_status":
		return field + " must be one of " + joinStatuses(model.BorrowStatuses)
	default:
		return field + " is invalid"
	}
}

func joinStatuses[S ~string](statuses []S) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
