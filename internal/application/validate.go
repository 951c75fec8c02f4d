package application

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/lab-inventory/internal/scheduler"
)

var inputValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validateNotBlank)
	_ = v.RegisterValidation("isodate", validateISODate)
	_ = v.RegisterValidation("equipment_status", validateEquipmentStatus)
	return v
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateISODate accepts blank values; pair it with required or notblank when the
// date must be present.
func validateISODate(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if value == "" {
		return true
	}
	_, err := scheduler.ParseDate(value)
	return err == nil
}

func validateEquipmentStatus(fl validator.FieldLevel) bool {
	return slices.Contains(EquipmentStatuses, fl.Field().String())
}

// validateInput runs the struct tags of input. Missing required fields take
// precedence in the message; every failing field is listed in FieldErrors.
func validateInput(ctx context.Context, input any, invalidMessage string) *ValidationError {
	err := inputValidator.StructCtx(ctx, input)
	if err == nil {
		return nil
	}

	vErr := &ValidationError{Message: invalidMessage}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.add("input", err.Error())
		return vErr
	}

	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required", "required_without":
			vErr.Message = MessageMissingFields
		}
		vErr.add(fe.Field(), fieldMessage(fe))
	}
	return vErr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "required_without":
		return fmt.Sprintf("%s is required when %s is empty", fe.Field(), strings.ToLower(fe.Param()))
	case "notblank":
		return fe.Field() + " must not be blank"
	case "isodate":
		return fe.Field() + " must be a date in YYYY-MM-DD format"
	case "equipment_status":
		return fe.Field() + " must be one of " + strings.Join(EquipmentStatuses, ", ")
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}
