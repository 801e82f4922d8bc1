package validator

import (
	"errors"
	"fmt"
	"strings"

	"turfbook/pkg/calendar"
	"turfbook/pkg/logger"
	"turfbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details renders the errors as a field -> message map for API responses.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("timekey", validateTimeKey); err != nil {
		log.Fatal("Failed to register 'timekey' validator", "error", err)
	}
	if err := v.RegisterValidation("timekey_end", validateEndKey); err != nil {
		log.Fatal("Failed to register 'timekey_end' validator", "error", err)
	}

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateTimeKey(fl validator.FieldLevel) bool {
	_, err := calendar.ParseTimeKey(fl.Field().String())
	return err == nil
}

func validateEndKey(fl validator.FieldLevel) bool {
	_, err := calendar.ParseEndKey(fl.Field().String())
	return err == nil
}

// ValidateCreate checks field formats. Whether the two request shapes are
// supplied consistently is decided when the range is normalised.
func (v *BookingValidator) ValidateCreate(req *model.CreateBookingRequest) error {
	return v.validateStruct(req)
}

func (v *BookingValidator) ValidateVerify(req *model.VerifyPaymentRequest) error {
	return v.validateStruct(req)
}

func (v *BookingValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "timekey", "timekey_end":
			message = fmt.Sprintf("%s must be HH:MM on a 30-minute boundary", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
