package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	registerCustomValidations()
}

func registerCustomValidations() {
	// Looking-for mode validation
	validate.RegisterValidation("looking_for", func(fl validator.FieldLevel) bool {
		mode := fl.Field().String()
		validModes := []string{"text", "video", "both", ""}
		for _, m := range validModes {
			if mode == m {
				return true
			}
		}
		return false
	})

	// Report category validation
	validate.RegisterValidation("report_category", func(fl validator.FieldLevel) bool {
		category := fl.Field().String()
		validCategories := []string{"harassment", "spam", "explicit", "underage", "other"}
		for _, c := range validCategories {
			if category == c {
				return true
			}
		}
		return false
	})

	// End-reason validation
	validate.RegisterValidation("end_reason", func(fl validator.FieldLevel) bool {
		reason := fl.Field().String()
		validReasons := []string{"user_left", "skip", "inactivity", ""}
		for _, r := range validReasons {
			if reason == r {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is below the minimum of " + err.Param()
		case "max":
			errors[field] = "Value exceeds the maximum of " + err.Param()
		case "looking_for":
			errors[field] = "Must be one of: text, video, both"
		case "report_category":
			errors[field] = "Must be one of: harassment, spam, explicit, underage, other"
		case "end_reason":
			errors[field] = "Must be one of: user_left, skip, inactivity"
		case "uuid":
			errors[field] = "Must be a valid UUID"
		default:
			errors[field] = "Invalid value"
		}
	}
	return errors
}
