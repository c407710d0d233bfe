package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/eduguide/backend/internal/apperrors"
	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// fieldMessages overrides the generic message for a field/tag pair.
var fieldMessages = map[string]string{
	"name.min":                 "Name must be at least 2 characters",
	"name.required":            "Name must be at least 2 characters",
	"surname.min":              "Surname must be at least 2 characters",
	"surname.required":         "Surname must be at least 2 characters",
	"email.email":              "Please provide a valid email",
	"email.required":           "Please provide a valid email",
	"phone.phone":              "Please provide a valid phone number",
	"password.min":             "Password must be at least 6 characters",
	"password.required":        "Password is required",
	"confirmPassword.eqfield":  "Password confirmation does not match password",
	"confirmPassword.required": "Password confirmation is required",
	"role.oneof":               "Role must be either student or parent",
	"profile.grade.oneof":      "Invalid grade",
	"testId.required":          "Test ID is required",
	"testName.required":        "Test name is required",
	"score.required":           "Score must be a number",
	"answers.required":         "Answers must be an object",
	"answers.jsonobject":       "Answers must be an object",
	"type.oneof":               "Invalid recommendation type",
	"type.required":            "Invalid recommendation type",
	"title.required":           "Title is required",
	"description.required":     "Description is required",
	"match.required":           "Match must be a number",
	"details.jsonobject":       "Details must be an object",
	"saved.required":           "Saved must be a boolean",
	"studentEmail.email":       "Please provide a valid student email",
	"parentEmail.email":        "Please provide a valid parent email",
	"code.len":                 "Code must be 6 digits",
	"code.numeric":             "Code must be numeric",
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a validator that reports json field names and
// knows the phone and jsonobject tags.
func NewValidationHelper() *ValidationHelper {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("jsonobject", func(fl validator.FieldLevel) bool {
		raw, ok := fl.Field().Interface().(json.RawMessage)
		if !ok {
			return false
		}
		var obj map[string]any
		return json.Unmarshal(raw, &obj) == nil && obj != nil
	})
	return &ValidationHelper{validator: v}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// Validate is ValidateStruct translated into a validation error with
// per-field messages.
func (vh *ValidationHelper) Validate(s any) error {
	err := vh.validator.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Internal("validate request", err)
	}
	return apperrors.ValidationFields("Validation failed", FieldErrors(verrs))
}

// FieldErrors maps each failed field to a readable message. Nested fields are
// keyed by their dotted json path, e.g. "profile.grade".
func FieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		if _, seen := out[field]; seen {
			continue
		}
		if msg, ok := fieldMessages[field+"."+fe.Tag()]; ok {
			out[field] = msg
			continue
		}
		out[field] = fmt.Sprintf("Field validation failed on the '%s' tag", fe.Tag())
	}
	return out
}

// fieldPath drops the struct type name that leads every namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
