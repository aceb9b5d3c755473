package lead

import (
	"regexp"
	"strings"

	"growly/internal/pkg/phone"
	"growly/internal/pkg/validator"
)

var personNamePattern = regexp.MustCompile(`^[A-Za-z\s]+$`)

func init() {
	validator.RegisterStringRule("personname", personNamePattern.MatchString)
	validator.RegisterStringRule("phonelike", phone.Resembles)
	validator.RegisterStringRule("businesstype", func(v string) bool {
		return BusinessType(v).Valid()
	})
}

var fieldMessages = map[string]map[string]string{
	"name": {
		"required":   "Name is required",
		"min":        "Name must be between 2 and 100 characters",
		"max":        "Name must be between 2 and 100 characters",
		"personname": "Name can only contain letters and spaces",
	},
	"email": {
		"required": "Email is required",
		"email":    "Please provide a valid email address",
	},
	"phone": {
		"required":  "Phone number is required",
		"phonelike": "Please provide a valid phone number",
	},
	"businessType": {
		"required":     "Business type is required",
		"businesstype": "Please select a valid business type",
	},
	"message": {
		"max": "Message cannot exceed 1000 characters",
	},
}

func fieldMessage(field, tag string) string {
	if msg, ok := fieldMessages[field][tag]; ok {
		return msg
	}
	return "Invalid value for " + field
}

// ValidateSubmission checks every field of req and returns the normalized
// submission, or a *ValidationError listing each violated field.
func ValidateSubmission(req SubmitLeadRequest) (*Submission, error) {
	trimmed := SubmitLeadRequest{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		BusinessType: strings.TrimSpace(req.BusinessType),
		Message:      strings.TrimSpace(req.Message),
	}

	if errs := validator.Validate(&trimmed); errs != nil {
		fields := make([]FieldError, 0, len(errs))
		for _, fe := range errs {
			fields = append(fields, FieldError{
				Field:   fe.Field,
				Message: fieldMessage(fe.Field, fe.Tag),
			})
		}
		return nil, &ValidationError{Fields: fields}
	}

	return &Submission{
		Name:         trimmed.Name,
		Email:        strings.ToLower(trimmed.Email),
		Phone:        phone.Normalize(trimmed.Phone),
		BusinessType: BusinessType(trimmed.BusinessType),
		Message:      trimmed.Message,
	}, nil
}
