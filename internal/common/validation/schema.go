package validation

import (
	"fmt"
	"strings"

	"dealership-workers/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Validator checks job variables against a compiled JSON Schema.
type Validator struct {
	schema *gojsonschema.Schema
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// MustValidator is for schemas embedded in the binary.
func MustValidator(schemaJSON string) *Validator {
	v, err := NewValidator(schemaJSON)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks a raw JSON document. A document that is not JSON at all is
// reported as a single error on the root.
func (v *Validator) Validate(document string) *ValidationResult {
	res, err := v.schema.Validate(gojsonschema.NewStringLoader(document))
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "INVALID_JSON",
			}},
		}
	}

	result := &ValidationResult{Valid: res.Valid()}
	for _, e := range res.Errors() {
		result.Errors = append(result.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return result
}

// Err returns an INVALID_JOB_INPUT error describing every violation, or nil.
func (vr *ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	return errors.NewInvalidJobInputError(strings.Join(vr.GetErrorMessages(), "; "))
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
