package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ExtractionBundle(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"empty object", `{}`, false},
		{"nulls everywhere", `{"personal_info": null, "job_experiences": null, "hobbies": null}`, false},
		{"age as string", `{"personal_info": {"age": "31"}}`, false},
		{"full job", `{"job_experiences": [{"company_name": "Acme", "position": "Dev", "start_date": "2020-01-01", "is_current": true, "skills_used": ["go"]}]}`, false},
		{"job missing company", `{"job_experiences": [{"position": "Dev"}]}`, true},
		{"array root", `[]`, true},
		{"languages wrong shape", `{"personal_info": {"languages": ["English"]}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(ExtractionBundle, tt.doc)
			if tt.wantErr {
				var ve *ValidationError
				require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
				assert.NotEmpty(t, ve.Summary())
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate_ValidationReport(t *testing.T) {
	assert.NoError(t, Validate(ValidationReport,
		`{"is_valid": true, "errors": [], "warnings": [], "completeness_score": 0.9, "recommendations": []}`))
	assert.NoError(t, Validate(ValidationReport,
		`{"is_valid": false, "errors": [{"field": "email", "error_type": "missing", "message": "no email", "severity": "critical"}], "warnings": ["thin history"]}`))

	err := Validate(ValidationReport, `{"errors": []}`)
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Summary(), "is_valid")
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(ValidationReport, `{"is_valid": tru`)
	require.Error(t, err)
	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nope", `{}`)
	var le *SchemaLoadError
	require.True(t, errors.As(err, &le))
	assert.Contains(t, le.Error(), "nope.schema.json")
}

func TestValidateJSONString_Valid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`
	jsonContent := `{"name": "test"}`

	err := ValidateJSONString(schemaContent, jsonContent)
	assert.NoError(t, err)
}

func TestValidateJSONString_Invalid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`
	jsonContent := `{"age": 30}`

	err := ValidateJSONString(schemaContent, jsonContent)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "name", Message: "is required"},
			{Field: "age", Message: "must be a number"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation failed")
	assert.Contains(t, errorMsg, "name")
	assert.Contains(t, errorMsg, "age")
}

