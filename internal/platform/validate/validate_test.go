// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amparo-social/amparo-api/internal/platform/apperr"
	"github.com/amparo-social/amparo-api/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "name", "Amparo", false},
		{"empty_string", "name", "", true},
		{"whitespace_only", "name", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, apperr.CodeValidation, ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Email checks the email format validation rule.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "test@example.com", true},
		{"invalid_format", "invalid-email", false},
		{"missing_domain", "test@", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Email("email", tt.email)

			if tt.isValid {
				assert.False(t, v.HasErrors())
			} else {
				assert.True(t, v.HasErrors())
			}
		})
	}
}

/*
TestValidator_Lengths exercises MinLen/MaxLen with multi-byte input, since
both count runes rather than bytes.
*/
func TestValidator_Lengths(t *testing.T) {
	v := &validate.Validator{}
	v.MinLen("password", "1234567", 8)
	assert.True(t, v.HasErrors())

	v = &validate.Validator{}
	v.MinLen("password", "12345678", 8)
	assert.False(t, v.HasErrors())

	v = &validate.Validator{}
	v.MaxLen("name", "héllo", 5)
	assert.False(t, v.HasErrors())

	v = &validate.Validator{}
	v.MaxLen("name", "hello!", 5)
	assert.True(t, v.HasErrors())
}

/*
TestValidator_Range checks the inclusive numeric bounds rule.
*/
func TestValidator_Range(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		isValid bool
	}{
		{"lower_bound", 0, true},
		{"upper_bound", 5, true},
		{"below", -1, false},
		{"above", 6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Range("rating", tt.value, 0, 5)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_OneOf checks membership in a closed string set.
*/
func TestValidator_OneOf(t *testing.T) {
	v := &validate.Validator{}
	v.OneOf("role", "assistant", "user", "assistant")
	assert.False(t, v.HasErrors())

	v = &validate.Validator{}
	v.OneOf("role", "robot", "user", "assistant")
	assert.True(t, v.HasErrors())
}

/*
TestValidator_CollectsAllFailures verifies all failed rules appear in the
details slice, not just the first.
*/
func TestValidator_CollectsAllFailures(t *testing.T) {
	v := &validate.Validator{}
	v.Required("email", "").
		Required("password", "").
		Range("rating", 9, 0, 5)

	err := v.Err()
	require.NotNil(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Len(t, ae.Details, 3)
}
