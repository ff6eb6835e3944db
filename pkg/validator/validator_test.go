package validator_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cafetal/pkg/validator"
)

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("all rules pass", func(t *testing.T) {
		err := validator.Apply(
			validator.RequiredString("title", "Pago"),
			validator.Positive("recipient_id", int64(7)),
		)
		assert.NoError(t, err)
	})

	t.Run("collects every failure", func(t *testing.T) {
		err := validator.Apply(
			validator.RequiredString("title", "  "),
			validator.ValidEmail("email", "nope"),
			validator.Positive("recipient_id", int64(0)),
		)
		require.Error(t, err)
		assert.True(t, validator.IsValidationError(err))

		verrs := validator.ExtractValidationErrors(fmt.Errorf("wrapped: %w", err))
		require.Len(t, verrs, 3)
		assert.Equal(t, []string{"title", "email", "recipient_id"}, verrs.Fields())
		assert.True(t, verrs.Has("email"))
		assert.Contains(t, err.Error(), "title: field is required")
	})

	t.Run("non validation error", func(t *testing.T) {
		assert.False(t, validator.IsValidationError(assert.AnError))
		assert.Nil(t, validator.ExtractValidationErrors(assert.AnError))
		assert.False(t, validator.IsValidationError(nil))
	})
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		valid bool
	}{
		{"juan@finca.co", true},
		{"ana.maria+cosecha@cafetal.com.co", true},
		{"", false},
		{"juan", false},
		{"juan@localhost", false},
		{"juan@finca..co", false},
		{"Juan <juan@finca.co>", false},
		{"@finca.co", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := validator.Apply(validator.ValidEmail("email", tt.value))
			assert.Equal(t, tt.valid, err == nil)
		})
	}
}

func TestRules(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validator.Apply(validator.InList("channel", "sms", []string{"email", "sms"})))
	assert.Error(t, validator.Apply(validator.InList("channel", "fax", []string{"email", "sms"})))

	assert.NoError(t, validator.Apply(validator.MaxLenString("title", "café", 4)))
	assert.Error(t, validator.Apply(validator.MaxLenString("title", "cafés", 4)))

	assert.NoError(t, validator.Apply(validator.NumRange("limit", 50, 1, 100)))
	assert.Error(t, validator.Apply(validator.NumRange("limit", 0, 1, 100)))
	assert.Error(t, validator.Apply(validator.Positive("amount", -1.5)))
}
