package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventSchema() Schema {
	return Schema{
		"title":      Field(String(), WithDescription("Event title")),
		"start_time": Field(String(), WithDescription("Start time in ISO format")),
		"duration":   Field(Int(), WithDescription("Duration in minutes")),
	}
}

func TestValidate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		err := Validate(eventSchema(), map[string]any{
			"title": "Sync", "start_time": "2025-01-01T10:00:00Z", "duration": 30.0,
		})
		assert.NoError(t, err)
	})

	t.Run("missing field", func(t *testing.T) {
		err := Validate(eventSchema(), map[string]any{"title": "Sync", "start_time": "x"})
		require.Error(t, err)

		errs := ValidationErrors(err)
		require.Len(t, errs, 1)
		var ve *ValidationError
		require.True(t, errors.As(errs[0], &ve))
		assert.Equal(t, "duration", ve.Key)
		assert.Equal(t, "required", ve.Reason)
	})

	t.Run("errors are ordered by field", func(t *testing.T) {
		err := Validate(eventSchema(), map[string]any{"duration": "long"})
		errs := ValidationErrors(err)
		require.Len(t, errs, 3)
		assert.Contains(t, errs[0].Error(), `"duration"`)
		assert.Contains(t, errs[1].Error(), `"start_time"`)
		assert.Contains(t, errs[2].Error(), `"title"`)
	})

	t.Run("optional field may be absent", func(t *testing.T) {
		s := Schema{"reason": Field(String(), Optional())}
		assert.NoError(t, Validate(s, map[string]any{}))
		assert.NoError(t, Validate(s, map[string]any{"reason": nil}))
	})

	t.Run("empty schema accepts anything", func(t *testing.T) {
		assert.NoError(t, Validate(Schema{}, map[string]any{"x": 1}))
		assert.NoError(t, Validate(nil, nil))
	})
}

func TestApply(t *testing.T) {
	search := Schema{
		"query":       String(),
		"max_results": Field(Int(), WithDefault(3)),
	}

	t.Run("fills defaults", func(t *testing.T) {
		got, err := Apply(search, map[string]any{"query": "golang"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"query": "golang", "max_results": 3}, got)
	})

	t.Run("coerces loose values", func(t *testing.T) {
		got, err := Apply(search, map[string]any{"query": "golang", "max_results": "5"})
		require.NoError(t, err)
		assert.Equal(t, 5, got["max_results"])

		got, err = Apply(search, map[string]any{"query": "golang", "max_results": 2.0})
		require.NoError(t, err)
		assert.Equal(t, 2, got["max_results"])
	})

	t.Run("drops undeclared fields", func(t *testing.T) {
		got, err := Apply(search, map[string]any{"query": "golang", "extra": true})
		require.NoError(t, err)
		assert.NotContains(t, got, "extra")
	})

	t.Run("reports each failing field once", func(t *testing.T) {
		_, err := Apply(search, map[string]any{"max_results": "many"})
		errs := ValidationErrors(err)
		require.Len(t, errs, 2)
		assert.Contains(t, errs[0].Error(), `"max_results"`)
		assert.Contains(t, errs[1].Error(), `"query": required`)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := map[string]any{"query": "golang", "max_results": "4"}
		_, err := Apply(search, in)
		require.NoError(t, err)
		assert.Equal(t, "4", in["max_results"])
	})

	t.Run("empty schema copies input", func(t *testing.T) {
		in := map[string]any{"a": 1}
		got, err := Apply(nil, in)
		require.NoError(t, err)
		got["a"] = 2
		assert.Equal(t, 1, in["a"])
	})
}

func TestValidationError_String(t *testing.T) {
	assert.Equal(t, `field "city": required`, (&ValidationError{Key: "city", Reason: "required"}).Error())
	assert.Equal(t, `field "duration": expected int, got string (got string)`,
		(&ValidationError{Key: "duration", Reason: "expected int, got string", Value: "x"}).Error())
}

func TestAggregateError(t *testing.T) {
	one := &AggregateError{Errors: []error{&ValidationError{Key: "a", Reason: "required"}}}
	assert.Equal(t, `field "a": required`, one.Error())

	two := &AggregateError{Errors: []error{
		&ValidationError{Key: "a", Reason: "required"},
		&ValidationError{Key: "b", Reason: "required"},
	}}
	assert.Equal(t, `2 validation errors: field "a": required; field "b": required`, two.Error())

	wrapped := fmt.Errorf("invalid arguments: %w", two)
	assert.Len(t, ValidationErrors(wrapped), 2)
	var ve *ValidationError
	assert.True(t, errors.As(wrapped, &ve))
	assert.Nil(t, ValidationErrors(errors.New("plain")))
}
