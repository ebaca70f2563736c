package schema

import (
	"maps"
	"slices"
)

// Schema is a map of field names to their expected types.
// Example: {"city": String(), "max_results": Field(Int(), WithDefault(3))}
type Schema map[string]Type

// Keys returns the field names in sorted order.
func (s Schema) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Validate checks if data conforms to the schema.
// Returns an *AggregateError with all validation failures, ordered by field name.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		// No schema = no validation
		return nil
	}

	var errs []error
	for _, fieldName := range schema.Keys() {
		fieldType := schema[fieldName]
		value, exists := data[fieldName]
		if !exists || value == nil {
			if IsRequired(fieldType) {
				errs = append(errs, &ValidationError{Key: fieldName, Reason: "required"})
			}
			continue
		}

		if err := fieldType.Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Apply prepares raw arguments for a handler: missing fields receive their
// declared defaults, values are coerced by types implementing Coercer, and the
// result is validated. Only fields declared in the schema are returned.
// With an empty schema the data is passed through as a copy.
func Apply(schema Schema, data map[string]any) (map[string]any, error) {
	if len(schema) == 0 {
		return maps.Clone(data), nil
	}

	out := make(map[string]any, len(schema))
	var errs []error

	for _, fieldName := range schema.Keys() {
		fieldType := schema[fieldName]
		value, exists := data[fieldName]
		if !exists || value == nil {
			if def, ok := DefaultOf(fieldType); ok {
				out[fieldName] = def
			} else if IsRequired(fieldType) {
				errs = append(errs, &ValidationError{Key: fieldName, Reason: "required"})
			}
			continue
		}

		if c, ok := fieldType.(Coercer); ok {
			coerced, err := c.Coerce(value)
			if err != nil {
				errs = append(errs, &ValidationError{Key: fieldName, Reason: err.Error(), Value: value})
				continue
			}
			value = coerced
		}
		if err := fieldType.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: fieldName, Reason: err.Error(), Value: value})
			continue
		}
		out[fieldName] = value
	}

	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return out, nil
}
