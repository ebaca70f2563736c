package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Type defines the contract for field validation.
// Implementations determine how values are validated against a type.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "int").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// Coercer is implemented by types that can convert loosely typed input
// (JSON numbers, numeric strings) into their canonical Go representation.
type Coercer interface {
	Coerce(value any) (any, error)
}

// --- Built-in Type Implementations ---

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

// IntType validates integer values.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return nil
	case float64:
		// JSON decoding yields float64 for every number.
		if v == math.Trunc(v) {
			return nil
		}
		return fmt.Errorf("expected int, got float (not a whole number)")
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
}

// Coerce converts whole floats, json.Number and numeric strings to int.
func (t *IntType) Coerce(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int8, int16, int32, int64:
		return int(reflect.ValueOf(v).Int()), nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("expected int, got float (not a whole number)")
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("expected int, got %q", v.String())
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("expected int, got %q", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("expected int, got %T", value)
	}
}

// FloatType validates floating-point values.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64:
		return nil
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
}

// Coerce converts numbers and numeric strings to float64.
func (t *FloatType) Coerce(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int, int8, int16, int32, int64:
		return float64(reflect.ValueOf(v).Int()), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("expected float, got %q", v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("expected float, got %T", value)
	}
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

// Coerce accepts "true"/"false" style strings.
func (t *BoolType) Coerce(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("expected bool, got %q", v)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("expected bool, got %T", value)
	}
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected slice, got %T", value)
	}

	for i := 0; i < rv.Len(); i++ {
		if err := t.elemType.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

// FieldType decorates a Type with documentation and presence rules.
// It is transparent for validation: Name and Validate delegate to the wrapped type.
type FieldType struct {
	Type
	description string
	optional    bool
	def         any
	hasDefault  bool
}

// Coerce delegates to the wrapped type when it supports coercion.
func (f *FieldType) Coerce(value any) (any, error) {
	if c, ok := f.Type.(Coercer); ok {
		return c.Coerce(value)
	}
	return value, nil
}

// FieldOption configures a FieldType.
type FieldOption func(*FieldType)

// WithDescription documents the field for prompts and tool listings.
func WithDescription(desc string) FieldOption {
	return func(f *FieldType) {
		f.description = desc
	}
}

// WithDefault makes the field optional and fills in v when it is missing.
func WithDefault(v any) FieldOption {
	return func(f *FieldType) {
		f.def = v
		f.hasDefault = true
		f.optional = true
	}
}

// Optional allows the field to be absent.
func Optional() FieldOption {
	return func(f *FieldType) {
		f.optional = true
	}
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Float creates a float type validator.
func Float() Type { return &FloatType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: validate}
}

// Field wraps t with a description, default or optionality.
func Field(t Type, opts ...FieldOption) Type {
	f := &FieldType{Type: t}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Describe returns the description attached with WithDescription, if any.
func Describe(t Type) string {
	if f, ok := t.(*FieldType); ok {
		return f.description
	}
	return ""
}

// IsRequired reports whether a value must be supplied for t.
func IsRequired(t Type) bool {
	if f, ok := t.(*FieldType); ok {
		return !f.optional
	}
	return true
}

// DefaultOf returns the default value of t and whether one is declared.
func DefaultOf(t Type) (any, bool) {
	if f, ok := t.(*FieldType); ok && f.hasDefault {
		return f.def, true
	}
	return nil, false
}

// ParseType converts a string type name to a Type.
// Supports basic types: "string", "int", "float", "bool", "[string]", "[int]", etc.
// A trailing "?" marks the type optional ("int?").
func ParseType(typeStr string) (Type, error) {
	if base, ok := strings.CutSuffix(typeStr, "?"); ok {
		t, err := ParseType(base)
		if err != nil {
			return nil, err
		}
		return Field(t, Optional()), nil
	}

	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elemType, err := ParseType(typeStr[1 : len(typeStr)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elemType), nil
	}

	switch typeStr {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}

// ParseTypeMap converts a map of field names to type strings into a Schema.
// Example: {"city": "string", "max_results": "int?"}
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema)
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}
