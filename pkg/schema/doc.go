// Package schema provides a small type system for validating capability arguments.
//
// It defines built-in types (string, int, float, bool), slices and custom
// validators. Schemas map field names to types. Fields can be documented, made
// optional or given defaults with Field:
//
//	args := schema.Schema{
//	    "query":       schema.Field(schema.String(), schema.WithDescription("Search query")),
//	    "max_results": schema.Field(schema.Int(), schema.WithDefault(3)),
//	}
//
// Validate only checks data. Apply is what dispatchers use: it fills defaults,
// coerces loosely typed values (JSON numbers, numeric strings) and validates,
// returning a clean argument map:
//
//	clean, err := schema.Apply(args, map[string]any{"query": "golang", "max_results": "5"})
//	// clean["max_results"] == 5
//
// Failures are reported as an *AggregateError of *ValidationError, ordered by field name.
//
// Schemas serialize to and from a map of type names ("int", "[string]", "int?").
package schema
