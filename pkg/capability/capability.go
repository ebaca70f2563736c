// Package capability holds the named, schema-validated actions the workflow can invoke,
// the registry that stores them and the dispatcher that runs them.
package capability

import (
	"context"
	"fmt"

	"github.com/aretw0/switchboard/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

// Capability is an action available to the workflow (weather, scheduling, search, escalation).
// Invoke receives arguments already defaulted, coerced and validated against Schema.
type Capability interface {
	Name() string
	Description() string
	Schema() schema.Schema
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// HandlerFunc is the signature of a plain capability implementation.
type HandlerFunc func(ctx context.Context, args map[string]any) (string, error)

type funcCapability struct {
	name        string
	description string
	schema      schema.Schema
	handler     HandlerFunc
}

// New adapts a function into a Capability.
func New(name, description string, s schema.Schema, handler HandlerFunc) Capability {
	return &funcCapability{
		name:        name,
		description: description,
		schema:      s,
		handler:     handler,
	}
}

func (c *funcCapability) Name() string          { return c.name }
func (c *funcCapability) Description() string   { return c.description }
func (c *funcCapability) Schema() schema.Schema { return c.schema }

func (c *funcCapability) Invoke(ctx context.Context, args map[string]any) (string, error) {
	return c.handler(ctx, args)
}

// Decode copies validated arguments into a typed input struct.
// Fields are matched through `mapstructure` tags.
func Decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("failed to decode arguments: %w", err)
	}
	return nil
}
