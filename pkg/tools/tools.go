package tools

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownTool is returned when a requested tool name is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Descriptor is a registered capability: a callable plus the metadata the
// model needs to invoke it and the policy the gate needs to run it.
type Descriptor struct {
	Name        string
	Description string

	// Schema is a JSON-schema style description of the accepted arguments.
	Schema map[string]any

	Execute func(ctx context.Context, args map[string]any) (string, error)

	// RequiresConfirmation decides, per call, whether the user must approve
	// before execution. Nil means the tool never asks.
	RequiresConfirmation func(args map[string]any) bool

	// FormatResult optionally transforms the raw result for display. The raw
	// result is always what gets fed back to the model.
	FormatResult func(result string) string
}

// Declaration is the model-facing subset of a descriptor.
type Declaration struct {
	Name        string
	Description string
	Schema      map[string]any
}

// Registry holds the available tools in registration order. Re-registering a
// name overwrites the descriptor but keeps the original position, so external
// providers can shadow a tool without reordering the declarations sent to the
// model.
type Registry struct {
	order []string
	tools map[string]*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Descriptor),
	}
}

// Register adds a tool. Last writer wins on name collisions.
func (r *Registry) Register(d *Descriptor) {
	if _, exists := r.tools[d.Name]; !exists {
		r.order = append(r.order, d.Name)
	}
	r.tools[d.Name] = d
}

// Get returns the descriptor for name.
func (r *Registry) Get(name string) (*Descriptor, error) {
	d, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return d, nil
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Declarations returns the model-facing view of all tools, in registration
// order. The order is stable across calls so the model sees a consistent
// tool list within a session.
func (r *Registry) Declarations() []Declaration {
	decls := make([]Declaration, 0, len(r.order))
	for _, name := range r.order {
		d := r.tools[name]
		decls = append(decls, Declaration{
			Name:        d.Name,
			Description: d.Description,
			Schema:      d.Schema,
		})
	}
	return decls
}

// NeedsConfirmation reports whether the named tool requires user approval for
// the given arguments. Unknown tools require confirmation.
func (r *Registry) NeedsConfirmation(name string, args map[string]any) bool {
	d, ok := r.tools[name]
	if !ok {
		return true
	}
	if d.RequiresConfirmation == nil {
		return false
	}
	return d.RequiresConfirmation(args)
}
