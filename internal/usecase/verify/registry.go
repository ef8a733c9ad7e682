package verify

// Registry is the static mapping from tool name to verifier adapter plus its
// declared parameter schema. It serves two purposes: telling the model which
// tools exist, and dispatching the model's tool-call requests.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

// NewRegistry builds a registry from the given tools. Registration order is
// preserved in the schema listing.
func NewRegistry(tools ...Tool) *Registry {
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}
	return &Registry{tools: tools, byName: byName}
}

// Schemas returns the declared tool schemas in registration order.
func (r *Registry) Schemas() []ToolSchema {
	schemas := make([]ToolSchema, len(r.tools))
	for i, t := range r.tools {
		schemas[i] = ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}
	}
	return schemas
}

// Lookup resolves a tool name from a model tool-call request.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name()
	}
	return names
}
