package task

import "context"

// Handler is a named capability. Run executes one binding and returns nil on
// success; any error fails the step that scheduled it.
type Handler interface {
	Run(ctx context.Context, b Binding) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, b Binding) error

// Run calls f.
func (f HandlerFunc) Run(ctx context.Context, b Binding) error { return f(ctx, b) }

// Describer is implemented by handlers that can describe themselves for `tasks`.
type Describer interface {
	Description() string
}
