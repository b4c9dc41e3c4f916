package tools

import (
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolGroupFactory creates a group of related tools sharing ctx.
type ToolGroupFactory func(ctx *Context) []*ServerTool

// Registry holds the tools to expose, in registration order.
type Registry struct {
	mu     sync.RWMutex
	ctx    *Context
	order  []*ServerTool
	byName map[string]*ServerTool
}

// NewRegistry creates an empty registry. Factories passed to RegisterGroup
// receive ctx.
func NewRegistry(ctx *Context) *Registry {
	return &Registry{
		ctx:    ctx,
		byName: make(map[string]*ServerTool),
	}
}

// Register adds tool. Names must be non-empty and unique.
func (r *Registry) Register(tool *ServerTool) error {
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("tool %s is already registered", name)
	}
	r.byName[name] = tool
	r.order = append(r.order, tool)
	return nil
}

// RegisterGroup registers every tool built by factory.
func (r *Registry) RegisterGroup(factory ToolGroupFactory) error {
	for _, tool := range factory(r.ctx) {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (*ServerTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.byName[name]
	return tool, ok
}

// List returns the tool names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	for i, tool := range r.order {
		names[i] = tool.Name()
	}
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Validate reports the first tool missing a description or binder.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, tool := range r.order {
		switch {
		case tool.Tool.Description == "":
			return fmt.Errorf("tool %s has empty description", tool.Name())
		case tool.RegisterFunc == nil:
			return fmt.Errorf("tool %s has nil register function", tool.Name())
		}
	}
	return nil
}

// Install adds every tool to server and returns their names.
func (r *Registry) Install(server *mcp.Server) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var logger Logger
	if r.ctx != nil {
		logger = r.ctx.Logger
	}

	names := make([]string, 0, len(r.order))
	for _, tool := range r.order {
		tool.RegisterFunc(server, logger)
		names = append(names, tool.Name())
	}
	return names
}
