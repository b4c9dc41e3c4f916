package tools

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// errorPrefix starts the text of every IsError result.
const errorPrefix = "Error: "

// Text returns a result with one text block per message.
func Text(messages ...string) *mcp.CallToolResultFor[any] {
	return NewResult().Add(messages...).Build()
}

// Textf returns a single-block result with a formatted message.
func Textf(format string, args ...any) *mcp.CallToolResultFor[any] {
	return Text(fmt.Sprintf(format, args...))
}

// Errorf returns a tool-level failure. The client sees it as text with
// IsError set; it is never a protocol error.
func Errorf(format string, args ...any) *mcp.CallToolResultFor[any] {
	result := Text(errorPrefix + fmt.Sprintf(format, args...))
	result.IsError = true
	return result
}

// ValidationError reports a rejected argument.
func ValidationError(field string, err error) *mcp.CallToolResultFor[any] {
	return Errorf("%s validation failed: %v", field, err)
}

// WrapError reports a failed action, such as a store write.
func WrapError(err error, action string) *mcp.CallToolResultFor[any] {
	return Errorf("%s: %v", action, err)
}

// Result accumulates the text blocks and metadata of a tool result.
type Result struct {
	blocks []string
	meta   map[string]any
}

// NewResult starts an empty result.
func NewResult() *Result {
	return &Result{}
}

// Add appends one text block per message.
func (r *Result) Add(messages ...string) *Result {
	r.blocks = append(r.blocks, messages...)
	return r
}

// Meta attaches a metadata entry.
func (r *Result) Meta(key string, value any) *Result {
	if r.meta == nil {
		r.meta = make(map[string]any)
	}
	r.meta[key] = value
	return r
}

// Build converts the accumulated blocks to an MCP result.
func (r *Result) Build() *mcp.CallToolResultFor[any] {
	content := make([]mcp.Content, len(r.blocks))
	for i, text := range r.blocks {
		content[i] = &mcp.TextContent{Text: text}
	}
	result := &mcp.CallToolResultFor[any]{Content: content}
	if r.meta != nil {
		result.Meta = r.meta
	}
	return result
}

// Texts returns the text of every text block in result, in order.
func Texts(result *mcp.CallToolResultFor[any]) []string {
	if result == nil {
		return nil
	}

	texts := make([]string, 0, len(result.Content))
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return texts
}
