package domain

import (
	"context"
)

// CompletionClient defines the interface to the generative completion service.
// The pipeline treats it as a black box: submit messages, get content or tool
// calls back.
type CompletionClient interface {
	// Chat performs a chat completion
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResponse, error)

	// CheckHealth verifies the completion service is reachable
	CheckHealth(ctx context.Context) error
}

// EmailSender defines the interface for the email delivery provider.
// Missing credentials are reported as a DeliveryResult with DeliveryError,
// not as a returned error.
type EmailSender interface {
	Send(ctx context.Context, subject, htmlBody string) (*DeliveryResult, error)
}

// Tool defines one side-effecting action the completion service may invoke
type Tool interface {
	// Name returns the tool name
	Name() string

	// Description returns the tool description
	Description() string

	// Execute executes the tool with given arguments
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)

	// Schema returns the tool's declared parameter schema
	Schema() ToolSchema
}

// ToolRegistry manages available tools. Schemas are declared statically at
// registration; dispatch is a name lookup, never reflection.
type ToolRegistry interface {
	// Register registers a new tool
	Register(tool Tool) error

	// Get retrieves a tool by name
	Get(name string) (Tool, error)

	// List returns all available tools
	List() []Tool

	// Execute executes a tool by name
	Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
}

// OutputFormat selects the expected shape of a completion response
type OutputFormat string

const (
	FormatText OutputFormat = ""
	FormatJSON OutputFormat = "json"
)

// ChatOptions provides options for chat completions
type ChatOptions struct {
	Model       string       `json:"model,omitempty"`
	Temperature float64      `json:"temperature,omitempty"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Format      OutputFormat `json:"format,omitempty"`
	Tools       []ToolSchema `json:"tools,omitempty"`
}

// ChatResponse represents a chat completion response
type ChatResponse struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	Usage        TokenUsage `json:"usage"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// ToolSchema is the static declaration of a tool's name and parameters
type ToolSchema struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Type        string                    `json:"type"`
	Properties  map[string]SchemaProperty `json:"properties"`
	Required    []string                  `json:"required,omitempty"`
}

// SchemaProperty defines a property in a tool schema
type SchemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}
