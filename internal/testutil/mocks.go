package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Aputze/deep-research/pkg/domain"
)

// MockCompletionClient is a mock implementation of CompletionClient for testing
type MockCompletionClient struct {
	mu           sync.Mutex
	Responses    map[string]string
	CallCount    int
	LastMessages []domain.Message
	LastOptions  domain.ChatOptions
	ShouldError  bool
	ErrorMessage string
	// ChatFunc allows custom chat behavior for tests
	ChatFunc func(ctx context.Context, messages []domain.Message, opts domain.ChatOptions) (*domain.ChatResponse, error)
}

// NewMockCompletionClient creates a new mock completion client
func NewMockCompletionClient() *MockCompletionClient {
	return &MockCompletionClient{
		Responses: make(map[string]string),
	}
}

// Chat implements domain.CompletionClient
func (m *MockCompletionClient) Chat(ctx context.Context, messages []domain.Message, opts domain.ChatOptions) (*domain.ChatResponse, error) {
	// If ChatFunc is provided, take the lock only for bookkeeping so
	// concurrent tests can drive custom behavior.
	if m.ChatFunc != nil {
		m.mu.Lock()
		m.CallCount++
		m.LastMessages = messages
		m.LastOptions = opts
		m.mu.Unlock()
		return m.ChatFunc(ctx, messages, opts)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastMessages = messages
	m.LastOptions = opts

	if m.ShouldError {
		return nil, fmt.Errorf("%s", m.ErrorMessage)
	}

	var content string
	if len(messages) > 0 {
		lastMsg := messages[len(messages)-1]
		if resp, ok := m.Responses[lastMsg.Content]; ok {
			content = resp
		} else if resp, ok := m.Responses["default"]; ok {
			content = resp
		} else {
			content = "Mock response"
		}
	}

	return &domain.ChatResponse{
		Content: content,
		Usage: domain.TokenUsage{
			PromptTokens:     50,
			CompletionTokens: 50,
			TotalTokens:      100,
		},
		FinishReason: "stop",
	}, nil
}

// CheckHealth implements domain.CompletionClient
func (m *MockCompletionClient) CheckHealth(ctx context.Context) error {
	if m.ShouldError {
		return fmt.Errorf("%s", m.ErrorMessage)
	}
	return nil
}

// GetCallCount returns the number of Chat calls made
func (m *MockCompletionClient) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// MockEmailSender is a mock implementation of EmailSender
type MockEmailSender struct {
	mu          sync.Mutex
	SendCount   int
	LastSubject string
	LastBody    string
	Result      *domain.DeliveryResult
	Err         error
}

// NewMockEmailSender creates a mock sender that reports success
func NewMockEmailSender() *MockEmailSender {
	return &MockEmailSender{
		Result: &domain.DeliveryResult{Status: domain.DeliverySuccess},
	}
}

// Send implements domain.EmailSender
func (m *MockEmailSender) Send(ctx context.Context, subject, htmlBody string) (*domain.DeliveryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendCount++
	m.LastSubject = subject
	m.LastBody = htmlBody
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// GetSendCount returns the number of Send calls made
func (m *MockEmailSender) GetSendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SendCount
}

// MockToolRegistry is a mock implementation of ToolRegistry
type MockToolRegistry struct {
	mu    sync.Mutex
	tools map[string]domain.Tool
}

// NewMockToolRegistry creates a new mock tool registry
func NewMockToolRegistry() *MockToolRegistry {
	return &MockToolRegistry{
		tools: make(map[string]domain.Tool),
	}
}

// Register implements domain.ToolRegistry
func (r *MockToolRegistry) Register(tool domain.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	return nil
}

// Get implements domain.ToolRegistry
func (r *MockToolRegistry) Get(name string) (domain.Tool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool, nil
}

// List implements domain.ToolRegistry
func (r *MockToolRegistry) List() []domain.Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	tools := make([]domain.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	return tools
}

// Execute implements domain.ToolRegistry
func (r *MockToolRegistry) Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	tool, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return tool.Execute(ctx, args)
}

// MockTool is a mock implementation of Tool
type MockTool struct {
	ToolName        string
	ToolDescription string
	ExecuteFunc     func(context.Context, map[string]interface{}) (interface{}, error)
}

// Name implements domain.Tool
func (t *MockTool) Name() string {
	return t.ToolName
}

// Description implements domain.Tool
func (t *MockTool) Description() string {
	return t.ToolDescription
}

// Execute implements domain.Tool
func (t *MockTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if t.ExecuteFunc != nil {
		return t.ExecuteFunc(ctx, args)
	}
	return "mock result", nil
}

// Schema implements domain.Tool
func (t *MockTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:       t.ToolName,
		Type:       "object",
		Properties: make(map[string]domain.SchemaProperty),
	}
}
