package tools

import (
	"context"
	"fmt"

	"github.com/Aputze/deep-research/pkg/domain"
)

// SendEmailTool exposes the email provider to the deliverer as a callable
// tool. Missing credentials surface as an error-status result, not a Go
// error, so the pipeline treats them as an absorbed delivery failure.
type SendEmailTool struct {
	sender domain.EmailSender
}

// NewSendEmailTool creates the send_email tool backed by the given provider
func NewSendEmailTool(sender domain.EmailSender) *SendEmailTool {
	return &SendEmailTool{sender: sender}
}

// Name returns the tool name
func (t *SendEmailTool) Name() string {
	return "send_email"
}

// Description returns the tool description
func (t *SendEmailTool) Description() string {
	return "Send an email with the given subject and HTML body"
}

// Execute sends one email through the configured provider
func (t *SendEmailTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	subject, ok := args["subject"].(string)
	if !ok || subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	htmlBody, ok := args["html_body"].(string)
	if !ok || htmlBody == "" {
		return nil, fmt.Errorf("html_body is required")
	}

	return t.sender.Send(ctx, subject, htmlBody)
}

// Schema returns the tool's parameter schema
func (t *SendEmailTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        "send_email",
		Description: "Send an email with the given subject and HTML body",
		Type:        "object",
		Properties: map[string]domain.SchemaProperty{
			"subject": {
				Type:        "string",
				Description: "The email subject line",
			},
			"html_body": {
				Type:        "string",
				Description: "The email body as clean, well presented HTML",
			},
		},
		Required: []string{"subject", "html_body"},
	}
}
