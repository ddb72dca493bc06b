package tools

import (
	"context"
	"testing"

	"github.com/Aputze/deep-research/internal/testutil"
	"github.com/Aputze/deep-research/pkg/domain"
)

func TestRegistryRegisterAndExecute(t *testing.T) {
	registry := NewBasicRegistry()
	sender := testutil.NewMockEmailSender()

	if err := registry.Register(NewSendEmailTool(sender)); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Duplicate registration is rejected.
	if err := registry.Register(NewSendEmailTool(sender)); err == nil {
		t.Error("expected error on duplicate registration")
	}

	result, err := registry.Execute(context.Background(), "send_email", map[string]interface{}{
		"subject":   "Research Report",
		"html_body": "<h1>Report</h1>",
	})
	testutil.AssertNoError(t, err, "execute send_email")

	dr, ok := result.(*domain.DeliveryResult)
	if !ok {
		t.Fatalf("expected *domain.DeliveryResult, got %T", result)
	}
	testutil.AssertEqual(t, domain.DeliverySuccess, dr.Status, "delivery status")
	testutil.AssertEqual(t, 1, sender.GetSendCount(), "send count")
	testutil.AssertEqual(t, "Research Report", sender.LastSubject, "subject")
}

func TestRegistryUnknownTool(t *testing.T) {
	registry := NewBasicRegistry()

	_, err := registry.Execute(context.Background(), "missing", nil)
	testutil.AssertError(t, err, "execute unknown tool")
}

func TestSendEmailToolValidatesArgs(t *testing.T) {
	tool := NewSendEmailTool(testutil.NewMockEmailSender())

	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"html_body": "<p>body</p>",
	})
	testutil.AssertError(t, err, "missing subject")

	_, err = tool.Execute(context.Background(), map[string]interface{}{
		"subject": "s",
	})
	testutil.AssertError(t, err, "missing html_body")
}

func TestSendEmailToolSchema(t *testing.T) {
	tool := NewSendEmailTool(testutil.NewMockEmailSender())
	schema := tool.Schema()

	testutil.AssertEqual(t, "send_email", schema.Name, "schema name")
	testutil.AssertEqual(t, 2, len(schema.Required), "required fields")
	if _, ok := schema.Properties["subject"]; !ok {
		t.Error("schema missing subject property")
	}
	if _, ok := schema.Properties["html_body"]; !ok {
		t.Error("schema missing html_body property")
	}
}
