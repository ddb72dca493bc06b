package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Aputze/deep-research/pkg/domain"
)

func TestSendSuccess(t *testing.T) {
	var gotPath, gotUser string
	var gotReq mailjetRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Messages":[{"Status":"success"}]}`))
	}))
	defer server.Close()

	client := NewMailjetClient(MailjetOptions{
		BaseURL:     server.URL,
		APIKey:      "key",
		APISecret:   "secret",
		FromAddress: "sender@example.com",
		FromName:    "Deep Research",
		ToAddress:   "recipient@example.com",
	})

	result, err := client.Send(context.Background(), "Research Report", "<h1>Report</h1>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.DeliverySuccess {
		t.Errorf("expected success status, got %s", result.Status)
	}

	if gotPath != "/v3.1/send" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotUser != "key" {
		t.Errorf("unexpected basic auth user: %s", gotUser)
	}
	if len(gotReq.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(gotReq.Messages))
	}
	msg := gotReq.Messages[0]
	if msg.Subject != "Research Report" {
		t.Errorf("unexpected subject: %s", msg.Subject)
	}
	if msg.From.Email != "sender@example.com" || msg.From.Name != "Deep Research" {
		t.Errorf("unexpected from: %+v", msg.From)
	}
	if len(msg.To) != 1 || msg.To[0].Email != "recipient@example.com" {
		t.Errorf("unexpected to: %+v", msg.To)
	}
}

func TestSendMissingCredentials(t *testing.T) {
	client := NewMailjetClient(MailjetOptions{
		FromAddress: "sender@example.com",
		ToAddress:   "recipient@example.com",
	})

	result, err := client.Send(context.Background(), "subject", "<p>body</p>")
	if err != nil {
		t.Fatalf("missing credentials must not be a returned error, got: %v", err)
	}
	if result.Status != domain.DeliveryError {
		t.Errorf("expected error status, got %s", result.Status)
	}
	if result.Message == "" {
		t.Error("expected a message explaining the missing configuration")
	}
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ErrorMessage":"bad credentials"}`))
	}))
	defer server.Close()

	client := NewMailjetClient(MailjetOptions{
		BaseURL:   server.URL,
		APIKey:    "key",
		APISecret: "wrong",
	})

	result, err := client.Send(context.Background(), "subject", "<p>body</p>")
	if err != nil {
		t.Fatalf("API status errors are results, not errors: %v", err)
	}
	if result.Status != domain.DeliveryError {
		t.Errorf("expected error status, got %s", result.Status)
	}
}

func TestSendTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewMailjetClient(MailjetOptions{
		BaseURL:   server.URL,
		APIKey:    "key",
		APISecret: "secret",
	})

	_, err := client.Send(context.Background(), "subject", "<p>body</p>")
	if err == nil {
		t.Fatal("expected transport error")
	}
	var se *domain.ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServiceError, got %T", err)
	}
	if se.Service != "email" {
		t.Errorf("unexpected service: %s", se.Service)
	}
}
