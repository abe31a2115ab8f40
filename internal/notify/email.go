package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// EmailProvider is an interface for sending transactional email
type EmailProvider interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ResendService implements EmailProvider against the Resend API
type ResendService struct {
	APIKey string
	From   string
	http   *http.Client
}

func NewResendService(apiKey, from string) *ResendService {
	return &ResendService{
		APIKey: apiKey,
		From:   from,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Send posts one email. Best effort: callers log failures and move on, the
// digest path is the retry mechanism for deferred sends.
func (s *ResendService) Send(ctx context.Context, to, subject, body string) error {
	if s.APIKey == "" {
		return fmt.Errorf("email provider not configured")
	}

	payload := map[string]interface{}{
		"from":    s.From,
		"to":      []string{to},
		"subject": subject,
		"text":    body,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.resend.com/emails", bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	log.Printf("[Email] sent %q to %s", subject, to)
	return nil
}

// MockEmailService records sends for tests and local development
type MockEmailService struct {
	Sent []MockEmail
	Err  error
}

type MockEmail struct {
	To      string
	Subject string
	Body    string
}

func (m *MockEmailService) Send(_ context.Context, to, subject, body string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, MockEmail{To: to, Subject: subject, Body: body})
	return nil
}
