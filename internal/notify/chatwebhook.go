package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChatMessage is a structured chat-webhook payload: a header line, detail
// sections, and a context footer.
type ChatMessage struct {
	Channel  string
	Header   string
	Sections []string
	Fields   map[string]string
	Context  string
}

// ChatProvider is an interface for posting to a team chat webhook
type ChatProvider interface {
	Post(ctx context.Context, msg ChatMessage) error
}

// SlackWebhookService implements ChatProvider against a Slack incoming
// webhook URL using block kit formatting.
type SlackWebhookService struct {
	WebhookURL string
	http       *http.Client
}

func NewSlackWebhookService(webhookURL string) *SlackWebhookService {
	return &SlackWebhookService{
		WebhookURL: webhookURL,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SlackWebhookService) Post(ctx context.Context, msg ChatMessage) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("chat webhook not configured")
	}

	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]string{"type": "plain_text", "text": msg.Header},
		},
	}
	for _, section := range msg.Sections {
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"text": map[string]string{"type": "mrkdwn", "text": section},
		})
	}
	if len(msg.Fields) > 0 {
		var fields []map[string]string
		for k, v := range msg.Fields {
			fields = append(fields, map[string]string{"type": "mrkdwn", "text": "*" + k + ":* " + v})
		}
		blocks = append(blocks, map[string]interface{}{"type": "section", "fields": fields})
	}
	if msg.Context != "" {
		blocks = append(blocks, map[string]interface{}{
			"type":     "context",
			"elements": []map[string]string{{"type": "mrkdwn", "text": msg.Context}},
		})
	}

	payload := map[string]interface{}{
		"channel": msg.Channel,
		"blocks":  blocks,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("post chat message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat webhook error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// MockChatService records posts for tests and local development
type MockChatService struct {
	Posted []ChatMessage
	Err    error
}

func (m *MockChatService) Post(_ context.Context, msg ChatMessage) error {
	if m.Err != nil {
		return m.Err
	}
	m.Posted = append(m.Posted, msg)
	return nil
}
