package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DiscordNotifier sends notifications to a Discord webhook.
type DiscordNotifier struct {
	WebhookURL string
	Client     *http.Client
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: 60 * time.Second},
	}
}

type discordPayload struct {
	Content     string              `json:"content"`
	Attachments []discordAttachment `json:"attachments,omitempty"`
}

type discordAttachment struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
}

// Notify sends a message to the configured Discord webhook.
func (n *DiscordNotifier) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(discordPayload{Content: message})
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}
	return n.post(ctx, "application/json", bytes.NewReader(body))
}

// Upload sends a message with the given files attached.
func (n *DiscordNotifier) Upload(ctx context.Context, message string, files ...string) error {
	payload := discordPayload{Content: message}
	for i, path := range files {
		payload.Attachments = append(payload.Attachments, discordAttachment{ID: i, Filename: filepath.Base(path)})
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}
	if err := w.WriteField("payload_json", string(payloadJSON)); err != nil {
		return fmt.Errorf("failed to write discord payload: %w", err)
	}

	for i, path := range files {
		if err := attachFile(w, fmt.Sprintf("files[%d]", i), path); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish discord upload: %w", err)
	}

	return n.post(ctx, w.FormDataContentType(), &buf)
}

func attachFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open attachment: %w", err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create attachment part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to attach %s: %w", path, err)
	}
	return nil
}

func (n *DiscordNotifier) post(ctx context.Context, contentType string, body io.Reader) error {
	if n.WebhookURL == "" {
		return fmt.Errorf("discord webhook URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, body)
	if err != nil {
		return fmt.Errorf("failed to create discord request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send discord notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord notification failed with status: %d", resp.StatusCode)
	}

	return nil
}
