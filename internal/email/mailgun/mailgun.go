package mailgun

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/raicesdev/bienesraices/internal/email"
	"github.com/raicesdev/bienesraices/internal/krypto"
)

// Settings contains the settings for the Mailgun API.
type Settings struct {
	// APIHost is the bare API hostname, Send adds the scheme.
	APIHost  string
	Domain   string
	Username string
	Password krypto.Secret
}

// Sender is an email sender that sends emails using the Mailgun API.
type Sender struct {
	client   *http.Client
	settings Settings
}

// NewSender creates a new sender.
func NewSender(client *http.Client, s Settings) *Sender {
	return &Sender{
		client:   client,
		settings: s,
	}
}

// Send sends an email using the Mailgun API.
// We POST to the HTTP API directly instead of using the Go mailgun package,
// because the package brings in a lot of dependencies we don't need.
func (s *Sender) Send(ctx context.Context, from, recipient email.Address, subject, body string) error {
	// Map the input fields to a multipart form.
	data := map[string]io.Reader{
		"from":    strings.NewReader(string(from)),
		"to":      strings.NewReader(string(recipient)),
		"subject": strings.NewReader(subject),
		"text":    strings.NewReader(body),
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, v := range data {
		ff, err := w.CreateFormField(field)
		if err != nil {
			return err
		}
		if _, err := io.Copy(ff, v); err != nil {
			return err
		}
	}

	if err := w.Close(); err != nil {
		return err
	}

	reqURL := fmt.Sprintf("https://%s/v3/%s/messages", s.settings.APIHost, s.settings.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", w.FormDataContentType())
	req.SetBasicAuth(s.settings.Username, string(s.settings.Password.SecretValue()))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	resBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request did not succeed %d: %v", resp.StatusCode, string(resBody))
	}

	return nil
}
