package inform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jordan-wright/email"
	"github.com/spf13/viper"
)

// fakeEmailSender posts the e-mail to a test endpoint instead of smtp
type fakeEmailSender struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

type fakeEmail struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

// NewFakeEmailSender initiates email sender from smtp.fakeUrl
func NewFakeEmailSender(c *viper.Viper) (*fakeEmailSender, error) {
	r := fakeEmailSender{client: &http.Client{}, timeout: c.GetDuration("smtp.fakeTimeout")}
	r.url = c.GetString("smtp.fakeUrl")
	if r.url == "" {
		return nil, fmt.Errorf("no URL")
	}
	if r.timeout <= 0 {
		r.timeout = time.Second * 5
	}
	goapp.Log.Info().Str("URL", r.url).Dur("timeout", r.timeout).Msg("Fake sender")
	return &r, nil
}

// Send posts email as json
func (s *fakeEmailSender) Send(e *email.Email) error {
	body, err := json.Marshal(fakeEmail{To: e.To, Subject: e.Subject, Text: string(e.Text), HTML: string(e.HTML)})
	if err != nil {
		return fmt.Errorf("can't marshal email: %w", err)
	}
	ctx, cancelF := context.WithTimeout(context.Background(), s.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("can't prepare request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	goapp.Log.Info().Str("url", req.URL.String()).Strs("to", e.To).Msg("call")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	return nil
}
