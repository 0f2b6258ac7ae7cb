package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
)

const (
	noDiagnosis    = "No diagnosis suggestion available"
	noPrescription = "No prescription suggestion available"
	formatPrompt   = "\n\nPlease provide the diagnosis and prescription in the following format:\nDiagnosis: <diagnosis>\nPrescription: <prescription>"
)

// Input is the analysis request
type Input struct {
	Transcript    string
	ClinicPrompt  string
	SummaryPrompt string
}

// Result keeps AI suggestions
type Result struct {
	Summary               string
	SuggestedDiagnosis    string
	SuggestedPrescription string
}

// Client calls OpenAI compatible chat completion API
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	model      string
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewClient creates analysis client
func NewClient(url, key, model string, retries uint64) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	if key == "" {
		return nil, fmt.Errorf("no key")
	}
	res := &Client{url: url, key: key, model: model, timeout: time.Minute * 3,
		httpclient: &http.Client{}}
	if res.model == "" {
		res.model = "deepseek-chat"
	}
	res.backoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries)
	}
	goapp.Log.Info().Str("url", url).Str("model", res.model).Msg("analysis")
	return res, nil
}

// Analyze makes summary and diagnosis/prescription suggestions
func (c *Client) Analyze(ctx context.Context, in *Input) (*Result, error) {
	defer goapp.Estimate("analyze")()
	summary, err := c.complete(ctx, in.SummaryPrompt, in.Transcript)
	if err != nil {
		return nil, fmt.Errorf("can't make summary: %w", err)
	}
	resp, err := c.complete(ctx, in.ClinicPrompt+formatPrompt, in.Transcript)
	if err != nil {
		return nil, fmt.Errorf("can't make diagnosis: %w", err)
	}
	res := &Result{Summary: strings.TrimSpace(summary)}
	res.SuggestedDiagnosis, res.SuggestedPrescription = parseSuggestions(resp)
	return res, nil
}

func parseSuggestions(s string) (string, string) {
	diagnosis, prescription := noDiagnosis, noPrescription
	if i := strings.Index(s, "Diagnosis:"); i >= 0 {
		d := s[i+len("Diagnosis:"):]
		if j := strings.Index(d, "Prescription:"); j >= 0 {
			d = d[:j]
		}
		diagnosis = strings.TrimSpace(d)
	}
	if i := strings.Index(s, "Prescription:"); i >= 0 {
		prescription = strings.TrimSpace(s[i+len("Prescription:"):])
	}
	return diagnosis, prescription
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type response struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	b, err := json.Marshal(request{Model: c.model, Messages: []message{{Role: "system", Content: system},
		{Role: "user", Content: user}}})
	if err != nil {
		return "", fmt.Errorf("can't marshal: %w", err)
	}
	return goapp.InvokeWithBackoff(ctx, func() (string, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, c.timeout)
		defer cancelF()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
		if err != nil {
			return "", false, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.key)
		goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
		resp, err := c.httpclient.Do(req)
		if err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return "", goapp.IsRetryableCode(resp.StatusCode), err
		}
		var res response
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't decode response: %w", err)
		}
		if len(res.Choices) == 0 {
			return "", false, fmt.Errorf("no choices in response")
		}
		return res.Choices[0].Message.Content, false, nil
	}, c.backoff())
}
