package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	tapi "github.com/airenas/docbuddy/internal/pkg/transcriber/api"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
)

// Client comunicates with speech-to-text service
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	model      string
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewClient creates a speech-to-text client, retries = 0 - a failure is returned to the caller at once
func NewClient(url, key, model string, retries uint64) (*Client, error) {
	res := Client{}
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	if key == "" {
		return nil, fmt.Errorf("no key")
	}
	res.url = url
	res.key = key
	res.model = model
	if res.model == "" {
		res.model = "scribe_v1"
	}
	res.timeout = time.Minute * 10
	res.httpclient = &http.Client{Transport: newTransport()}
	res.backoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries)
	}
	goapp.Log.Info().Str("url", url).Str("model", res.model).Uint64("retries", retries).Msg("speech-to-text")
	return &res, nil
}

// Transcribe sends audio and returns diarized words
func (sp *Client) Transcribe(ctx context.Context, audio *tapi.Audio) (*tapi.Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", audio.Name)
	if err != nil {
		return nil, fmt.Errorf("can't add file to request: %w", err)
	}
	if _, err = part.Write(audio.Content); err != nil {
		return nil, fmt.Errorf("can't add file content to request: %w", err)
	}
	params := [][2]string{{"model_id", sp.model}, {"diarize", "true"}}
	if audio.Language != "" {
		params = append(params, [2]string{"language_code", audio.Language})
	}
	for _, p := range params {
		if err := writer.WriteField(p[0], p[1]); err != nil {
			return nil, fmt.Errorf("can't add param: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("can't close multipart: %w", err)
	}
	data := body.Bytes()

	return goapp.InvokeWithBackoff(ctx, func() (*tapi.Result, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
		defer cancelF()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sp.url, bytes.NewReader(data))
		if err != nil {
			return nil, false, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("xi-api-key", sp.key)
		goapp.Log.Info().Str("url", req.URL.String()).Int("size", len(audio.Content)).
			Str("language", audio.Language).Msg("call")
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return nil, goapp.IsRetryableCode(resp.StatusCode), err
		}
		var res tapi.Result
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't decode response: %w", err)
		}
		goapp.Log.Info().Int("words", len(res.Words)).Str("language", res.LanguageCode).Msg("transcribed")
		return &res, false, nil
	}, sp.backoff())
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 20
	res.MaxIdleConns = 10
	res.MaxIdleConnsPerHost = 10
	res.IdleConnTimeout = 90 * time.Second
	return res
}
