//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/airenas/docbuddy/internal/pkg/test"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type config struct {
	draftURL   string
	sessionURL string
	accountURL string
	dbURL      string
	httpclient *http.Client
}

var cfg config

func TestMain(m *testing.M) {
	cfg.draftURL = GetEnvOrFail("DRAFT_URL")
	cfg.sessionURL = GetEnvOrFail("SESSION_URL")
	cfg.accountURL = GetEnvOrFail("ACCOUNT_URL")
	cfg.dbURL = GetEnvOrFail("DB_URL")
	cfg.httpclient = &http.Client{Timeout: time.Second * 30}

	tCtx, cf := context.WithTimeout(context.Background(), time.Second*20)
	defer cf()
	WaitForOpenOrFail(tCtx, cfg.dbURL)
	WaitForOpenOrFail(tCtx, cfg.draftURL)
	WaitForOpenOrFail(tCtx, cfg.sessionURL)
	WaitForOpenOrFail(tCtx, cfg.accountURL)
	waitForDB(tCtx, cfg.dbURL)

	// speech-to-text and analysis providers are mocked, services are configured to call this port
	l, ts := startMockService(9876)
	defer ts.Close()
	defer l.Close()

	os.Exit(m.Run())
}

func TestLive(t *testing.T) {
	t.Parallel()
	for _, u := range []string{cfg.draftURL, cfg.sessionURL, cfg.accountURL} {
		test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, u, "/live", "", nil)),
			http.StatusOK)
	}
}

func TestDraft_NoUser(t *testing.T) {
	t.Parallel()
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.draftURL, "/drafts", "", nil)),
		http.StatusUnauthorized)
}

func TestDraft_Create_NoAudio(t *testing.T) {
	t.Parallel()
	req := newAudioRequest(t, newUser(), http.MethodPost, "/drafts", "")
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, req), http.StatusBadRequest)
}

type draftResponse struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
}

type sessionResponse struct {
	ID          string `json:"id"`
	DocumentURL string `json:"documentUrl"`
}

type usageResponse struct {
	MinutesUsed float64 `json:"minutesUsed"`
	Limit       float64 `json:"limit"`
}

func TestDraft_Flow(t *testing.T) {
	t.Parallel()
	user := newUser()
	resp := test.CheckCode(t, test.Invoke(t, cfg.httpclient,
		newAudioRequest(t, user, http.MethodPost, "/drafts", "rec.webm")), http.StatusCreated)
	d := test.Decode[draftResponse](t, resp)
	require.NotEmpty(t, d.ID)
	assert.Equal(t, "EDITING", d.State)

	resp = test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPost, cfg.draftURL,
		"/drafts/"+d.ID+"/transcribe", user, map[string]string{"language": "en"})), http.StatusOK)
	d = test.Decode[draftResponse](t, resp)
	assert.Equal(t, "FINALIZING", d.State)
	assert.Equal(t, "Speaker speaker_0: labas\n\nSpeaker speaker_1: olia", d.Transcript)
	assert.Equal(t, "summary", d.Summary)

	resp = test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPost, cfg.draftURL,
		"/drafts/"+d.ID+"/finalize", user, map[string]string{"patientName": "Jonas", "patientAge": "42",
			"finalDiagnosis": "flu", "finalPrescription": "rest"})), http.StatusCreated)
	s := test.Decode[sessionResponse](t, resp)
	require.NotEmpty(t, s.ID)
	assert.NotEmpty(t, s.DocumentURL)

	test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPost, cfg.draftURL,
		"/drafts/"+d.ID+"/recording", user, nil)), http.StatusConflict)
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.sessionURL,
		"/sessions/"+s.ID, user, nil)), http.StatusOK)
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.sessionURL,
		"/sessions/"+s.ID, newUser(), nil)), http.StatusNotFound)
	resp = test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.sessionURL,
		"/sessions/"+s.ID+"/document", user, nil)), http.StatusOK)
	assert.Contains(t, test.RStr(t, resp.Body), "Jonas")

	resp = test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.accountURL,
		"/usage", user, nil)), http.StatusOK)
	u := test.Decode[usageResponse](t, resp)
	assert.InDelta(t, 0.5, u.MinutesUsed, 0.0001)
	assert.Greater(t, u.Limit, 0.0)
}

func TestDraft_Delete(t *testing.T) {
	t.Parallel()
	user := newUser()
	resp := test.CheckCode(t, test.Invoke(t, cfg.httpclient,
		newAudioRequest(t, user, http.MethodPost, "/drafts", "rec.webm")), http.StatusCreated)
	d := test.Decode[draftResponse](t, resp)

	test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodDelete, cfg.draftURL,
		"/drafts/"+d.ID, user, nil)), http.StatusNoContent)
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, NewRequest(t, http.MethodPost, cfg.draftURL,
		"/drafts/"+d.ID+"/transcribe", user, map[string]string{})), http.StatusConflict)
}

func newUser() string {
	return "it-" + uuid.NewString()
}

func newAudioRequest(t *testing.T, user, method, path, file string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if file != "" {
		part, _ := writer.CreateFormFile("audio", file)
		_, _ = io.Copy(part, strings.NewReader("audio content"))
	}
	_ = writer.WriteField("title", "visit")
	_ = writer.Close()
	req, err := http.NewRequest(method, cfg.draftURL+path, body)
	require.Nil(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(utils.UserHeader, user)
	return req
}

func startMockService(port int) (net.Listener, *httptest.Server) {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.Fatalf("can't start mock service: %v", err)
	}
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stt":
			_, _ = io.Copy(w, strings.NewReader(`{"language_code":"en","words":[
				{"text":"labas","speaker_id":"speaker_0","type":"word","end":10},
				{"text":" ","speaker_id":"speaker_0","type":"spacing","end":10},
				{"text":"olia","speaker_id":"speaker_1","type":"word","end":30}]}`))
		case "/analysis":
			b, _ := io.ReadAll(r.Body)
			if strings.Contains(string(b), "Diagnosis:") {
				_, _ = io.Copy(w, strings.NewReader(
					`{"choices":[{"message":{"role":"assistant","content":"Diagnosis: flu\nPrescription: rest"}}]}`))
				return
			}
			_, _ = io.Copy(w, strings.NewReader(`{"choices":[{"message":{"role":"assistant","content":"summary"}}]}`))
		default:
			log.Printf("Unknown request to: %s", r.URL.String())
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	ts.Listener.Close()
	ts.Listener = l

	ts.Start()
	log.Printf("started mock srv on port: %d", port)
	return l, ts
}
