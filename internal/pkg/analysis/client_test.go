package analysis

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/airenas/docbuddy/internal/pkg/test"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestServer(t *testing.T, handler func(req *request) (int, string)) (*Client, *[]request) {
	t.Helper()
	reqs := make([]request, 0)
	rLock := &sync.Mutex{}
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rLock.Lock()
		defer rLock.Unlock()
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		reqs = append(reqs, req)
		if r.Header.Get("Authorization") != "Bearer k1" {
			rw.WriteHeader(http.StatusUnauthorized)
			return
		}
		code, resp := handler(&req)
		rw.WriteHeader(code)
		_, _ = rw.Write([]byte(resp))
	}))
	c := &Client{httpclient: server.Client(), url: server.URL, key: "k1", model: "deepseek-chat",
		timeout: time.Second, backoff: func() backoff.BackOff { return &backoff.StopBackOff{} }}
	t.Cleanup(func() { server.Close() })
	return c, &reqs
}

func answer(s string) string {
	b, _ := json.Marshal(map[string]interface{}{"choices": []interface{}{
		map[string]interface{}{"message": map[string]string{"role": "assistant", "content": s}}}})
	return string(b)
}

func TestAnalyze(t *testing.T) {
	c, reqs := initTestServer(t, func(req *request) (int, string) {
		if strings.Contains(req.Messages[0].Content, "Diagnosis: <diagnosis>") {
			return http.StatusOK, answer("Diagnosis: flu\nPrescription: rest\nwater")
		}
		return http.StatusOK, answer("  summary  ")
	})

	res, err := c.Analyze(test.Ctx(t), &Input{Transcript: "Speaker 0: cough", ClinicPrompt: "clinic",
		SummaryPrompt: "sum"})

	require.Nil(t, err)
	assert.Equal(t, &Result{Summary: "summary", SuggestedDiagnosis: "flu", SuggestedPrescription: "rest\nwater"}, res)
	require.Len(t, *reqs, 2)
	assert.Equal(t, "deepseek-chat", (*reqs)[0].Model)
	assert.Equal(t, []message{{Role: "system", Content: "sum"}, {Role: "user", Content: "Speaker 0: cough"}},
		(*reqs)[0].Messages)
	assert.Equal(t, "clinic"+formatPrompt, (*reqs)[1].Messages[0].Content)
}

func TestAnalyze_Fails(t *testing.T) {
	c, reqs := initTestServer(t, func(req *request) (int, string) {
		return http.StatusInternalServerError, "olia"
	})
	_, err := c.Analyze(test.Ctx(t), &Input{Transcript: "t"})
	assert.NotNil(t, err)
	assert.Len(t, *reqs, 1)
}

func TestAnalyze_FailsNoChoices(t *testing.T) {
	c, _ := initTestServer(t, func(req *request) (int, string) {
		return http.StatusOK, `{"choices":[]}`
	})
	_, err := c.Analyze(test.Ctx(t), &Input{Transcript: "t"})
	assert.NotNil(t, err)
}

func Test_parseSuggestions(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		wantD string
		wantP string
	}{
		{name: "both", in: "Diagnosis: flu\nPrescription: rest", wantD: "flu", wantP: "rest"},
		{name: "intro", in: "Sure.\nDiagnosis:  cold \n\nPrescription:\ntea\n", wantD: "cold", wantP: "tea"},
		{name: "no prescription", in: "Diagnosis: cold", wantD: "cold", wantP: noPrescription},
		{name: "no diagnosis", in: "Prescription: tea", wantD: noDiagnosis, wantP: "tea"},
		{name: "none", in: "olia", wantD: noDiagnosis, wantP: noPrescription},
		{name: "empty", in: "", wantD: noDiagnosis, wantP: noPrescription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, p := parseSuggestions(tt.in)
			assert.Equal(t, tt.wantD, d)
			assert.Equal(t, tt.wantP, p)
		})
	}
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://a", "k", "", 0)
	require.Nil(t, err)
	assert.Equal(t, "deepseek-chat", c.model)
	_, err = NewClient("", "k", "", 0)
	assert.NotNil(t, err)
	_, err = NewClient("http://a", "", "", 0)
	assert.NotNil(t, err)
}
