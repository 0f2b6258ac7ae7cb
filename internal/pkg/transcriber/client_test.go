package transcriber

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/airenas/docbuddy/internal/pkg/test"
	"github.com/airenas/docbuddy/internal/pkg/transcriber/api"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testReq struct {
	key    string
	file   string
	fields map[string]string
}

func initTestServer(t *testing.T, code int, resp string) (*Client, *[]testReq) {
	t.Helper()
	resRequest := make([]testReq, 0)
	rLock := &sync.Mutex{}
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rLock.Lock()
		defer rLock.Unlock()
		resRequest = append(resRequest, readReq(req))
		rw.WriteHeader(code)
		_, _ = rw.Write([]byte(resp))
	}))
	client := Client{}
	client.httpclient = server.Client()
	client.url = server.URL + "/v1/speech-to-text"
	client.key = "k1"
	client.model = "scribe_v1"
	client.timeout = time.Second
	client.backoff = func() backoff.BackOff {
		return &backoff.StopBackOff{}
	}
	t.Cleanup(func() { server.Close() })
	return &client, &resRequest
}

func readReq(req *http.Request) testReq {
	res := testReq{key: req.Header.Get("xi-api-key"), fields: map[string]string{}}
	_, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil {
		return res
	}
	mr := multipart.NewReader(req.Body, params["boundary"])
	for {
		p, err := mr.NextPart()
		if err != nil {
			break
		}
		b, _ := io.ReadAll(p)
		if p.FileName() != "" {
			res.file = p.FileName() + ":" + string(b)
		} else {
			res.fields[p.FormName()] = string(b)
		}
	}
	return res
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://stt", "k", "", 0)
	require.Nil(t, err)
	assert.Equal(t, "scribe_v1", c.model)
	_, err = NewClient("", "k", "", 0)
	assert.NotNil(t, err)
	_, err = NewClient("http://stt", "", "", 0)
	assert.NotNil(t, err)
}

func TestTranscribe(t *testing.T) {
	cl, reqs := initTestServer(t, http.StatusOK, `{"language_code":"en","text":"hi there","words":[
		{"text":"hi","speaker_id":"speaker_0","type":"word","start":0.1,"end":0.5},
		{"text":" ","speaker_id":"speaker_0","type":"spacing","start":0.5,"end":0.6},
		{"text":"there","speaker_id":"speaker_1","type":"word","start":0.6,"end":1.2}]}`)

	res, err := cl.Transcribe(test.Ctx(t), &api.Audio{Name: "a.webm", Content: []byte("olia"), Language: "en"})

	require.Nil(t, err)
	require.Len(t, res.Words, 3)
	assert.Equal(t, "en", res.LanguageCode)
	assert.Equal(t, api.Word{Text: "there", SpeakerID: "speaker_1", Type: "word", Start: 0.6, End: 1.2}, res.Words[2])
	require.Len(t, *reqs, 1)
	r := (*reqs)[0]
	assert.Equal(t, "k1", r.key)
	assert.Equal(t, "a.webm:olia", r.file)
	assert.Equal(t, map[string]string{"model_id": "scribe_v1", "diarize": "true", "language_code": "en"}, r.fields)
}

func TestTranscribe_NoLanguage(t *testing.T) {
	cl, reqs := initTestServer(t, http.StatusOK, `{"words":[]}`)

	res, err := cl.Transcribe(test.Ctx(t), &api.Audio{Name: "a.webm", Content: []byte("olia")})

	require.Nil(t, err)
	assert.Empty(t, res.Words)
	require.Len(t, *reqs, 1)
	_, f := (*reqs)[0].fields["language_code"]
	assert.False(t, f)
}

func TestTranscribe_Fails(t *testing.T) {
	tests := []struct {
		name string
		code int
		resp string
	}{
		{name: "server", code: http.StatusInternalServerError, resp: "olia"},
		{name: "auth", code: http.StatusUnauthorized, resp: "olia"},
		{name: "json", code: http.StatusOK, resp: "{olia"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, reqs := initTestServer(t, tt.code, tt.resp)
			_, err := cl.Transcribe(test.Ctx(t), &api.Audio{Name: "a.webm", Content: []byte("olia")})
			assert.NotNil(t, err)
			assert.Len(t, *reqs, 1)
		})
	}
}
