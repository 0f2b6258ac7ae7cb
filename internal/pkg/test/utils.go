package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// User is a user id of test requests
const User = "u1"

// Invoke makes a request call
func Invoke(t *testing.T, cl *http.Client, r *http.Request) *http.Response {
	t.Helper()
	resp, err := cl.Do(r)
	require.Nil(t, err, "not nil error = %v", err)
	t.Cleanup(func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	})
	return resp
}

// CheckCode checks response code
func CheckCode(t *testing.T, resp *http.Response, expected int) *http.Response {
	t.Helper()
	if resp.StatusCode != expected {
		b, _ := io.ReadAll(resp.Body)
		require.Equal(t, expected, resp.StatusCode, string(b))
	}
	return resp
}

// Decode decodes response body to json type
func Decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var res T
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func Ctx(t *testing.T) context.Context {
	t.Helper()
	ctx, cf := context.WithTimeout(context.Background(), time.Second*20)
	t.Cleanup(func() { cf() })
	return ctx
}

func Code(t *testing.T, tEcho *echo.Echo, req *http.Request, code int) *httptest.ResponseRecorder {
	t.Helper()
	tResp := httptest.NewRecorder()
	tEcho.ServeHTTP(tResp, req)
	require.Equal(t, code, tResp.Code)
	return tResp
}

func RStr(t *testing.T, r io.Reader) string {
	t.Helper()
	var b bytes.Buffer
	_, err := b.ReadFrom(r)
	require.Nil(t, err)
	return b.String()
}

// JSONReq makes a json request of the test user
func JSONReq(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var b bytes.Buffer
	if body != nil {
		require.Nil(t, json.NewEncoder(&b).Encode(body))
	}
	req := httptest.NewRequest(method, url, &b)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(utils.UserHeader, User)
	return req
}

// Req makes a request of the test user without body
func Req(method, url string) *http.Request {
	req := httptest.NewRequest(method, url, nil)
	req.Header.Set(utils.UserHeader, User)
	return req
}

// FormFile is a file part of a multipart request
type FormFile struct {
	Param, Name, ContentType string
	Data                     []byte
}

// MultipartReq makes a multipart request of the test user
func MultipartReq(t *testing.T, method, url string, values map[string][]string, files ...FormFile) *http.Request {
	t.Helper()
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	for k, vs := range values {
		for _, v := range vs {
			require.Nil(t, w.WriteField(k, v))
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.Param+`"; filename="`+f.Name+`"`)
		if f.ContentType != "" {
			h.Set("Content-Type", f.ContentType)
		}
		part, err := w.CreatePart(h)
		require.Nil(t, err)
		_, err = part.Write(f.Data)
		require.Nil(t, err)
	}
	require.Nil(t, w.Close())
	req := httptest.NewRequest(method, url, &b)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(utils.UserHeader, User)
	return req
}
