package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipString(t *testing.T, input string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, err := gzipWriter.Write([]byte(input))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())

	return buf.Bytes()
}

func gunzip(t *testing.T, body []byte) string {
	t.Helper()
	reader, err := gzip.NewReader(bytes.NewReader(body))
	require.NoError(t, err)
	plain, err := io.ReadAll(reader)
	require.NoError(t, err)

	return string(plain)
}

func TestGzipResponse(t *testing.T) {
	const page = "<html><body>hello, gzip</body></html>"

	testCases := []struct {
		name           string
		acceptEncoding string
		method         string
		status         int
		wantGzip       bool
	}{
		{name: "accepts_gzip", acceptEncoding: "gzip, deflate", method: http.MethodGet, status: http.StatusOK, wantGzip: true},
		{name: "error_page_is_compressed_too", acceptEncoding: "gzip", method: http.MethodGet, status: http.StatusNotFound, wantGzip: true},
		{name: "no_gzip", acceptEncoding: "", method: http.MethodGet, status: http.StatusOK, wantGzip: false},
		{name: "no_content", acceptEncoding: "gzip", method: http.MethodGet, status: http.StatusNoContent, wantGzip: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(testCase.status)
				if testCase.status != http.StatusNoContent {
					_, _ = w.Write([]byte(page))
				}
			}))

			request := httptest.NewRequest(testCase.method, "/", nil)
			if testCase.acceptEncoding != "" {
				request.Header.Set("Accept-Encoding", testCase.acceptEncoding)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, testCase.status, recorder.Code)
			if testCase.wantGzip {
				assert.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))
				assert.Equal(t, page, gunzip(t, recorder.Body.Bytes()))
				return
			}
			assert.Empty(t, recorder.Header().Get("Content-Encoding"))
			if testCase.status != http.StatusNoContent {
				assert.Equal(t, page, recorder.Body.String())
			} else {
				assert.Zero(t, recorder.Body.Len())
			}
		})
	}
}

func TestGzipResponseWithoutExplicitHeader(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<!DOCTYPE html><p>sniffed</p>"))
	}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Accept-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))
	assert.Contains(t, recorder.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "<!DOCTYPE html><p>sniffed</p>", gunzip(t, recorder.Body.Bytes()))
}

func TestGzipResponseWithoutBody(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		handler func(w http.ResponseWriter, r *http.Request)
	}{
		{
			name:   "status_only",
			status: http.StatusOK,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
		{
			name:   "empty_write",
			status: http.StatusOK,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(nil)
			},
		},
		{
			name:   "redirect_after_post",
			status: http.StatusFound,
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/dashboard", http.StatusFound)
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPost, "/stories", nil)
			request.Header.Set("Accept-Encoding", "gzip")
			recorder := httptest.NewRecorder()

			GzipResponse(http.HandlerFunc(testCase.handler)).ServeHTTP(recorder, request)

			assert.Equal(t, testCase.status, recorder.Code)
			assert.Empty(t, recorder.Header().Get("Content-Encoding"))
			assert.Zero(t, recorder.Body.Len())
		})
	}
}

func TestUngzipRequest(t *testing.T) {
	var seen string
	handler := UngzipRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = string(body)
	}))

	request := httptest.NewRequest(http.MethodPost, "/stories", bytes.NewReader(gzipString(t, "title=Hello")))
	request.Header.Set("Content-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "title=Hello", seen)

	request = httptest.NewRequest(http.MethodPost, "/stories", strings.NewReader("not gzip"))
	request.Header.Set("Content-Encoding", "gzip")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
