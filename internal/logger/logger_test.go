package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLog(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	previous := Log
	Log = zap.New(core).Sugar()
	t.Cleanup(func() {
		Log = previous
	})

	return logs
}

func TestWithLoggingHTTPMiddleware(t *testing.T) {
	testCases := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantSize   int
	}{
		{
			name: "write_without_write_header",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("hello"))
			},
			wantStatus: http.StatusOK,
			wantSize:   5,
		},
		{
			name: "explicit_status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte("missing"))
			},
			wantStatus: http.StatusNotFound,
			wantSize:   7,
		},
		{
			name: "redirect",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Location", "/dashboard")
				w.WriteHeader(http.StatusFound)
			},
			wantStatus: http.StatusFound,
			wantSize:   0,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			logs := observeLog(t)

			request := httptest.NewRequest(http.MethodGet, "/stories?page=2", nil)
			recorder := httptest.NewRecorder()
			WithLoggingHTTPMiddleware(testCase.handler).ServeHTTP(recorder, request)

			assert.Equal(t, testCase.wantStatus, recorder.Code)

			entries := logs.FilterMessage("request").All()
			require.Len(t, entries, 1)
			fields := entries[0].ContextMap()
			assert.EqualValues(t, testCase.wantStatus, fields["status"])
			assert.EqualValues(t, testCase.wantSize, fields["size"])
			assert.Equal(t, "/stories?page=2", fields["uri"])
			assert.Equal(t, http.MethodGet, fields["method"])
		})
	}
}

func TestInit(t *testing.T) {
	previous := Log
	t.Cleanup(func() {
		Log = previous
	})

	assert.Error(t, Init("chatty", false))
	require.NoError(t, Init("warn", true))
	assert.False(t, Log.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Log.Desugar().Core().Enabled(zapcore.WarnLevel))
}
