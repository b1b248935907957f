package logging

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestLoggingMiddleware(t *testing.T) {
	var out strings.Builder
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/boom":
			w.WriteHeader(http.StatusInternalServerError)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			w.WriteHeader(http.StatusTeapot)
		default:
			_, _ = w.Write([]byte("ok"))
		}
	}))

	serve := func(target string, requestID any) string {
		out.Reset()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if requestID != nil {
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, requestID))
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
		return out.String()
	}

	tests := []struct {
		name      string
		target    string
		requestID any
		contains  []string
		excludes  []string
	}{
		{"health not logged", "/health", "a", nil, []string{"HTTP request"}},
		{"metrics not logged", "/metrics", "b", nil, []string{"HTTP request"}},
		{"regular path", "/v1/catalog/123", "c", []string{"HTTP request", "path=/v1/catalog/123", "request_id=c", "status_code=200", "bytes_written=2"}, []string{"query="}},
		{"query logged", "/v1/generics/IBUPROFEN?form=tab", "d", []string{`query="form=tab"`}, nil},
		{"non-string request id", "/x", 12345, []string{"request_id=unknown"}, nil},
		{"server error at error level", "/boom", "e", []string{"level=ERROR", "status_code=500"}, nil},
		{"first status wins", "/missing", "f", []string{"status_code=404"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := serve(tt.target, tt.requestID)
			for _, want := range tt.contains {
				if !strings.Contains(logs, want) {
					t.Errorf("Expected log to contain %q, got: %s", want, logs)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(logs, unwanted) {
					t.Errorf("Expected log not to contain %q, got: %s", unwanted, logs)
				}
			}
		})
	}
}
