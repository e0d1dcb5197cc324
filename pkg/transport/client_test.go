package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/tastypie-client/internal/testutil"
	"github.com/Sternrassler/tastypie-client/pkg/adapter"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("http://localhost:8000"),
		},
		{
			name:   "no base url",
			config: DefaultConfig(""),
		},
		{
			name: "zero timeout",
			config: Config{
				BaseURL: "http://localhost:8000",
			},
			expectError: true,
			errorMsg:    "timeout must be > 0 (got 0s)",
		},
		{
			name:        "relative base url",
			config:      DefaultConfig("/api"),
			expectError: true,
			errorMsg:    `base url must be absolute (got "/api")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestAjax_HeadersAndQuery(t *testing.T) {
	var got *http.Request
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL)
	cfg.UserAgent = "TestApp/1.0.0"
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	payload, err := client.Ajax(context.Background(), adapter.Request{
		Method: http.MethodPost,
		URL:    "/api/v1/post/",
		Query:  url.Values{"offset": []string{"40"}},
		Body:   []byte(`{"title": "hi"}`),
	})
	if err != nil {
		t.Fatalf("Ajax() error = %v", err)
	}

	if string(payload) != `{"ok": true}` {
		t.Errorf("payload = %q", payload)
	}
	if got.Method != http.MethodPost {
		t.Errorf("Method = %s, want POST", got.Method)
	}
	if got.URL.Path != "/api/v1/post/" {
		t.Errorf("Path = %q, want /api/v1/post/", got.URL.Path)
	}
	if got.URL.Query().Get("offset") != "40" {
		t.Errorf("offset = %q, want 40", got.URL.Query().Get("offset"))
	}
	if got.Header.Get("User-Agent") != "TestApp/1.0.0" {
		t.Errorf("User-Agent = %q", got.Header.Get("User-Agent"))
	}
	if got.Header.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", got.Header.Get("Accept"))
	}
	if got.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", got.Header.Get("Content-Type"))
	}
	if gotBody != `{"title": "hi"}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestAjax_AbsoluteURLWithoutBase(t *testing.T) {
	mock := testutil.NewMockTastypie("api/v1")
	defer mock.Close()
	mock.Seed("post", 3)

	client, err := New(DefaultConfig(""))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	payload, err := client.Ajax(context.Background(), adapter.Request{
		Method: http.MethodGet,
		URL:    mock.URL() + "/api/v1/post/set/1;3/",
	})
	if err != nil {
		t.Fatalf("Ajax() error = %v", err)
	}
	if !strings.Contains(string(payload), `"objects"`) {
		t.Errorf("payload = %q, want a set response", payload)
	}
}

func TestAjax_RelativeURLWithoutBase(t *testing.T) {
	client, err := New(DefaultConfig(""))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Ajax(context.Background(), adapter.Request{
		Method: http.MethodGet,
		URL:    "/api/v1/post/",
	})
	if err == nil || !strings.Contains(err.Error(), "requires a base url") {
		t.Errorf("error = %v, want base url error", err)
	}
}

func TestAjax_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		expected   ErrorClass
	}{
		{"client error 404", 404, ErrorClassClient},
		{"client error 400", 400, ErrorClassClient},
		{"server error 500", 500, ErrorClassServer},
		{"server error 503", 503, ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(`{"error": "nope"}`))
			}))
			defer server.Close()

			client, err := New(DefaultConfig(server.URL))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			_, err = client.Ajax(context.Background(), adapter.Request{Method: http.MethodGet, URL: "/api/v1/post/"})

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("error = %v, want *HTTPError", err)
			}
			if httpErr.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", httpErr.StatusCode, tt.statusCode)
			}
			if httpErr.ErrorClass != tt.expected {
				t.Errorf("ErrorClass = %q, want %q", httpErr.ErrorClass, tt.expected)
			}
			if string(httpErr.Body) != `{"error": "nope"}` {
				t.Errorf("Body = %q", httpErr.Body)
			}
			if requests != 1 {
				t.Errorf("server saw %d requests, want 1 (no retries)", requests)
			}
		})
	}
}

func TestAjax_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client, err := New(DefaultConfig(baseURL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Ajax(context.Background(), adapter.Request{Method: http.MethodGet, URL: "/api/v1/post/"})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %v, want *HTTPError", err)
	}
	if httpErr.ErrorClass != ErrorClassNetwork {
		t.Errorf("ErrorClass = %q, want network", httpErr.ErrorClass)
	}
	if httpErr.Unwrap() == nil {
		t.Error("network error should wrap the underlying error")
	}
}

func TestAjax_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, err := New(DefaultConfig(server.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.Ajax(ctx, adapter.Request{Method: http.MethodGet, URL: "/api/v1/post/"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestAjax_WithAdapter(t *testing.T) {
	mock := testutil.NewMockTastypie("api/v1")
	defer mock.Close()
	mock.Seed("comment", 10)

	client, err := New(DefaultConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	a, err := adapter.New(adapter.DefaultConfig(), client)
	if err != nil {
		t.Fatalf("adapter.New() error = %v", err)
	}

	payload, err := a.FindAll(context.Background(), "comment", "/api/v1/comment/?limit=20&offset=5")
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if !strings.Contains(string(payload), `"offset":5`) {
		t.Errorf("payload = %s, want offset 5", payload)
	}

	_, err = a.Find(context.Background(), "comment", "99")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("Find() error = %v, want 404 HTTPError", err)
	}
}
