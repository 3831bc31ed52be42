package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func TestResponseWriterCapturesStatusAndBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	_, _ = rw.Write([]byte("hello"))

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want first status 404", rw.statusCode)
	}
	if rw.bytesWritten != 5 {
		t.Errorf("bytesWritten = %d, want 5", rw.bytesWritten)
	}
	if rw.Unwrap() != rec {
		t.Error("Unwrap should return the wrapped writer")
	}
}

func TestDefaultLoggingConfig(t *testing.T) {
	config := DefaultLoggingConfig()

	if config.LogStaticFiles {
		t.Error("Expected LogStaticFiles to be false by default")
	}
	if !config.LogHealthChecks {
		t.Error("Expected LogHealthChecks to be true by default")
	}
	if len(config.MediaPaths) == 0 {
		t.Error("Expected media paths to be configured")
	}
}

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		config        LoggingConfig
		expectLogging bool
	}{
		{"Logs API requests", "/api/videos/", DefaultLoggingConfig(), true},
		{"Skips video streams by default", "/api/videos/serve/clip", DefaultLoggingConfig(), false},
		{"Skips thumbnails by default", "/api/videos/thumbnail/clip", DefaultLoggingConfig(), false},
		{
			"Logs media when enabled",
			"/api/videos/serve/clip",
			LoggingConfig{LogStaticFiles: true, MediaPaths: []string{"/api/videos/serve/"}},
			true,
		},
		{"Skips extensions", "/favicon.ico", DefaultLoggingConfig(), false},
		{"Logs health checks when enabled", "/health", LoggingConfig{LogHealthChecks: true}, true},
		{"Skips health checks when disabled", "/healthz", LoggingConfig{LogHealthChecks: false}, false},
		{"Skips configured paths", "/internal/x", LoggingConfig{SkipPaths: []string{"/internal"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			handler := Logger(tt.config)(okHandler("ok"))
			buf.Reset()

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}
			logged := strings.Contains(buf.String(), tt.path)
			if logged != tt.expectLogging {
				t.Errorf("logged = %v, want %v (output %q)", logged, tt.expectLogging, buf.String())
			}
		})
	}
}

func TestLoggerWritesDirectives(t *testing.T) {
	buf := captureLog(t)
	Logger(DefaultLoggingConfig())

	out := buf.String()
	for _, want := range []string{"#Software: tubeshelf", "#Version: 1.0", "#Fields: date time c-ip"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in directives, got %q", want, out)
		}
	}
}

func TestLoggerLineFormat(t *testing.T) {
	buf := captureLog(t)
	handler := RequestID(Logger(DefaultLoggingConfig())(okHandler("hello")))
	buf.Reset()

	req := httptest.NewRequest(http.MethodGet, "/api/videos/search?title=cat", http.NoBody)
	req.Header.Set("User-Agent", "curl/8.0 (x)")
	req.Header.Set(RequestIDHeader, "req-123")
	req.RemoteAddr = "10.0.0.7:51234"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := strings.TrimSpace(buf.String())
	for _, want := range []string{
		" 10.0.0.7 GET /api/videos/search title=cat 200 5 ",
		` "curl/8.0 (x)" - req-123`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("Expected %q in log line %q", want, line)
		}
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"line1\nline2", "line1 line2"},
		{"a\r\nb", "a  b"},
		{"nul\x00byte", "nulbyte"},
		{"\x1b[31mred", "[31mred"},
		{"tab\tkept", "tab\tkept"},
	}

	for _, tt := range tests {
		if got := sanitizeLogField(tt.input); got != tt.expected {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, "3.3.3.3:1", "1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": "4.4.4.4"}, "3.3.3.3:1", "4.4.4.4"},
		{"remote addr", nil, "5.5.5.5:8080", "5.5.5.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuoteW3CField(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"curl/8.0", "curl/8.0"},
		{"Mozilla/5.0 (X11)", `"Mozilla/5.0 (X11)"`},
		{`say "hi"`, `"say ""hi"""`},
		{"", ""},
	}

	for _, tt := range tests {
		if got := quoteW3CField(tt.input); got != tt.expected {
			t.Errorf("quoteW3CField(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
