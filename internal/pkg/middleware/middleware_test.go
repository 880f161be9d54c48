package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"mediabridge/internal/httpkit"
	"mediabridge/internal/pkg/errors"
	"mediabridge/internal/pkg/logger"
)

func bufferedLogger(level string) (*logger.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logger.New(logger.Config{Level: level, Format: "json", Output: &buf}), &buf
}

func TestRequestID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, _ := r.Context().Value(logger.RequestIDKey).(string)
		if reqID == "" {
			t.Error("expected request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates new request ID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

		reqID := rec.Header().Get(RequestIDHeader)
		if _, err := uuid.Parse(reqID); err != nil {
			t.Errorf("expected a uuid request ID, got %q", reqID)
		}
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set(RequestIDHeader, "existing-id-123")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get(RequestIDHeader); got != "existing-id-123" {
			t.Errorf("expected preserved request ID, got %s", got)
		}
	})
}

func TestLogging(t *testing.T) {
	log, buf := bufferedLogger("info")

	handler := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/runsync", nil))

	out := buf.String()
	for _, want := range []string{"request completed", "POST", "/runsync", `"status":200`, "duration_ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log, got: %s", want, out)
		}
	}
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		expectedLevel string
	}{
		{"2xx logs info", 200, "INFO"},
		{"3xx logs info", 302, "INFO"},
		{"4xx logs warn", 404, "WARN"},
		{"5xx logs error", 504, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := bufferedLogger("debug")
			handler := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/status/x", nil))

			if !strings.Contains(buf.String(), tt.expectedLevel) {
				t.Errorf("expected log level %s, got: %s", tt.expectedLevel, buf.String())
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	log, buf := bufferedLogger("info")

	handler := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	var env httpkit.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || env.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("unexpected body %s (%v)", rec.Body.String(), err)
	}
	if !strings.Contains(buf.String(), "panic recovered") || !strings.Contains(buf.String(), "test panic") {
		t.Errorf("expected panic to be logged, got: %s", buf.String())
	}
}

func TestResponseWriter(t *testing.T) {
	t.Run("captures status code", func(t *testing.T) {
		rw := wrapResponseWriter(httptest.NewRecorder())
		rw.WriteHeader(http.StatusAccepted)
		if rw.status != http.StatusAccepted {
			t.Errorf("expected status 202, got %d", rw.status)
		}
	})

	t.Run("captures size and defaults to 200", func(t *testing.T) {
		rw := wrapResponseWriter(httptest.NewRecorder())
		_, _ = rw.Write([]byte("hello world"))
		if rw.size != 11 || rw.status != http.StatusOK {
			t.Errorf("size=%d status=%d", rw.size, rw.status)
		}
	})

	t.Run("only writes header once", func(t *testing.T) {
		rw := wrapResponseWriter(httptest.NewRecorder())
		rw.WriteHeader(http.StatusCreated)
		rw.WriteHeader(http.StatusOK)
		if rw.status != http.StatusCreated {
			t.Errorf("expected status 201, got %d", rw.status)
		}
	})
}

func TestWrapHandler(t *testing.T) {
	log, _ := bufferedLogger("info")

	t.Run("successful handler", func(t *testing.T) {
		handler := WrapHandler(log, func(w http.ResponseWriter, r *http.Request) error {
			httpkit.WriteJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
			return nil
		})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("handler with error", func(t *testing.T) {
		handler := WrapHandler(log, func(w http.ResponseWriter, r *http.Request) error {
			return errors.NotFound("job", "123")
		})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/status/123", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
		var env httpkit.ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatal(err)
		}
		if env.Error.Code != "NOT_FOUND" || env.Error.Details["id"] != "123" {
			t.Errorf("unexpected envelope %+v", env)
		}
	})
}

func TestWriteErrorResponse(t *testing.T) {
	tests := []struct {
		name     string
		code     errors.Code
		message  string
		expected int
	}{
		{"validation error", errors.CodeValidation, `bad "url"`, 400},
		{"engine down", errors.CodeUnavailable, "service unavailable: engine", 503},
		{"poll timeout", errors.CodeTimeout, "max retries reached", 504},
		{"internal error", errors.CodeInternal, "unexpected error", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteErrorResponse(rec, tt.code, tt.message, nil)

			if rec.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, rec.Code)
			}
			var env httpkit.ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("body is not valid json: %v", err)
			}
			if env.Error.Code != string(tt.code) || env.Error.Message != tt.message {
				t.Errorf("unexpected envelope %+v", env)
			}
		})
	}
}
