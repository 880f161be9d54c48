package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeSubmission, "missing prompt_id")

	if err.Code != CodeSubmission {
		t.Errorf("expected code=%s, got %s", CodeSubmission, err.Code)
	}
	if err.Message != "missing prompt_id" {
		t.Errorf("expected message='missing prompt_id', got %s", err.Message)
	}
	if len(err.Stack) == 0 {
		t.Error("expected stack trace to be captured")
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "simple error",
			err:      New(CodeValidation, "invalid"),
			contains: []string{"VALIDATION_ERROR", "invalid"},
		},
		{
			name:     "error with op",
			err:      &Error{Code: CodeTimeout, Message: "no outputs", Op: "engine.poll"},
			contains: []string{"engine.poll", "TIMEOUT", "no outputs"},
		},
		{
			name:     "error with underlying",
			err:      &Error{Code: CodeInternal, Message: "wrapper", Err: fmt.Errorf("underlying error")},
			contains: []string{"wrapper", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			str := tt.err.Error()
			for _, c := range tt.contains {
				if !strings.Contains(str, c) {
					t.Errorf("expected error string to contain %q, got: %s", c, str)
				}
			}
		})
	}
}

func TestWrap(t *testing.T) {
	original := fmt.Errorf("connection refused")
	wrapped := Wrap(original, "engine.submit", "submit failed")

	if wrapped.Code != CodeInternal {
		t.Errorf("expected code=%s, got %s", CodeInternal, wrapped.Code)
	}
	if errors.Unwrap(wrapped) != original {
		t.Error("Unwrap should return original error")
	}

	if Wrap(nil, "op", "msg") != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestWrapPreservesCode(t *testing.T) {
	inner := New(CodeResolution, "artifact missing").WithField("path", "/out/a.mp4")
	outer := Wrap(inner, "processor.resolve", "resolve failed")

	if outer.Code != CodeResolution {
		t.Errorf("expected code=%s, got %s", CodeResolution, outer.Code)
	}
	if GetFields(outer)["path"] != "/out/a.mp4" {
		t.Errorf("expected fields to be carried, got %v", outer.Fields)
	}
	if !Is(outer, &Error{Code: CodeResolution}) {
		t.Error("expected Is to match by code")
	}
}

func TestWrapWithCode(t *testing.T) {
	err := WrapWithCode(fmt.Errorf("eof"), CodePoll, "engine.history", "history request failed")
	if !IsCode(err, CodePoll) {
		t.Errorf("expected code=%s, got %s", CodePoll, GetCode(err))
	}
	if WrapWithCode(nil, CodePoll, "op", "msg") != nil {
		t.Error("WrapWithCode(nil) should be nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, 400},
		{CodeBadRequest, 400},
		{CodeNotFound, 404},
		{CodeSubmission, 502},
		{CodePoll, 502},
		{CodeUnavailable, 503},
		{CodeTimeout, 504},
		{CodeResolution, 500},
		{CodeInternal, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "x").HTTPStatus(); got != tt.status {
				t.Errorf("HTTPStatus() = %d, expected %d", got, tt.status)
			}
		})
	}

	if GetHTTPStatus(fmt.Errorf("plain")) != 500 {
		t.Error("plain errors should map to 500")
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", fmt.Errorf("boom"), "boom"},
		{"typed", New(CodeTimeout, "max retries reached"), "max retries reached"},
		{
			"chain",
			WrapWithCode(fmt.Errorf("connection refused"), CodeSubmission, "engine.submit", "error queuing pipeline"),
			"error queuing pipeline: connection refused",
		},
		{
			"nested typed",
			Wrap(New(CodeResolution, "artifact missing"), "processor.resolve", "resolve failed"),
			"resolve failed: artifact missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err); got != tt.want {
				t.Errorf("Message() = %q, expected %q", got, tt.want)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	if e := NotFound("job", "j-1"); e.Code != CodeNotFound || e.Fields["id"] != "j-1" {
		t.Errorf("unexpected NotFound: %+v", e)
	}
	if e := Unavailable("engine"); e.Code != CodeUnavailable {
		t.Errorf("unexpected Unavailable: %+v", e)
	}
	if e := Validationf("field %s", "url"); e.Message != "field url" {
		t.Errorf("unexpected Validationf: %+v", e)
	}
}

func TestStackTrace(t *testing.T) {
	err := New(CodeInternal, "x")
	if !strings.Contains(err.StackTrace(), "errors_test.go") {
		t.Errorf("expected stack to reference the test file, got:\n%s", err.StackTrace())
	}
	if (&Error{}).StackTrace() != "" {
		t.Error("empty stack should format to empty string")
	}
}
