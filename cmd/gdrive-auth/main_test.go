package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
		wantErr  bool
	}{
		{"ok", "?state=s1&code=abc", "abc", false},
		{"bad state", "?state=other&code=abc", "", true},
		{"denied", "?state=s1&error=access_denied", "", true},
		{"no code", "?state=s1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codeCh := make(chan string, 1)
			errCh := make(chan error, 1)
			rec := httptest.NewRecorder()

			callbackHandler("s1", codeCh, errCh)(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			select {
			case code := <-codeCh:
				if tt.wantErr || code != tt.wantCode {
					t.Errorf("got code %q", code)
				}
			case err := <-errCh:
				if !tt.wantErr {
					t.Errorf("unexpected error %v", err)
				}
				if rec.Code != http.StatusBadRequest {
					t.Errorf("status = %d", rec.Code)
				}
			default:
				t.Error("handler reported nothing")
			}
		})
	}
}

func TestRandomState(t *testing.T) {
	if a, b := randomState(), randomState(); a == b || len(a) != 24 {
		t.Errorf("unexpected states %q %q", a, b)
	}
}
