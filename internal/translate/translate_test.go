package translate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHTTPTranslator_Success(t *testing.T) {
	var receivedAuth string
	var receivedCommand string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/translate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		receivedAuth = r.Header.Get("Authorization")

		body, _ := io.ReadAll(r.Body)
		var req translateRequest
		json.Unmarshal(body, &req)
		receivedCommand = req.Command

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(Result{
			Action: "trim",
			Params: map[string]any{"start_time": 2.0, "end_time": 10.0},
		})
	}))
	defer server.Close()

	tr := NewHTTPTranslator(server.URL, "test-token", testLogger())

	result, err := tr.Translate(context.Background(), "cut out the first two seconds")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedAuth != "Bearer test-token" {
		t.Errorf("auth = %q, want %q", receivedAuth, "Bearer test-token")
	}
	if receivedCommand != "cut out the first two seconds" {
		t.Errorf("command = %q", receivedCommand)
	}
	if result.Action != "trim" {
		t.Errorf("action = %q, want %q", result.Action, "trim")
	}
	if result.Params["start_time"] != 2.0 {
		t.Errorf("start_time = %v, want 2.0", result.Params["start_time"])
	}
}

func TestHTTPTranslator_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal error"))
	}))
	defer server.Close()

	tr := NewHTTPTranslator(server.URL, "tok", testLogger())

	_, err := tr.Translate(context.Background(), "do something")
	var terr *TranslateError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TranslateError, got %v", err)
	}
	if terr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", terr.StatusCode)
	}
	if !terr.IsRetryable() {
		t.Error("5xx should be retryable")
	}
}

func TestHTTPTranslator_EmptyAction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(Result{Message: "could not understand"})
	}))
	defer server.Close()

	tr := NewHTTPTranslator(server.URL, "", testLogger())

	_, err := tr.Translate(context.Background(), "gibberish")
	if !errors.Is(err, ErrUnrecognized) {
		t.Errorf("expected ErrUnrecognized, got %v", err)
	}
}

func TestStubTranslator(t *testing.T) {
	s := NewStubTranslator(testLogger())
	_, err := s.Translate(context.Background(), "anything")
	if !errors.Is(err, ErrUnrecognized) {
		t.Errorf("expected ErrUnrecognized, got %v", err)
	}
}
