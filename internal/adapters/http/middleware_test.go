package httpadapter

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAccessLogCarriesRequestIDAndNormalizedRoute(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	handler := requestIDMiddleware(accessLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/abc-123/history", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	line := buf.String()
	for _, want := range []string{
		`"request_id":"req-42"`,
		`"route":"/v1/sessions/{session_id}/history"`,
		`"path":"/v1/sessions/abc-123/history"`,
		`"status":404`,
		`"level":"WARN"`,
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("access log missing %s in %s", want, line)
		}
	}
}

func TestResponseRecorderCountsStatusAndBytes(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := newResponseRecorder(rr)

	rec.WriteHeader(http.StatusCreated)
	if _, err := rec.Write([]byte("hello")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if rec.status != http.StatusCreated {
		t.Fatalf("expected recorded status 201, got %d", rec.status)
	}
	if rec.bytes != 5 {
		t.Fatalf("expected 5 bytes recorded, got %d", rec.bytes)
	}
}
