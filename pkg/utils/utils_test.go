package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusBadRequest, "message is required")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["error"] != "message is required" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestSendSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupSSEHeaders(rec)
	if err := SendSSEEvent(rec, rec, "stage", map[string]string{"stage": "analyzing"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}
	want := "event: stage\ndata: {\"stage\":\"analyzing\"}\n\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected frame %q", rec.Body.String())
	}
	if !rec.Flushed {
		t.Fatal("expected flush")
	}
}
