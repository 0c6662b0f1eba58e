package resp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ncobase/paybatch/ecode"
)

func TestWithStatusCodeWritesData(t *testing.T) {
	w := httptest.NewRecorder()
	WithStatusCode(w, http.StatusAccepted, map[string]int{"total": 2})

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["total"] != 2 {
		t.Errorf("body = %v", body)
	}
}

func TestFail(t *testing.T) {
	tests := []struct {
		name       string
		exception  *Exception
		wantStatus int
		wantCode   int
	}{
		{"nil", nil, http.StatusInternalServerError, ecode.ServerErr},
		{"not found", NotFound("batch not found"), http.StatusNotFound, ecode.NothingFound},
		{"bad request", BadRequest("bad", map[string]string{"value": "required"}), http.StatusBadRequest, ecode.RequestErr},
		{"by code", WithCode(ecode.BatchInvalidState, ""), http.StatusConflict, ecode.BatchInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Fail(w, tt.exception)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body Exception
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", body.Code, tt.wantCode)
			}
			if body.Message == "" {
				t.Error("expected message")
			}
		})
	}
}
