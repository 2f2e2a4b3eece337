//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "bad input")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error":"bad input"`) {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}

func TestDecodeRejectsOversizedBody(t *testing.T) {
	h := NewHandler(nil, 16)
	body := `{"message":"` + strings.Repeat("x", 64) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()

	var v map[string]string
	err := h.decode(w, r, &v)
	if err == nil {
		t.Fatal("Expected an error for an oversized body")
	}
	if !strings.Contains(err.Error(), "exceeds 16 bytes") {
		t.Errorf("Unexpected error %v", err)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	h := NewHandler(nil, 0)
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	w := httptest.NewRecorder()

	var v map[string]string
	if err := h.decode(w, r, &v); err == nil || !strings.HasPrefix(err.Error(), "invalid JSON body") {
		t.Errorf("Expected invalid JSON error, got %v", err)
	}
}
