package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/errors"
)

func TestWriteErrorServiceError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.RecipientNotFound("nobody@example.com"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error.Code != string(errors.CodeRecipientNotFound) {
		t.Fatalf("expected recipient not found code, got %s", resp.Error.Code)
	}
	if resp.Error.Details["email"] != "nobody@example.com" {
		t.Fatalf("expected email detail, got %v", resp.Error.Details)
	}
}

func TestWriteErrorHidesUnclassifiedCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, &json.SyntaxError{})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "SyntaxError") {
		t.Fatalf("internal cause leaked: %s", rec.Body.String())
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","bogus":1}`))
	rec := httptest.NewRecorder()

	var dst struct {
		Name string `json:"name"`
	}
	if DecodeJSON(rec, req, &dst) {
		t.Fatalf("expected decode failure for unknown field")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReadAllWithLimit(t *testing.T) {
	data, truncated, err := ReadAllWithLimit(strings.NewReader("hello world"), 5)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !truncated || string(data) != "hello" {
		t.Fatalf("expected truncated read, got %q truncated=%t", data, truncated)
	}

	if _, err := ReadAllStrict(strings.NewReader("hello world"), 5); err == nil {
		t.Fatalf("expected strict read to fail")
	}
	data, err = ReadAllStrict(strings.NewReader("hi"), 5)
	if err != nil || string(data) != "hi" {
		t.Fatalf("strict read: %q %v", data, err)
	}
}
