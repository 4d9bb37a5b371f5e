package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	app "github.com/morarasu-alexandru/nft-collection-manager/internal/app"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/middleware"
	"github.com/morarasu-alexandru/nft-collection-manager/pkg/testutil"
)

const (
	aliceToken = "token-alice"
	bobToken   = "token-bob"
	aliceID    = "11111111-1111-1111-1111-111111111111"
	bobID      = "22222222-2222-2222-2222-222222222222"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	resolver := testutil.NewMockResolver()
	resolver.AddUser(aliceToken, aliceID, "alice@example.com")
	resolver.AddUser(bobToken, bobID, "bob@example.com")

	application, err := app.New(app.Stores{}, resolver, nil, app.Options{DisableAudit: true})
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { application.Stop(context.Background()) })

	handler, err := NewHandler(application, HandlerOptions{AuditMax: 50})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	auth := middleware.NewAuthMiddleware(resolver, nil, []string{"/healthz", "/metrics"})
	return auth.Handler(handler)
}

func marshal(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func authedRequest(method, path string, body *bytes.Reader, token string) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decodeError(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("invalid error envelope %s: %v", body, err)
	}
	return envelope.Error.Code
}

func TestHandlerLifecycle(t *testing.T) {
	handler := newTestHandler(t)

	// Create an asset as alice.
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/assets",
		marshal(t, map[string]string{"name": "Genesis", "description": "first mint"}), aliceToken))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body)
	}
	var created struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Owner string `json:"owner"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal asset: %v", err)
	}
	if created.Owner != aliceID || created.Name != "Genesis" {
		t.Fatalf("unexpected asset %+v", created)
	}

	// List defaults to the caller's assets.
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/assets", nil, aliceToken))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var assets []map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &assets); err != nil {
		t.Fatalf("unmarshal assets: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("expected 1 asset, got %d", len(assets))
	}

	// Bob has none yet.
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/assets", nil, bobToken))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := resp.Body.String(); body == "" || body == "null\n" {
		t.Fatalf("expected an empty JSON array, got %q", body)
	}

	// Transfer to bob.
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/assets/"+created.ID+"/transfer",
		marshal(t, map[string]string{"to_user_email": "bob@example.com"}), aliceToken))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body)
	}
	var result struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal transfer result: %v", err)
	}
	if result.Message != "Asset transferred successfully" {
		t.Fatalf("unexpected message %q", result.Message)
	}

	// Details reflect the new owner and carry the history.
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/assets/"+created.ID, nil, bobToken))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var details struct {
		Owner        string                   `json:"owner"`
		Transactions []map[string]interface{} `json:"transactions"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &details); err != nil {
		t.Fatalf("unmarshal details: %v", err)
	}
	if details.Owner != bobID {
		t.Fatalf("expected owner %s, got %s", bobID, details.Owner)
	}
	if len(details.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(details.Transactions))
	}

	// Audit log saw the calls.
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/audit", nil, aliceToken))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var entries []auditEntry
	if err := json.Unmarshal(resp.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshal audit entries: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected audit entries")
	}
	if entries[0].User == "" {
		t.Fatalf("expected audited user, got %+v", entries[0])
	}
}

func TestHandlerRequiresAuthentication(t *testing.T) {
	handler := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if code := decodeError(t, resp.Body.Bytes()); code != "UNAUTHENTICATED" {
		t.Fatalf("expected UNAUTHENTICATED, got %s", code)
	}
}

func TestHandlerAssetNotFound(t *testing.T) {
	handler := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/assets/no-such-asset", nil, aliceToken))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if code := decodeError(t, resp.Body.Bytes()); code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", code)
	}
}

func TestHandlerTransferForAnotherUserForbidden(t *testing.T) {
	handler := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/assets",
		marshal(t, map[string]string{"name": "Guarded"}), aliceToken))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(resp.Body.Bytes(), &created)

	// Bob tries to move alice's asset on her behalf.
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/assets/"+created.ID+"/transfer",
		marshal(t, map[string]string{"from_user_id": aliceID, "to_user_email": "bob@example.com"}), bobToken))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", resp.Code, resp.Body)
	}
	if code := decodeError(t, resp.Body.Bytes()); code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %s", code)
	}
}

func TestHandlerTransferRecipientNotFound(t *testing.T) {
	handler := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/assets",
		marshal(t, map[string]string{"name": "Orphan"}), aliceToken))
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(resp.Body.Bytes(), &created)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/assets/"+created.ID+"/transfer",
		marshal(t, map[string]string{"to_user_email": "ghost@example.com"}), aliceToken))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", resp.Code, resp.Body)
	}
	if code := decodeError(t, resp.Body.Bytes()); code != "RECIPIENT_NOT_FOUND" {
		t.Fatalf("expected RECIPIENT_NOT_FOUND, got %s", code)
	}
}

func TestHandlerRejectsUnknownFields(t *testing.T) {
	handler := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/assets",
		marshal(t, map[string]string{"name": "X", "bogus": "field"}), aliceToken))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.Code)
	}
}

func TestHandlerCreateForOtherUserForbidden(t *testing.T) {
	handler := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/assets",
		marshal(t, map[string]string{"name": "Planted", "owner_id": bobID}), aliceToken))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestHandlerHealthAndMetrics(t *testing.T) {
	handler := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 healthz, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 metrics, got %d", resp.Code)
	}
	if resp.Body.Len() == 0 {
		t.Fatal("expected metrics output")
	}
}

func TestHandlerAuditLimitValidation(t *testing.T) {
	handler := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/audit?limit=abc", nil, aliceToken))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
