package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/buynest/live-assist/internal/domain"
)

func seedAssist(t *testing.T, repo *memRepo, id, userID string) {
	t.Helper()
	now := time.Now()
	err := repo.CreateAssist(context.Background(), &domain.AssistRequest{
		ID: id, UserID: userID, Name: "Shopper", Email: "shopper@example.com",
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Failed to seed assist request: %v", err)
	}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return body
}

func TestAssistHandler_ListPending(t *testing.T) {
	r, repo, _ := newTestRouter()
	seedAssist(t, repo, "r1", "u1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/assist/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeEnvelope(t, w)
	if body["success"] != true {
		t.Errorf("Expected success=true, got %v", body["success"])
	}
	reqs, ok := body["assist"].([]interface{})
	if !ok || len(reqs) != 1 {
		t.Errorf("Expected 1 assist request, got %v", body["assist"])
	}
}

func TestAssistHandler_RequestThenAccept(t *testing.T) {
	r, repo, hub := newTestRouter()
	repo.carts["u1"] = domain.CartSnapshot{"shirt-1": {"L": 2}}

	payload := bytes.NewBufferString(`{"userId":"u1","name":"Shopper","email":"shopper@example.com"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/assist/", payload))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on create, got %d: %s", w.Code, w.Body.String())
	}

	pending, err := repo.ListPendingAssists(context.Background())
	if err != nil || len(pending) != 1 {
		t.Fatalf("Expected 1 pending request, got %v (%v)", pending, err)
	}
	requestID := pending[0].ID

	// Helper accepts; its relay connection is excluded from the broadcast.
	helper := hub.Attach("helper-1")
	other := hub.Attach("observer")

	acceptReq := httptest.NewRequest(http.MethodPut, "/api/assist/"+requestID, nil)
	acceptReq.Header.Set(RelayClientHeader, "helper-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, acceptReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on accept, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeEnvelope(t, w)
	if body["message"] != "Assist request accepted" {
		t.Errorf("Unexpected message: %v", body["message"])
	}
	cartData, ok := body["cartData"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected cartData object, got %v", body["cartData"])
	}
	if _, ok := cartData["shirt-1"]; !ok {
		t.Errorf("Expected shirt-1 in cartData, got %v", cartData)
	}

	select {
	case <-helper.Receive():
		t.Error("Expected accepting helper excluded from cartInfo broadcast")
	default:
	}
	select {
	case <-other.Receive():
	default:
		t.Error("Expected observer to receive cartInfo broadcast")
	}
}

func TestAssistHandler_AcceptMissing(t *testing.T) {
	r, _, _ := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/assist/ghost", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	body := decodeEnvelope(t, w)
	if body["message"] != "Assist request not found" {
		t.Errorf("Unexpected message: %v", body["message"])
	}
}

func TestAssistHandler_Remove(t *testing.T) {
	r, repo, _ := newTestRouter()
	seedAssist(t, repo, "r1", "u1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/assist/r1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/assist/r1", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 on second delete, got %d", w.Code)
	}
}

func TestAssistHandler_Messages(t *testing.T) {
	r, _, _ := newTestRouter()

	payload := bytes.NewBufferString(`{"userId":"u1","userEmail":"s@example.com","content":"help please","from":"user"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/messages/", payload))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/messages/u1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeEnvelope(t, w)
	msgs, ok := body["messages"].([]interface{})
	if !ok || len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %v", body["messages"])
	}
}

func TestAssistHandler_SendMessageValidation(t *testing.T) {
	r, _, _ := newTestRouter()

	payload := bytes.NewBufferString(`{"userId":"u1","userEmail":"s@example.com","content":"","from":"user"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/messages/", payload))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}
