package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shoplink/api/internal/accounts"
	"shoplink/api/internal/config"
	"shoplink/api/internal/realtime"
)

type testServer struct {
	server *HTTPServer
	store  *memStore
	hub    *realtime.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ms := newMemStore()
	hub := realtime.NewHub()
	svc := &Service{
		cfg:         config.Config{JWTSecret: "test-secret", AccessTTL: time.Hour},
		store:       ms,
		accounts:    accounts.NewService(ms),
		broadcaster: hub,
	}
	return &testServer{
		server: NewHTTPServer(svc, hub, "*"),
		store:  ms,
		hub:    hub,
	}
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func decodeListResponse(t *testing.T, rr *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var payload []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}

// registerAndLogin provisions a user through the public endpoints and
// returns a bearer token.
func (ts *testServer) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct horse battery",
		"name":     "Test User",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rr.Code, rr.Body.String())
	}

	rr = ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "correct horse battery",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}
	token, _ := decodeResponse(t, rr)["access_token"].(string)
	if token == "" {
		t.Fatal("expected access_token")
	}
	return token
}

func (ts *testServer) createList(t *testing.T, bearer, name string) string {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/lists", bearer, map[string]string{"name": name})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create list failed: %d %s", rr.Code, rr.Body.String())
	}
	id, _ := decodeResponse(t, rr)["id"].(string)
	if id == "" {
		t.Fatal("expected list id")
	}
	return id
}

func (ts *testServer) createItem(t *testing.T, bearer, listID string, body map[string]any) string {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/lists/"+listID+"/items", bearer, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create item failed: %d %s", rr.Code, rr.Body.String())
	}
	id, _ := decodeResponse(t, rr)["id"].(string)
	if id == "" {
		t.Fatal("expected item id")
	}
	return id
}
