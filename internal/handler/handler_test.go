// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/rmcosta/fedsite-go/internal/facade"
	"github.com/rmcosta/fedsite-go/internal/identity"
	"github.com/rmcosta/fedsite-go/internal/remote"
	"github.com/rmcosta/fedsite-go/internal/session"
	"github.com/rmcosta/fedsite-go/internal/testutil"
)

// testServer wraps an API server running against the demo store only.
type testServer struct {
	server *httptest.Server
	client *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	testutil.SilenceLogs(t)

	db := testutil.TestDB(t)
	client := remote.New("", "")

	resolver, err := identity.NewResolver(client, db, time.Second)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	f := facade.New(facade.Options{
		Remote:          client,
		DB:              db,
		Timeout:         time.Second,
		DocumentsBucket: "documents",
		EventsBucket:    "event-images",
	})

	sm := session.New(db, true)

	router := NewRouter(RouterOptions{
		DB:             db,
		Facade:         f,
		Resolver:       resolver,
		SessionManager: sm,
		CSRFKey:        bytes.Repeat([]byte("k"), 32),
		IsDevelopment:  true,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}

	return &testServer{
		server: server,
		client: &http.Client{Jar: jar},
	}
}

func (ts *testServer) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := ts.client.Get(ts.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp, decodeBody(t, resp)
}

func (ts *testServer) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	return ts.doJSON(t, http.MethodPost, path, body)
}

func (ts *testServer) doJSON(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	var body map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			t.Fatalf("decoding body %q: %v", data, err)
		}
	}
	return body
}

func (ts *testServer) signIn(t *testing.T, email, password string) {
	t.Helper()
	resp, body := ts.postJSON(t, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sign-in as %s: status = %d, body = %v", email, resp.StatusCode, body)
	}
}

func TestPing(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, "/ping")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" || body["message"] != "pong" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["timestamp"]; !ok {
		t.Error("response has no timestamp")
	}
}

func TestDemoEndpointReportsDemoMode(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, "/demo")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	// No remote backend configured, so the demo store serves everything
	if body["status"] != "demo" {
		t.Errorf("status = %v, want demo", body["status"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/health status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "healthy" {
		t.Errorf("health status = %v", body["status"])
	}

	resp, body = ts.get(t, "/health/live")
	if resp.StatusCode != http.StatusOK || body["status"] != "alive" {
		t.Errorf("/health/live = %d %v", resp.StatusCode, body)
	}

	resp, body = ts.get(t, "/health/ready")
	if resp.StatusCode != http.StatusOK || body["status"] != "ready" {
		t.Errorf("/health/ready = %d %v", resp.StatusCode, body)
	}
}

func TestSessionSignedOut(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, "/api/v1/auth/session")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["state"] != "signed_out" {
		t.Errorf("state = %v, want signed_out", body["state"])
	}
}

func TestLoginDemoAdmin(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.postJSON(t, "/api/v1/auth/login", map[string]string{
		"email":    identity.DemoAdminEmail,
		"password": identity.DemoPassword,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["provenance"] != "demo" {
		t.Errorf("provenance = %v, want demo", body["provenance"])
	}
	if body["demo_mode"] != true {
		t.Error("demo sign-in should report demo mode")
	}

	// The session cookie now carries the identity
	_, body = ts.get(t, "/api/v1/auth/session")
	if body["state"] != "signed_in_demo" {
		t.Errorf("state = %v, want signed_in_demo", body["state"])
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.postJSON(t, "/api/v1/auth/login", map[string]string{
		"email":    identity.DemoAdminEmail,
		"password": "nope",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t, identity.DemoAdminEmail, identity.DemoPassword)

	resp, _ := ts.postJSON(t, "/api/v1/auth/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}

	_, body := ts.get(t, "/api/v1/auth/session")
	if body["state"] != "signed_out" {
		t.Errorf("state after logout = %v, want signed_out", body["state"])
	}
}

func TestCreateDocumentRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.postJSON(t, "/api/v1/documents/", map[string]string{})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestListDocumentsPublic(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, "/api/v1/documents/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	docs, ok := body["documents"].([]any)
	if !ok {
		t.Fatalf("documents missing from body %v", body)
	}
	if len(docs) == 0 {
		t.Error("seeded demo store should list documents")
	}
}

func TestDocumentLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t, identity.DemoAdminEmail, identity.DemoPassword)

	// Create with a small PDF upload
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Regulamento de Provas")
	_ = mw.WriteField("category", "editais")
	_ = mw.WriteField("tags", "regulamento, 2026")
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="regulamento.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	_, _ = part.Write([]byte("%PDF-1.4 test"))
	_ = mw.Close()

	resp, err := ts.client.Post(ts.server.URL+"/api/v1/documents/", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST documents: %v", err)
	}
	body := decodeBody(t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body = %v", resp.StatusCode, body)
	}
	doc, ok := body["document"].(map[string]any)
	if !ok {
		t.Fatalf("no document in body %v", body)
	}
	id, _ := doc["id"].(string)
	if !strings.HasPrefix(id, "demo-doc-") {
		t.Errorf("id = %q, want demo-doc- prefix", id)
	}

	// Patch the title
	resp, body = ts.doJSON(t, http.MethodPatch, "/api/v1/documents/"+id,
		map[string]string{"title": "Regulamento de Provas 2026"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d, body = %v", resp.StatusCode, body)
	}
	patched := body["document"].(map[string]any)
	if patched["title"] != "Regulamento de Provas 2026" {
		t.Errorf("title = %v after patch", patched["title"])
	}

	// Download is a remote-only operation
	resp, err = ts.client.Get(ts.server.URL + "/api/v1/documents/" + id + "/download")
	if err != nil {
		t.Fatalf("GET download: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("download in demo mode: status = %d, want 409", resp.StatusCode)
	}

	// Delete
	resp, body = ts.doJSON(t, http.MethodDelete, "/api/v1/documents/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, body = %v", resp.StatusCode, body)
	}
	resp, _ = ts.get(t, "/api/v1/documents/"+id)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", resp.StatusCode)
	}
}

func TestDocumentUploadRejectsZip(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t, identity.DemoAdminEmail, identity.DemoPassword)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Arquivo")
	_ = mw.WriteField("category", "atas")
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="arquivo.zip"`)
	header.Set("Content-Type", "application/zip")
	part, _ := mw.CreatePart(header)
	_, _ = part.Write([]byte("PK\x03\x04"))
	_ = mw.Close()

	resp, err := ts.client.Post(ts.server.URL+"/api/v1/documents/", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST documents: %v", err)
	}
	body := decodeBody(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body = %v", resp.StatusCode, body)
	}
}

func TestEventModerationAuthorization(t *testing.T) {
	ts := newTestServer(t)

	// Moderators cannot approve, only admins can
	ts.signIn(t, identity.DemoModeratorEmail, identity.DemoPassword)

	_, body := ts.get(t, "/api/v1/events/?status=pending")
	events := body["events"].([]any)
	if len(events) == 0 {
		t.Fatal("seeded demo store should hold a pending event")
	}
	id := events[0].(map[string]any)["id"].(string)

	resp, _ := ts.postJSON(t, "/api/v1/events/"+id+"/approve", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("moderator approve: status = %d, want 403", resp.StatusCode)
	}

	// Fresh server so the admin starts from the same seeded state
	ts2 := newTestServer(t)
	ts2.signIn(t, identity.DemoAdminEmail, identity.DemoPassword)

	_, body = ts2.get(t, "/api/v1/events/?status=pending")
	events = body["events"].([]any)
	id = events[0].(map[string]any)["id"].(string)

	resp, body = ts2.postJSON(t, "/api/v1/events/"+id+"/approve", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin approve: status = %d, body = %v", resp.StatusCode, body)
	}
	event := body["event"].(map[string]any)
	if event["status"] != "approved" {
		t.Errorf("status = %v, want approved", event["status"])
	}
	if event["approved_by"] == "" || event["approved_by"] == nil {
		t.Error("approval should record the moderator")
	}
}

func TestEventStatusPatchCannotApprove(t *testing.T) {
	ts := newTestServer(t)

	// The seeded pending event belongs to the demo moderator, so ownership
	// alone must not be enough to decide its moderation status
	ts.signIn(t, identity.DemoModeratorEmail, identity.DemoPassword)

	_, body := ts.get(t, "/api/v1/events/?status=pending")
	events := body["events"].([]any)
	if len(events) == 0 {
		t.Fatal("seeded demo store should hold a pending event")
	}
	id := events[0].(map[string]any)["id"].(string)

	resp, _ := ts.doJSON(t, http.MethodPatch, "/api/v1/events/"+id,
		map[string]any{"status": "approved"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("owner patch to approved: status = %d, want 403", resp.StatusCode)
	}

	_, body = ts.get(t, "/api/v1/events/"+id)
	if got := body["event"].(map[string]any)["status"]; got != "pending" {
		t.Errorf("event status = %v, want pending", got)
	}

	// Admins decide through the moderation endpoints too, so approved_by is
	// always recorded
	ts2 := newTestServer(t)
	ts2.signIn(t, identity.DemoAdminEmail, identity.DemoPassword)

	resp, _ = ts2.doJSON(t, http.MethodPatch, "/api/v1/events/"+id,
		map[string]any{"status": "rejected"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("admin patch to rejected: status = %d, want 403", resp.StatusCode)
	}
}

func TestEventOwnerEditsOnlyWhilePending(t *testing.T) {
	ts := newTestServer(t)

	// demo-event-1 is seeded already approved and belongs to the moderator
	ts.signIn(t, identity.DemoModeratorEmail, identity.DemoPassword)

	resp, _ := ts.doJSON(t, http.MethodPatch, "/api/v1/events/demo-event-1",
		map[string]any{"location": "Ginásio Municipal"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("owner edit of approved event: status = %d, want 403", resp.StatusCode)
	}

	// A pending event stays editable by its owner
	resp, body := ts.doJSON(t, http.MethodPatch, "/api/v1/events/demo-event-2",
		map[string]any{"location": "Ginásio Municipal"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner edit of pending event: status = %d, body = %v", resp.StatusCode, body)
	}

	// Admins may still edit after moderation
	ts2 := newTestServer(t)
	ts2.signIn(t, identity.DemoAdminEmail, identity.DemoPassword)

	resp, body = ts2.doJSON(t, http.MethodPatch, "/api/v1/events/demo-event-1",
		map[string]any{"location": "Ginásio Municipal"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin edit of approved event: status = %d, body = %v", resp.StatusCode, body)
	}
	if got := body["event"].(map[string]any)["location"]; got != "Ginásio Municipal" {
		t.Errorf("location = %v, want Ginásio Municipal", got)
	}
}

func TestCategoryAdminOnly(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.postJSON(t, "/api/v1/categories/", map[string]any{"name": "Convocatórias"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous create: status = %d, want 401", resp.StatusCode)
	}

	ts.signIn(t, identity.DemoModeratorEmail, identity.DemoPassword)
	resp, _ = ts.postJSON(t, "/api/v1/categories/", map[string]any{"name": "Convocatórias"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("moderator create: status = %d, want 403", resp.StatusCode)
	}
}

func TestCategoryCreateGeneratesSlug(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t, identity.DemoAdminEmail, identity.DemoPassword)

	resp, body := ts.postJSON(t, "/api/v1/categories/", map[string]any{
		"name":    "Convocatórias Oficiais",
		"visible": true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	category := body["category"].(map[string]any)
	if category["slug"] != "convocatorias-oficiais" {
		t.Errorf("slug = %v, want convocatorias-oficiais", category["slug"])
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, "/api/v1/nonsense")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if body["success"] != false {
		t.Errorf("body = %v", body)
	}
}
