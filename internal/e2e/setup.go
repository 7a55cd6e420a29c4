//go:build integration

package e2e

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/WailSalutem-Health-Care/recall-service/internal/contact"
	httpserver "github.com/WailSalutem-Health-Care/recall-service/internal/http"
	"github.com/WailSalutem-Health-Care/recall-service/internal/notify"
	"github.com/WailSalutem-Health-Care/recall-service/internal/opportunity"
	"github.com/WailSalutem-Health-Care/recall-service/internal/patient"
	"github.com/WailSalutem-Health-Care/recall-service/internal/schedlink"
	"github.com/WailSalutem-Health-Care/recall-service/internal/testutil"
)

const (
	testSecret        = "e2e-shared-secret"
	testSigningSecret = "e2e-signing-secret"
	testTemplates     = `
templates:
  recall:
    body: "Hi {{.FirstName}}, book here: {{.SchedulingLink}}"
`
)

// Vendor is a fake messaging provider that records what it receives.
type Vendor struct {
	Server *httptest.Server

	mu       sync.Mutex
	payloads []map[string]interface{}
	status   int
	body     string
}

func newVendor() *Vendor {
	v := &Vendor{status: http.StatusOK, body: `{"message_id":"msg-1"}`}
	v.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		_ = json.Unmarshal(raw, &payload)

		v.mu.Lock()
		v.payloads = append(v.payloads, payload)
		status, body := v.status, v.body
		v.mu.Unlock()

		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	return v
}

// Respond sets the status and body returned for subsequent sends.
func (v *Vendor) Respond(status int, body string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status, v.body = status, body
}

// Payloads returns every payload received so far.
func (v *Vendor) Payloads() []map[string]interface{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]map[string]interface{}, len(v.payloads))
	copy(out, v.payloads)
	return out
}

// TestServer represents a complete E2E test environment
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	MockPublisher *testutil.MockPublisher
	Vendor        *Vendor
	Signer        *schedlink.Signer
}

// SetupE2ETest wires the real router, repositories and services against the
// test database, with an in-memory publisher and a fake messaging vendor.
func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	testutil.CleanupTestDB(t, conn)

	publisher := testutil.NewMockPublisher()
	vendor := newVendor()
	signer := schedlink.NewSigner("https://book.example/schedule", testSigningSecret)
	sender := notify.NewClient(vendor.Server.URL, "", 0)

	templates, err := contact.ParseTemplates([]byte(testTemplates))
	if err != nil {
		t.Fatalf("Failed to parse templates: %v", err)
	}

	patientRepo := patient.NewRepository(conn)
	reconciler := opportunity.NewReconciler(conn, patientRepo, opportunity.NewRepository(conn), publisher)
	oppService := opportunity.NewService(opportunity.NewRepository(conn), reconciler, signer)
	contactService := contact.NewService(conn, contact.NewRepository(conn), oppService, signer, sender, publisher).
		WithTemplates(templates)

	router := httpserver.SetupRouter(conn, httpserver.Handlers{
		Opportunities: opportunity.NewHandler(oppService),
		Contacts:      contact.NewHandler(contactService),
		Patients:      patient.NewHandler(patient.NewService(patientRepo, publisher)),
	}, httpserver.Options{SharedSecret: testSecret})

	return &TestServer{
		Server:        httptest.NewServer(router),
		DB:            conn,
		MockPublisher: publisher,
		Vendor:        vendor,
		Signer:        signer,
	}
}

// Client returns an HTTP client that sends the shared secret.
func (ts *TestServer) Client() *testutil.HTTPTestClient {
	return testutil.NewHTTPTestClient(ts.Server.URL, testSecret)
}

// AnonymousClient returns an HTTP client without the shared secret.
func (ts *TestServer) AnonymousClient() *testutil.HTTPTestClient {
	return testutil.NewHTTPTestClient(ts.Server.URL, "")
}

// Cleanup cleans up all test resources
func (ts *TestServer) Cleanup(t *testing.T) {
	t.Helper()

	ts.Server.Close()
	ts.Vendor.Server.Close()
	testutil.CleanupTestDB(t, ts.DB)
	ts.DB.Close()
}

// listResponse mirrors the GET /opportunities body.
type listResponse struct {
	Success       bool                      `json:"success"`
	Count         int                       `json:"count"`
	Opportunities []opportunity.Opportunity `json:"opportunities"`
}

// List fetches the ranked list with the given query string.
func (ts *TestServer) List(t *testing.T, query string) listResponse {
	t.Helper()

	resp := ts.AnonymousClient().GET(t, "/opportunities"+query)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200 from list, got %d: %s", resp.StatusCode, testutil.ReadBody(t, resp))
	}
	var out listResponse
	testutil.DecodeJSON(t, resp, &out)
	return out
}
