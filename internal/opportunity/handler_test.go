package opportunity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/lib/pq"
)

// mockService implements ServiceInterface for testing
type mockService struct {
	ingestFunc func(ctx context.Context, batch []Snapshot) (int, error)
	listFunc   func(ctx context.Context, f ListFilter) ([]Opportunity, error)
	detailFunc func(ctx context.Context, id string) (*Detail, error)
}

func (m *mockService) Ingest(ctx context.Context, batch []Snapshot) (int, error) {
	if m.ingestFunc != nil {
		return m.ingestFunc(ctx, batch)
	}
	return 0, errors.New("not implemented")
}

func (m *mockService) List(ctx context.Context, f ListFilter) ([]Opportunity, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, f)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) Lookup(ctx context.Context, id string) (*Opportunity, error) {
	return nil, errors.New("not implemented")
}

func (m *mockService) Detail(ctx context.Context, id string) (*Detail, error) {
	if m.detailFunc != nil {
		return m.detailFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

const testOpportunityID = "3f1c9a52-7d3e-4c1b-9a55-0e6f2b7d8c10"

func TestHandlerIngest_Array(t *testing.T) {
	handler := NewHandler(&mockService{
		ingestFunc: func(ctx context.Context, batch []Snapshot) (int, error) {
			return len(batch), nil
		},
	})

	body := `[{"patient_id": 1, "procedures": [{"code": "D0120", "fee": "45.50"}]}, {"patient_id": 2}]`
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
	rr := httptest.NewRecorder()

	handler.Ingest(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp IngestResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.Success || resp.Processed != 2 {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestHandlerIngest_WrappedObject(t *testing.T) {
	handler := NewHandler(&mockService{
		ingestFunc: func(ctx context.Context, batch []Snapshot) (int, error) {
			if len(batch) != 1 || batch[0].PatientID != 77 {
				t.Errorf("Unexpected batch: %+v", batch)
			}
			return 1, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(`{"snapshots": [{"patient_id": 77}]}`))
	rr := httptest.NewRecorder()

	handler.Ingest(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
}

func TestHandlerIngest_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"malformed json", `[{`, nil, http.StatusBadRequest, "invalid_request"},
		{"no snapshots", `{}`, nil, http.StatusBadRequest, "invalid_request"},
		{"invalid snapshot", `[{}]`, fmt.Errorf("snapshot 0: %w: patient_id is required", ErrInvalidSnapshot), http.StatusBadRequest, "validation_error"},
		{"check violation", `[{"patient_id":1}]`, fmt.Errorf("snapshot 0: %w", &pq.Error{Code: "23514"}), http.StatusBadRequest, "validation_error"},
		{"store failure", `[{"patient_id":1}]`, errors.New("snapshot 0: connection refused"), http.StatusInternalServerError, "ingest_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(&mockService{
				ingestFunc: func(ctx context.Context, batch []Snapshot) (int, error) {
					return 0, tt.err
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()

			handler.Ingest(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}

			var resp map[string]string
			json.NewDecoder(rr.Body).Decode(&resp)
			if resp["error"] != tt.wantType {
				t.Errorf("Expected error type %s, got %s", tt.wantType, resp["error"])
			}
			if tt.err != nil && resp["message"] != tt.err.Error() {
				t.Errorf("Expected message %q, got %q", tt.err.Error(), resp["message"])
			}
		})
	}
}

func TestHandlerList_ParsesFilters(t *testing.T) {
	var got ListFilter
	handler := NewHandler(&mockService{
		listFunc: func(ctx context.Context, f ListFilter) ([]Opportunity, error) {
			got = f
			return []Opportunity{{ID: "a"}, {ID: "b"}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/opportunities?min_value=2500&min_days=abc&q=smi&limit=9999", nil)
	rr := httptest.NewRecorder()

	handler.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if got.MinValue != 2500 || got.MinDays != 0 || got.Query != "smi" || got.Limit != 500 {
		t.Errorf("Unexpected filter: %+v", got)
	}

	var resp ListResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Count != 2 || len(resp.Opportunities) != 2 {
		t.Errorf("Expected 2 opportunities, got %+v", resp)
	}
}

func TestHandlerGet(t *testing.T) {
	handler := NewHandler(&mockService{
		detailFunc: func(ctx context.Context, id string) (*Detail, error) {
			if id != testOpportunityID {
				return nil, ErrNotFound
			}
			return &Detail{Opportunity: Opportunity{ID: id}, Procedures: []Procedure{}, SchedulingLink: "https://x/?token=t"}, nil
		},
	})

	tests := []struct {
		id         string
		wantStatus int
	}{
		{testOpportunityID, http.StatusOK},
		{"0c0c0c0c-0000-4000-8000-000000000000", http.StatusNotFound},
		{"not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/opportunities/"+tt.id, nil)
		req = mux.SetURLVars(req, map[string]string{"id": tt.id})
		rr := httptest.NewRecorder()

		handler.Get(rr, req)

		if rr.Code != tt.wantStatus {
			t.Errorf("%s: expected status %d, got %d", tt.id, tt.wantStatus, rr.Code)
		}
	}
}

func TestHandlerExport_ContentType(t *testing.T) {
	handler := NewHandler(&mockService{
		listFunc: func(ctx context.Context, f ListFilter) ([]Opportunity, error) {
			return []Opportunity{{ID: "a", PatientID: 1}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/opportunities/export.xlsx", nil)
	rr := httptest.NewRecorder()

	handler.Export(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Unexpected content type: %s", ct)
	}
	if rr.Body.Len() == 0 {
		t.Error("Expected workbook bytes")
	}
}
