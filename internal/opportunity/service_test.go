package opportunity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
)

// mockRepository implements RepositoryInterface for testing
type mockRepository struct {
	listFunc           func(ctx context.Context, f ListFilter, today time.Time) ([]Opportunity, error)
	getFunc            func(ctx context.Context, id string, today time.Time) (*Opportunity, error)
	listProceduresFunc func(ctx context.Context, id string) ([]Procedure, error)
}

func (m *mockRepository) FindTarget(ctx context.Context, q db.DBTX, patientID int64) (string, bool, error) {
	return "", false, errors.New("not implemented")
}

func (m *mockRepository) Create(ctx context.Context, q db.DBTX, s Summary) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockRepository) Update(ctx context.Context, q db.DBTX, id string, s Summary) error {
	return errors.New("not implemented")
}

func (m *mockRepository) ReplaceProcedures(ctx context.Context, q db.DBTX, id string, lines []Line) error {
	return errors.New("not implemented")
}

func (m *mockRepository) List(ctx context.Context, f ListFilter, today time.Time) ([]Opportunity, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, f, today)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) Get(ctx context.Context, id string, today time.Time) (*Opportunity, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id, today)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) ListProcedures(ctx context.Context, id string) ([]Procedure, error) {
	if m.listProceduresFunc != nil {
		return m.listProceduresFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

type stubSigner struct {
	link string
	err  error
}

func (s stubSigner) LinkFor(patientID int64) (string, error) {
	return s.link, s.err
}

func TestServiceList_UsesUTCDateAndCapsLimit(t *testing.T) {
	var gotToday time.Time
	var gotFilter ListFilter
	repo := &mockRepository{
		listFunc: func(ctx context.Context, f ListFilter, today time.Time) ([]Opportunity, error) {
			gotToday, gotFilter = today, f
			return []Opportunity{}, nil
		},
	}

	service := NewService(repo, nil, nil)
	loc := time.FixedZone("UTC-8", -8*3600)
	service.now = func() time.Time { return time.Date(2026, 5, 31, 20, 15, 0, 0, loc) }

	_, err := service.List(context.Background(), ListFilter{Limit: 9000})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if !gotToday.Equal(want) {
		t.Errorf("Expected today %v, got %v", want, gotToday)
	}
	if gotFilter.Limit != 500 {
		t.Errorf("Expected limit capped at 500, got %d", gotFilter.Limit)
	}
}

func TestServiceList_DefaultsLimit(t *testing.T) {
	repo := &mockRepository{
		listFunc: func(ctx context.Context, f ListFilter, today time.Time) ([]Opportunity, error) {
			if f.Limit != 100 {
				t.Errorf("Expected default limit 100, got %d", f.Limit)
			}
			return nil, nil
		},
	}

	if _, err := NewService(repo, nil, nil).List(context.Background(), ListFilter{}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func TestServiceDetail_IncludesProceduresAndLink(t *testing.T) {
	repo := &mockRepository{
		getFunc: func(ctx context.Context, id string, today time.Time) (*Opportunity, error) {
			return &Opportunity{ID: id, PatientID: 31, TotalFee: 900}, nil
		},
		listProceduresFunc: func(ctx context.Context, id string) ([]Procedure, error) {
			return []Procedure{{Code: "D2740", Fee: 900}}, nil
		},
	}

	service := NewService(repo, nil, stubSigner{link: "https://book.example/s?token=abc"})

	d, err := service.Detail(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(d.Procedures) != 1 || d.Procedures[0].Code != "D2740" {
		t.Errorf("Unexpected procedures: %+v", d.Procedures)
	}
	if d.SchedulingLink != "https://book.example/s?token=abc" {
		t.Errorf("Unexpected scheduling link: %s", d.SchedulingLink)
	}
}

func TestServiceDetail_NotFound(t *testing.T) {
	repo := &mockRepository{
		getFunc: func(ctx context.Context, id string, today time.Time) (*Opportunity, error) {
			return nil, ErrNotFound
		},
	}

	_, err := NewService(repo, nil, stubSigner{}).Detail(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got: %v", err)
	}
}

func TestServiceDetail_SignerFailure(t *testing.T) {
	repo := &mockRepository{
		getFunc: func(ctx context.Context, id string, today time.Time) (*Opportunity, error) {
			return &Opportunity{ID: id, PatientID: 1}, nil
		},
		listProceduresFunc: func(ctx context.Context, id string) ([]Procedure, error) {
			return []Procedure{}, nil
		},
	}

	_, err := NewService(repo, nil, stubSigner{err: errors.New("no key")}).Detail(context.Background(), "op-1")
	if err == nil {
		t.Fatal("Expected signer error to surface")
	}
}
