package opportunity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/WailSalutem-Health-Care/recall-service/internal/pagination"
)

// LinkSigner produces a signed scheduling link for a patient.
type LinkSigner interface {
	LinkFor(patientID int64) (string, error)
}

type Service struct {
	repo       RepositoryInterface
	reconciler *Reconciler
	signer     LinkSigner
	now        func() time.Time
}

func NewService(repo RepositoryInterface, reconciler *Reconciler, signer LinkSigner) *Service {
	return &Service{repo: repo, reconciler: reconciler, signer: signer, now: time.Now}
}

func (s *Service) Ingest(ctx context.Context, batch []Snapshot) (int, error) {
	return s.reconciler.Ingest(ctx, batch)
}

// List returns opportunities ranked by score, highest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Opportunity, error) {
	p := pagination.Params{Limit: f.Limit}
	p.Validate()
	f.Limit = p.Limit

	opps, err := s.repo.List(ctx, f, s.today())
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	return opps, nil
}

// Lookup loads one opportunity with its patient fields, without procedures.
func (s *Service) Lookup(ctx context.Context, id string) (*Opportunity, error) {
	o, err := s.repo.Get(ctx, id, s.today())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}
	return o, nil
}

// Detail loads the opportunity, its procedure lines and a fresh scheduling link.
func (s *Service) Detail(ctx context.Context, id string) (*Detail, error) {
	o, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	procs, err := s.repo.ListProcedures(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get procedures: %w", err)
	}

	d := &Detail{Opportunity: *o, Procedures: procs}
	if s.signer != nil {
		link, err := s.signer.LinkFor(o.PatientID)
		if err != nil {
			return nil, fmt.Errorf("failed to sign scheduling link: %w", err)
		}
		d.SchedulingLink = link
	}
	return d, nil
}

// today is the current UTC calendar date.
func (s *Service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
