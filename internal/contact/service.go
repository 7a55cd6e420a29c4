package contact

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
	"github.com/WailSalutem-Health-Care/recall-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/recall-service/internal/notify"
	"github.com/WailSalutem-Health-Care/recall-service/internal/opportunity"
	"github.com/rs/zerolog/log"
)

// OpportunityLookup loads the opportunity a contact is about.
type OpportunityLookup interface {
	Lookup(ctx context.Context, id string) (*opportunity.Opportunity, error)
}

type LinkSigner interface {
	LinkFor(patientID int64) (string, error)
}

// Sender delivers a payload to the messaging vendor.
type Sender interface {
	Send(ctx context.Context, payload interface{}) notify.Result
}

// Guard suppresses duplicate dispatches.
type Guard interface {
	Acquire(ctx context.Context, opportunityID, channel, templateKey string) bool
}

// MetricsRecorder receives workflow counts. Optional.
type MetricsRecorder interface {
	RecordDispatch(ctx context.Context, result string)
	RecordOutcome(ctx context.Context, result string)
	RecordStatusOverride(ctx context.Context, kind string)
}

type Service struct {
	db        *sql.DB
	repo      RepositoryInterface
	opps      OpportunityLookup
	signer    LinkSigner
	sender    Sender
	publisher messaging.PublisherInterface
	templates *Templates
	guard     Guard
	metrics   MetricsRecorder
	now       func() time.Time
}

func NewService(conn *sql.DB, repo RepositoryInterface, opps OpportunityLookup, signer LinkSigner, sender Sender, publisher messaging.PublisherInterface) *Service {
	return &Service{
		db:        conn,
		repo:      repo,
		opps:      opps,
		signer:    signer,
		sender:    sender,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *Service) WithTemplates(t *Templates) *Service {
	s.templates = t
	return s
}

func (s *Service) WithGuard(g Guard) *Service {
	s.guard = g
	return s
}

func (s *Service) WithMetrics(m MetricsRecorder) *Service {
	s.metrics = m
	return s
}

// Dispatch sends one contact for the opportunity. Whatever the vendor
// answers, the opportunity ends up contacted and the attempt is logged as
// sent or failed.
func (s *Service) Dispatch(ctx context.Context, opportunityID string, req DispatchRequest) (*DispatchResult, error) {
	o, err := s.opps.Lookup(ctx, opportunityID)
	if err != nil {
		if errors.Is(err, opportunity.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load opportunity: %w", err)
	}

	channel := strings.TrimSpace(req.Channel)
	templateKey := strings.TrimSpace(req.TemplateKey)

	if s.guard != nil && !s.guard.Acquire(ctx, opportunityID, channel, templateKey) {
		return nil, ErrDispatchInFlight
	}

	payload := newPayload(o, channel, templateKey)

	var res notify.Result
	link, linkErr := s.signer.LinkFor(o.PatientID)
	if linkErr != nil {
		log.Error().Err(linkErr).Str("opportunity_id", opportunityID).Msg("failed to sign scheduling link, skipping delivery")
		res = notify.Result{Body: linkErr.Error()}
	} else {
		payload.SchedulingLink = link
		if msg, ok, err := s.templates.Render(templateKey, payload); err != nil {
			log.Warn().Err(err).Str("template_key", templateKey).Msg("template render failed")
		} else if ok {
			payload.Message = msg
		}
		res = s.sender.Send(ctx, payload)
	}

	result := ResultFailed
	if res.OK {
		result = ResultSent
	}

	audit, err := json.Marshal(map[string]interface{}{
		"request": payload,
		"response": map[string]interface{}{
			"ok":          res.OK,
			"status_code": res.StatusCode,
			"body":        res.Body,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode contact payload: %w", err)
	}

	now := s.now().UTC()
	entry := LogEntry{
		OpportunityID: opportunityID,
		Channel:       channel,
		TemplateKey:   templateKey,
		Result:        result,
		VendorMsgID:   optional(res.MessageID),
		Payload:       audit,
		CreatedAt:     now,
	}

	var logID string
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.repo.MarkContacted(ctx, tx, opportunityID, now); err != nil {
			return err
		}
		logID, err = s.repo.AppendLog(ctx, tx, entry)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || db.IsForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to record contact: %w", err)
	}

	log.Info().
		Str("opportunity_id", opportunityID).
		Str("channel", channel).
		Str("template_key", templateKey).
		Str("result", result).
		Int("vendor_status", res.StatusCode).
		Msg("contact dispatched")

	if s.metrics != nil {
		s.metrics.RecordDispatch(ctx, result)
	}
	s.publish(ctx, messaging.EventOpportunityContacted, messaging.OpportunityContactedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventOpportunityContacted),
		Data: messaging.OpportunityContactedData{
			OpportunityID: opportunityID,
			PatientID:     o.PatientID,
			Channel:       channel,
			TemplateKey:   templateKey,
			Result:        result,
			ContactedAt:   now,
		},
	})

	return &DispatchResult{
		Success:        res.OK,
		VendorResponse: res.Body,
		VendorStatus:   res.StatusCode,
		VendorMsgID:    res.MessageID,
		Status:         StatusContacted,
		ContactedAt:    now,
		LogID:          logID,
	}, nil
}

// RecordOutcome logs a vendor callback and applies its status when one is
// given. Existence of the opportunity is left to the foreign key.
func (s *Service) RecordOutcome(ctx context.Context, o Outcome) (string, error) {
	var status Status
	hasStatus := strings.TrimSpace(o.Status) != ""
	if hasStatus {
		var err error
		if status, err = ParseStatus(o.Status); err != nil {
			return "", err
		}
	}

	result := strings.TrimSpace(o.Result)
	if result == "" {
		result = ResultUnknown
	}

	payload := o.Raw
	if len(payload) == 0 {
		raw, err := json.Marshal(o)
		if err != nil {
			return "", fmt.Errorf("failed to encode outcome: %w", err)
		}
		payload = raw
	}

	now := s.now().UTC()
	entry := LogEntry{
		OpportunityID: o.OpportunityID,
		Channel:       strings.TrimSpace(o.Channel),
		TemplateKey:   strings.TrimSpace(o.TemplateKey),
		Result:        result,
		VendorMsgID:   optional(o.VendorMsgID),
		Payload:       payload,
		CreatedAt:     now,
	}

	var logID string
	var oldStatus Status
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if logID, err = s.repo.AppendLog(ctx, tx, entry); err != nil {
			return err
		}
		if hasStatus {
			oldStatus, err = s.repo.SetStatus(ctx, tx, o.OpportunityID, status, now)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || db.IsForeignKeyViolation(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to record outcome: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordOutcome(ctx, result)
	}
	s.publish(ctx, messaging.EventOpportunityOutcome, messaging.OpportunityOutcomeEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventOpportunityOutcome),
		Data: messaging.OpportunityOutcomeData{
			OpportunityID: o.OpportunityID,
			Result:        result,
			VendorMsgID:   o.VendorMsgID,
			Status:        string(status),
		},
	})
	if hasStatus {
		s.statusChanged(ctx, o.OpportunityID, oldStatus, status, "callback", now)
	}

	return logID, nil
}

// OverrideStatus sets any status on the opportunity, defaulting to new.
func (s *Service) OverrideStatus(ctx context.Context, opportunityID, raw string) (*StatusChange, error) {
	status, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	old, err := s.repo.SetStatus(ctx, s.db, opportunityID, status, now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to override status: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordStatusOverride(ctx, status.Kind())
	}
	s.statusChanged(ctx, opportunityID, old, status, "operator", now)

	return &StatusChange{OpportunityID: opportunityID, OldStatus: old, NewStatus: status}, nil
}

// ListLog returns the contact history of an opportunity, newest first.
func (s *Service) ListLog(ctx context.Context, opportunityID string) ([]LogEntry, error) {
	if _, err := s.opps.Lookup(ctx, opportunityID); err != nil {
		if errors.Is(err, opportunity.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load opportunity: %w", err)
	}

	entries, err := s.repo.ListLog(ctx, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact log: %w", err)
	}
	return entries, nil
}

func (s *Service) statusChanged(ctx context.Context, opportunityID string, old, status Status, source string, at time.Time) {
	if !status.IsKnown() {
		log.Warn().
			Str("opportunity_id", opportunityID).
			Str("status", string(status)).
			Str("source", source).
			Msg("opportunity moved to an external status")
	}

	s.publish(ctx, messaging.EventOpportunityStatusChanged, messaging.OpportunityStatusChangedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventOpportunityStatusChanged),
		Data: messaging.OpportunityStatusChangedData{
			OpportunityID: opportunityID,
			OldStatus:     string(old),
			NewStatus:     string(status),
			Source:        source,
			ChangedAt:     at,
		},
	})
}

func (s *Service) publish(ctx context.Context, routingKey string, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Msg("failed to publish event")
	}
}

func newPayload(o *opportunity.Opportunity, channel, templateKey string) Payload {
	return Payload{
		OpportunityID: o.ID,
		PatientID:     o.PatientID,
		FirstName:     o.FirstName,
		LastName:      o.LastName,
		Phone:         o.Phone,
		Email:         o.Email,
		TotalFee:      o.TotalFee,
		PlanCount:     o.PlanCount,
		LastPlanDate:  o.LastPlanDate,
		DaysSincePlan: o.DaysSincePlan,
		TopCodes:      o.TopCodes,
		Channel:       channel,
		TemplateKey:   templateKey,
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
