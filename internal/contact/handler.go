package contact

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/WailSalutem-Health-Care/recall-service/internal/opportunity"
	"github.com/google/uuid"
)

const maxCallbackBody = 1 << 20

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	id, ok := opportunity.ParseID(w, r)
	if !ok {
		return
	}

	var req DispatchRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
			return
		}
	}

	res, err := h.service.Dispatch(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respondError(w, http.StatusNotFound, "not_found", err.Error())
		case errors.Is(err, ErrDispatchInFlight):
			respondError(w, http.StatusConflict, "dispatch_in_flight", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "dispatch_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *Handler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := opportunity.ParseID(w, r)
	if !ok {
		return
	}

	var req StatusRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
			return
		}
	}

	change, err := h.service.OverrideStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		case errors.Is(err, ErrNotFound):
			respondError(w, http.StatusNotFound, "not_found", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "update_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"change":  change,
	})
}

func (h *Handler) ListLog(w http.ResponseWriter, r *http.Request) {
	id, ok := opportunity.ParseID(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListLog(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"entries": entries,
		"total":   len(entries),
	})
}

// Outcome handles the messaging vendor's delivery and reply callbacks.
func (h *Handler) Outcome(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body: "+err.Error())
		return
	}

	var o Outcome
	if err := json.Unmarshal(body, &o); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}
	if _, err := uuid.Parse(o.OpportunityID); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "opportunity_id must be a UUID")
		return
	}
	o.Raw = body

	logID, err := h.service.RecordOutcome(r.Context(), o)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		case errors.Is(err, ErrNotFound):
			respondError(w, http.StatusNotFound, "not_found", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "outcome_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"log_id":  logID,
	})
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   errorType,
		"message": message,
	})
}
