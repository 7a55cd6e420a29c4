package opportunity

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
	"github.com/WailSalutem-Health-Care/recall-service/internal/pagination"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// maxIngestBody bounds one ingestion request.
const maxIngestBody = 32 << 20

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body: "+err.Error())
		return
	}

	batch, err := DecodeBatch(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	processed, err := h.service.Ingest(r.Context(), batch)
	if err != nil {
		if errors.Is(err, ErrInvalidSnapshot) || db.IsInvalidInput(err) {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		log.Error().Err(err).Int("batch_size", len(batch)).Msg("ingestion failed")
		respondError(w, http.StatusInternalServerError, "ingest_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(IngestResponse{
		Success:   true,
		Processed: processed,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	opps, err := h.service.List(r.Context(), parseFilter(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListResponse{
		Success:       true,
		Count:         len(opps),
		Opportunities: opps,
	})
}

// Export writes the ranked list, with the same filters as List, as xlsx.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	opps, err := h.service.List(r.Context(), parseFilter(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		return
	}

	filename := "opportunities-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := WriteWorkbook(w, opps); err != nil {
		log.Error().Err(err).Msg("failed to write opportunity export")
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Detail(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DetailResponse{
		Success:     true,
		Opportunity: detail,
	})
}

func parseFilter(r *http.Request) ListFilter {
	minDays := pagination.Int64(r, "min_days")
	if minDays > math.MaxInt32 || minDays < math.MinInt32 {
		minDays = 0
	}
	return ListFilter{
		MinValue: pagination.Int64(r, "min_value"),
		MinDays:  int(minDays),
		Query:    r.URL.Query().Get("q"),
		Limit:    pagination.ParseParams(r).Limit,
	}
}

// ParseID reads the {id} route variable and writes a 400 when it is not a UUID.
func ParseID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "Opportunity ID must be a UUID, got "+strconv.Quote(raw))
		return "", false
	}
	return id.String(), true
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   errorType,
		"message": message,
	})
}
