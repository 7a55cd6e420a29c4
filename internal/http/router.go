package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/WailSalutem-Health-Care/recall-service/internal/auth"
	"github.com/WailSalutem-Health-Care/recall-service/internal/contact"
	"github.com/WailSalutem-Health-Care/recall-service/internal/opportunity"
	"github.com/WailSalutem-Health-Care/recall-service/internal/patient"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

const serviceName = "recall-service"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers groups the domain handlers mounted on the router.
type Handlers struct {
	Opportunities *opportunity.Handler
	Contacts      *contact.Handler
	Patients      *patient.Handler
}

// Options configures the gate and cross-cutting middleware.
type Options struct {
	SharedSecret string
	AuthMetrics  auth.MetricsRecorder
}

// SetupRouter initializes all routes for the application
func SetupRouter(db Pinger, h Handlers, opts Options) *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware(serviceName))
	r.Use(MetricsMiddleware)

	gate := auth.SharedSecretWithMetrics(opts.SharedSecret, opts.AuthMetrics)

	r.HandleFunc("/health", healthHandler(db)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Snapshot ingestion and vendor callbacks come from other systems
	r.Handle("/ingest", gate(http.HandlerFunc(h.Opportunities.Ingest))).Methods("POST")
	r.Handle("/webhooks/outcome", gate(http.HandlerFunc(h.Contacts.Outcome))).Methods("POST")

	// export.xlsx must be registered before {id}
	r.HandleFunc("/opportunities", h.Opportunities.List).Methods("GET")
	r.HandleFunc("/opportunities/export.xlsx", h.Opportunities.Export).Methods("GET")
	r.HandleFunc("/opportunities/{id}", h.Opportunities.Get).Methods("GET")
	r.HandleFunc("/opportunities/{id}/status", h.Contacts.OverrideStatus).Methods("PATCH")
	r.HandleFunc("/opportunities/{id}/contact", h.Contacts.Dispatch).Methods("POST")
	r.HandleFunc("/opportunities/{id}/contact-log", h.Contacts.ListLog).Methods("GET")

	r.HandleFunc("/patients/{patientId}", h.Patients.GetPatient).Methods("GET")
	r.HandleFunc("/patients/{patientId}", h.Patients.DeletePatient).Methods("DELETE")

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok", "service": serviceName, "database": "ok"}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db == nil {
			status = http.StatusServiceUnavailable
			body["status"], body["database"] = "degraded", "not configured"
		} else if err := db.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"], body["database"] = "degraded", err.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}
