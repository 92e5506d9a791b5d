package handlers

import (
	"net/http"
	"time"

	"clinichistory/internal/models"
)

// RouterConfig carries what NewRouter needs beyond the handlers
type RouterConfig struct {
	StaticFilesPath string
	AllowedOrigins  []string
	RequestTimeout  time.Duration
}

// NewRouter registers every route and wraps the mux with the global chain:
// Logging, Recover, CORS, Timeout, LoadSession.
func NewRouter(cfg RouterConfig, m *Middleware, authHandler *AuthHandler, recordsHandler *RecordsHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public auth routes
	mux.HandleFunc("POST /api/auth/login", m.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/verify", authHandler.Verify)
	mux.HandleFunc("POST /api/auth/recover", m.RateLimit(authHandler.Recover))
	mux.HandleFunc("POST /api/auth/reset", m.RateLimit(authHandler.Reset))

	// Session routes
	session := func(h http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
		return ChainMiddleware(h, append([]func(http.HandlerFunc) http.HandlerFunc{m.RequireSession}, mw...)...)
	}
	mux.HandleFunc("POST /api/auth/register", session(authHandler.Register, m.RequireRole(models.RoleAdmin), m.CSRFProtect))
	mux.HandleFunc("GET /api/auth/profile", session(authHandler.Profile))
	mux.HandleFunc("PUT /api/auth/profile", session(authHandler.UpdateProfile, m.CSRFProtect))
	mux.HandleFunc("PUT /api/auth/password", session(authHandler.ChangePassword, m.CSRFProtect))

	// Clinical records, for doctors and admins
	clinic := func(h http.HandlerFunc) http.HandlerFunc {
		return session(h, m.RequireRole(models.RoleDoctor, models.RoleAdmin), m.DemoScope, m.CSRFProtect)
	}
	mux.HandleFunc("GET /api/summary", clinic(recordsHandler.Summary))

	mux.HandleFunc("GET /api/patients", clinic(recordsHandler.ListPatients))
	mux.HandleFunc("GET /api/patients/document/{document}", clinic(recordsHandler.GetPatientByDocument))
	mux.HandleFunc("GET /api/patients/{id}", clinic(recordsHandler.GetPatient))
	mux.HandleFunc("POST /api/patients", clinic(recordsHandler.CreatePatient))
	mux.HandleFunc("PUT /api/patients/{id}", clinic(recordsHandler.UpdatePatient))
	mux.HandleFunc("DELETE /api/patients/{id}", clinic(recordsHandler.DeletePatient))

	mux.HandleFunc("GET /api/consultations", clinic(recordsHandler.ListConsultations))
	mux.HandleFunc("GET /api/consultations/{id}", clinic(recordsHandler.GetConsultation))
	mux.HandleFunc("POST /api/consultations", clinic(recordsHandler.CreateConsultation))
	mux.HandleFunc("PUT /api/consultations/{id}", clinic(recordsHandler.UpdateConsultation))
	mux.HandleFunc("DELETE /api/consultations/{id}", clinic(recordsHandler.DeleteConsultation))

	mux.HandleFunc("GET /api/appointments", clinic(recordsHandler.ListAppointments))
	mux.HandleFunc("GET /api/appointments/today", clinic(recordsHandler.TodayAppointments))
	mux.HandleFunc("GET /api/appointments/{id}", clinic(recordsHandler.GetAppointment))
	mux.HandleFunc("POST /api/appointments", clinic(recordsHandler.CreateAppointment))
	mux.HandleFunc("PUT /api/appointments/{id}", clinic(recordsHandler.UpdateAppointment))
	mux.HandleFunc("PUT /api/appointments/{id}/status", clinic(recordsHandler.UpdateAppointmentStatus))
	mux.HandleFunc("DELETE /api/appointments/{id}", clinic(recordsHandler.DeleteAppointment))

	// Static frontend
	if cfg.StaticFilesPath != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticFilesPath)))
	}

	var handler http.Handler = mux
	handler = m.LoadSession(handler)
	handler = Timeout(cfg.RequestTimeout)(handler)
	handler = CORS(cfg.AllowedOrigins)(handler)
	handler = Recover(handler)
	handler = Logging(handler)
	return handler
}
