package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medibook/medibook-platform/internal/analysis"
	"github.com/medibook/medibook-platform/internal/appointments"
	"github.com/medibook/medibook-platform/internal/doctors"
	httpmiddleware "github.com/medibook/medibook-platform/internal/http/middleware"
	"github.com/medibook/medibook-platform/internal/patients"
	"github.com/medibook/medibook-platform/internal/payments"
	"github.com/medibook/medibook-platform/internal/users"
	"github.com/medibook/medibook-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	UsersHandler        *users.Handler
	PatientsHandler     *patients.Handler
	DoctorsHandler      *doctors.Handler
	AppointmentsHandler *appointments.Handler
	PaymentsHandler     *payments.Handler
	RazorpayWebhook     *payments.WebhookHandler
	AnalysisHandler     *analysis.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
	JWTSecret           string
	RateLimitRPS        float64
	RateLimitBurst      int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", handleHealth)
		if cfg.RazorpayWebhook != nil {
			public.Post("/payments/razorpay-webhook", cfg.RazorpayWebhook.Handle)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Everything else requires a verified identity token.
	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.IdentityJWT(cfg.JWTSecret))
		if cfg.RateLimitRPS > 0 {
			private.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}

		if cfg.UsersHandler != nil {
			private.Post("/user/role", cfg.UsersHandler.SelectRole)
			private.Post("/save-user", cfg.UsersHandler.SaveUser)
		}
		if cfg.PatientsHandler != nil {
			private.Get("/patients/profile", cfg.PatientsHandler.GetProfile)
			private.Put("/patients/profile", cfg.PatientsHandler.UpsertProfile)
		}
		if cfg.DoctorsHandler != nil {
			private.Get("/doctor/profile", cfg.DoctorsHandler.GetProfile)
			private.Put("/doctor/profile", cfg.DoctorsHandler.UpsertProfile)
			private.Get("/doctors", cfg.DoctorsHandler.ListDoctors)
		}
		if cfg.AppointmentsHandler != nil {
			private.Post("/appointments/book", cfg.AppointmentsHandler.Book)
			private.Get("/appointments/doctor", cfg.AppointmentsHandler.ListForDoctor)
			private.Put("/appointments/doctor", cfg.AppointmentsHandler.UpdateClinical)
			private.Get("/appointments/patient", cfg.AppointmentsHandler.ListForPatient)
		}
		if cfg.PaymentsHandler != nil {
			private.Post("/payments/create-razorpay-order", cfg.PaymentsHandler.CreateOrder)
			private.Post("/payments", cfg.PaymentsHandler.Capture)
		}
		if cfg.AnalysisHandler != nil {
			private.Post("/analytics", cfg.AnalysisHandler.Analyze)
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
