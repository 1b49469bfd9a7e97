package users

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/medibook/medibook-platform/internal/doctors"
	"github.com/medibook/medibook-platform/internal/identity"
	"github.com/medibook/medibook-platform/internal/patients"
	"github.com/medibook/medibook-platform/pkg/logging"
)

// Handler creates minimal role-scoped profile stubs at first sign-in.
// Both endpoints are idempotent: repeating a call returns the stored record.
type Handler struct {
	patients patients.Repository
	doctors  doctors.Repository
	logger   *logging.Logger
}

// NewHandler creates a users handler.
func NewHandler(patientsRepo patients.Repository, doctorsRepo doctors.Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		patients: patientsRepo,
		doctors:  doctorsRepo,
		logger:   logger,
	}
}

type roleRequest struct {
	ClerkID   string `json:"clerkId"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// SelectRole handles POST /user/role.
func (h *Handler) SelectRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	clerkID := req.ClerkID
	if clerkID == "" {
		clerkID, _ = identity.UserIDFromContext(r.Context())
	}
	if clerkID == "" {
		writeError(w, http.StatusBadRequest, "clerkId is required")
		return
	}

	switch req.Role {
	case "doctor":
		email := req.Email
		if email == "" {
			email = clerkID + "@noemail.local"
		}
		doctor, created, err := h.doctors.CreateStub(r.Context(),
			clerkID, defaultStr(req.FirstName, "Doctor"), defaultStr(req.LastName, "User"), email)
		if err != nil {
			h.logger.Error("doctor stub creation failed", "error", err, "clerk_id", clerkID)
			writeError(w, http.StatusInternalServerError, "Failed to create user role")
			return
		}
		msg := "Doctor already exists"
		if created {
			msg = "Doctor created successfully"
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg, "doctor": doctor})

	case "patient":
		name := strings.TrimSpace(req.FirstName + " " + req.LastName)
		if name == "" {
			name = "New Patient"
		}
		patient, created, err := h.patients.CreateStub(r.Context(), clerkID, name, req.Email)
		if err != nil {
			h.logger.Error("patient stub creation failed", "error", err, "clerk_id", clerkID)
			writeError(w, http.StatusInternalServerError, "Failed to create user role")
			return
		}
		msg := "Patient already exists"
		if created {
			msg = "Patient created successfully"
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg, "patient": patient})

	default:
		writeError(w, http.StatusBadRequest, "Invalid role specified")
	}
}

// SaveUser handles POST /save-user: the identity provider's post-signup
// callback. Same stub semantics as SelectRole, kept as a separate route for
// client compatibility.
func (h *Handler) SaveUser(w http.ResponseWriter, r *http.Request) {
	h.SelectRole(w, r)
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
