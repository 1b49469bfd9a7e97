package patients

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/medibook/medibook-platform/internal/identity"
	"github.com/medibook/medibook-platform/pkg/logging"
)

// Handler serves the patient profile endpoints.
type Handler struct {
	repo     Repository
	validate *validator.Validate
	logger   *logging.Logger
}

// NewHandler creates a patient profile handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:     repo,
		validate: validator.New(),
		logger:   logger,
	}
}

// GetProfile handles GET /patients/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	patient, err := h.repo.GetByClerkID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			writeError(w, http.StatusNotFound, "Patient not found")
			return
		}
		h.logger.Error("patient profile lookup failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"patient": patient})
}

// UpsertProfile handles PUT /patients/profile. The operation is an upsert so
// a brand-new patient can be created from this endpoint too.
func (h *Handler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	phone := req.Phone
	if phone == "" {
		phone = req.ContactNumber
	}

	patient := &Patient{
		ClerkID:          userID,
		Name:             req.Name,
		Gender:           req.Gender,
		Phone:            phone,
		Email:            req.Email,
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
		MedicalHistory:   req.MedicalHistory,
	}

	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid dateOfBirth, expected YYYY-MM-DD")
			return
		}
		patient.DateOfBirth = &dob
		patient.Age = AgeAt(dob, time.Now().UTC())
	}

	stored, err := h.repo.Upsert(r.Context(), patient)
	if err != nil {
		h.logger.Error("patient profile upsert failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "Failed to update patient profile")
		return
	}

	h.logger.Info("patient profile saved", "patient_id", stored.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "patient": stored})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
