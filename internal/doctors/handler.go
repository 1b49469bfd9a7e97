package doctors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/medibook/medibook-platform/internal/identity"
	"github.com/medibook/medibook-platform/pkg/logging"
)

// Handler serves the doctor profile and directory endpoints.
type Handler struct {
	repo     Repository
	validate *validator.Validate
	logger   *logging.Logger
}

// NewHandler creates a doctor handler.
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

// GetProfile handles GET /doctor/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	doctor, err := h.repo.GetByClerkID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			writeError(w, http.StatusNotFound, "Doctor not found")
			return
		}
		h.logger.Error("doctor profile lookup failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"doctor": doctor})
}

// UpsertProfile handles PUT /doctor/profile. Saving the form counts as
// completing onboarding, so the profile is marked completed and active.
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

	doctor := &Doctor{
		ClerkID:         userID,
		FirstName:       defaultStr(req.FirstName, "Doctor"),
		LastName:        defaultStr(req.LastName, "User"),
		Email:           defaultStr(req.Email, userID+"@noemail.local"),
		Specialization:  defaultStr(req.Specialization, StubSpecialization),
		Experience:      int(req.Experience),
		Qualification:   defaultStr(req.Qualification, StubQualification),
		ContactNumber:   defaultStr(req.ContactNumber, StubContactNumber),
		ConsultationFee: int(req.ConsultationFee),
		AvailableSlots:  req.AvailableSlots,
		Biography:       req.Biography,
	}

	stored, err := h.repo.Upsert(r.Context(), doctor)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "Email already in use by another doctor")
			return
		}
		h.logger.Error("doctor profile upsert failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	h.logger.Info("doctor profile saved", "doctor_id", stored.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "doctor": stored})
}

// ListDoctors handles GET /doctors: the active-doctor directory shown to
// patients when picking whom to book.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListActive(r.Context())
	if err != nil {
		h.logger.Error("doctor directory listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch doctors")
		return
	}
	if list == nil {
		list = []*Doctor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": list})
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
