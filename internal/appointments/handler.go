package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/medibook/medibook-platform/internal/doctors"
	"github.com/medibook/medibook-platform/internal/identity"
	"github.com/medibook/medibook-platform/internal/observability/metrics"
	"github.com/medibook/medibook-platform/internal/patients"
	"github.com/medibook/medibook-platform/pkg/logging"
)

// Handler exposes the appointment endpoints.
type Handler struct {
	service  *Service
	patients patients.Repository
	doctors  doctors.Repository
	metrics  *metrics.Metrics
	validate *validator.Validate
	logger   *logging.Logger
}

// NewHandler creates an appointments handler.
func NewHandler(service *Service, patientsRepo patients.Repository, doctorsRepo doctors.Repository, m *metrics.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:  service,
		patients: patientsRepo,
		doctors:  doctorsRepo,
		metrics:  m,
		validate: validator.New(),
		logger:   logger,
	}
}

// Book handles POST /appointments/book.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required booking fields")
		return
	}
	if _, err := ParseDate(req.AppointmentDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid appointment date")
		return
	}

	result, err := h.service.CreateBooking(r.Context(), userID, &req)
	switch {
	case errors.Is(err, ErrProfileIncomplete):
		h.metrics.BookingObserved("profile_incomplete")
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "Please complete your profile before booking an appointment",
		})
	case errors.Is(err, doctors.ErrDoctorNotFound):
		h.metrics.BookingObserved("doctor_not_found")
		writeError(w, http.StatusNotFound, "Doctor not found")
	case errors.Is(err, ErrSlotTaken):
		h.metrics.BookingObserved("slot_conflict")
		writeError(w, http.StatusConflict, "This slot is already booked")
	case err != nil:
		h.metrics.BookingObserved("error")
		h.logger.Error("booking failed", "error", err, "clerk_id", userID)
		writeError(w, http.StatusInternalServerError, "Failed to book appointment")
	default:
		h.metrics.BookingObserved("booked")
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"appointment": result.Appointment,
			"doctor":      result.Doctor,
		})
	}
}

// doctorViewEntry flattens the patient name the way the doctor dashboard
// expects. Missing patient records degrade to "Unknown" rather than
// dropping the appointment.
type doctorViewEntry struct {
	*Appointment
	PatientFirstName string `json:"firstName"`
	PatientLastName  string `json:"lastName"`
}

// ListForDoctor handles GET /appointments/doctor.
func (h *Handler) ListForDoctor(w http.ResponseWriter, r *http.Request) {
	doctor, ok := h.requireDoctor(w, r)
	if !ok {
		return
	}

	list, err := h.service.ledger.ListByDoctor(r.Context(), doctor.ID)
	if err != nil {
		h.logger.Error("doctor appointment listing failed", "error", err, "doctor_id", doctor.ID)
		writeError(w, http.StatusInternalServerError, "Failed to fetch appointments")
		return
	}

	entries := make([]doctorViewEntry, 0, len(list))
	for _, a := range list {
		entry := doctorViewEntry{Appointment: a, PatientFirstName: "Unknown", PatientLastName: "Unknown"}
		if p, err := h.patients.GetByID(r.Context(), a.PatientID); err == nil {
			entry.PatientFirstName, entry.PatientLastName = splitName(p.Name)
		}
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "appointments": entries})
}

// UpdateClinical handles PUT /appointments/doctor.
func (h *Handler) UpdateClinical(w http.ResponseWriter, r *http.Request) {
	doctor, ok := h.requireDoctor(w, r)
	if !ok {
		return
	}

	var req UpdateClinicalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid appointment update")
		return
	}

	updated, err := h.service.ledger.UpdateClinical(r.Context(), req.AppointmentID, doctor.ID, &req)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			writeError(w, http.StatusNotFound, "Appointment not found")
			return
		}
		h.logger.Error("appointment update failed", "error", err, "appointment_id", req.AppointmentID)
		writeError(w, http.StatusInternalServerError, "Failed to update appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "appointment": updated})
}

// patientViewEntry pairs an appointment with its doctor's public details.
type patientViewEntry struct {
	*Appointment
	Doctor BookingDoctor `json:"doctor"`
}

// ListForPatient handles GET /appointments/patient. Appointments whose
// doctor no longer resolves are dropped from the response.
func (h *Handler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	patient, err := h.patients.GetByClerkID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			writeError(w, http.StatusNotFound, "Patient profile not found")
			return
		}
		h.logger.Error("patient lookup failed", "error", err, "clerk_id", userID)
		writeError(w, http.StatusInternalServerError, "Failed to fetch appointments")
		return
	}

	list, err := h.service.ledger.ListByPatient(r.Context(), patient.ID)
	if err != nil {
		h.logger.Error("patient appointment listing failed", "error", err, "patient_id", patient.ID)
		writeError(w, http.StatusInternalServerError, "Failed to fetch appointments")
		return
	}

	entries := make([]patientViewEntry, 0, len(list))
	for _, a := range list {
		d, err := h.doctors.GetByID(r.Context(), a.DoctorID)
		if err != nil {
			continue
		}
		entries = append(entries, patientViewEntry{
			Appointment: a,
			Doctor: BookingDoctor{
				ID:             d.ID,
				FirstName:      d.FirstName,
				LastName:       d.LastName,
				Specialization: d.Specialization,
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "appointments": entries})
}

func (h *Handler) requireDoctor(w http.ResponseWriter, r *http.Request) (*doctors.Doctor, bool) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	doctor, err := h.doctors.GetByClerkID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, doctors.ErrDoctorNotFound) {
			writeError(w, http.StatusNotFound, "Doctor profile not found")
			return nil, false
		}
		h.logger.Error("doctor lookup failed", "error", err, "clerk_id", userID)
		writeError(w, http.StatusInternalServerError, "Failed to fetch doctor profile")
		return nil, false
	}
	return doctor, true
}

func splitName(full string) (first, last string) {
	first, last = "Unknown", "Unknown"
	fields := strings.Fields(full)
	if len(fields) > 0 {
		first = fields[0]
	}
	if len(fields) > 1 {
		last = strings.Join(fields[1:], " ")
	}
	return first, last
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
