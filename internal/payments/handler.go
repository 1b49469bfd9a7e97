package payments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/medibook/medibook-platform/internal/appointments"
	"github.com/medibook/medibook-platform/internal/doctors"
	"github.com/medibook/medibook-platform/internal/identity"
	"github.com/medibook/medibook-platform/pkg/logging"
)

// Handler exposes the payment order and capture endpoints.
type Handler struct {
	issuer   *OrderIssuer
	booking  *appointments.Service
	velocity *VelocityChecker
	validate *validator.Validate
	logger   *logging.Logger
}

// NewHandler creates a payments handler. The velocity checker may be nil
// when redis is not configured.
func NewHandler(issuer *OrderIssuer, booking *appointments.Service, velocity *VelocityChecker, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		issuer:   issuer,
		booking:  booking,
		velocity: velocity,
		validate: validator.New(),
		logger:   logger,
	}
}

// CreateOrder handles POST /payments/create-razorpay-order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required order fields")
		return
	}

	patient, err := h.booking.ResolvePatient(r.Context(), userID)
	if err != nil {
		if errors.Is(err, appointments.ErrProfileIncomplete) {
			writeError(w, http.StatusNotFound, "Patient profile not found")
			return
		}
		h.logger.Error("patient lookup failed", "error", err, "clerk_id", userID)
		writeError(w, http.StatusInternalServerError, "Failed to create payment order")
		return
	}

	check, err := h.velocity.CheckOrderVelocity(r.Context(), patient.ID)
	if err == nil && !check.Allowed {
		writeError(w, http.StatusTooManyRequests, "Too many payment attempts, please try again later")
		return
	}

	result, err := h.issuer.CreateOrder(r.Context(), userID, &req)
	switch {
	case errors.Is(err, appointments.ErrProfileIncomplete):
		writeError(w, http.StatusNotFound, "Patient profile not found")
	case errors.Is(err, doctors.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "Doctor not found")
	case err != nil:
		h.logger.Error("order creation failed", "error", err, "clerk_id", userID)
		writeError(w, http.StatusInternalServerError, "Failed to create payment order")
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"orderId":  result.OrderID,
			"amount":   result.Amount,
			"currency": result.Currency,
			"keyId":    result.KeyID,
		})
	}
}

type captureRequest struct {
	AppointmentID string `json:"appointmentId"`
}

// Capture handles POST /payments: the simplified capture path that trusts
// the client and flips paymentStatus to Paid. Scoped to the patient who
// owns the appointment, and idempotent.
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AppointmentID == "" {
		writeError(w, http.StatusBadRequest, "appointmentId is required")
		return
	}

	updated, err := h.booking.MarkPaid(r.Context(), userID, req.AppointmentID)
	switch {
	case errors.Is(err, appointments.ErrProfileIncomplete):
		writeError(w, http.StatusNotFound, "Patient profile not found")
	case errors.Is(err, appointments.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "Appointment not found")
	case err != nil:
		h.logger.Error("payment capture failed", "error", err, "appointment_id", req.AppointmentID)
		writeError(w, http.StatusInternalServerError, "Failed to update payment status")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "appointment": updated})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
