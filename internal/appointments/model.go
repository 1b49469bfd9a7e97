package appointments

import (
	"fmt"
	"time"
)

// Appointment statuses. Scheduled and Confirmed hold the slot; the rest
// release it.
const (
	StatusScheduled = "Scheduled"
	StatusConfirmed = "Confirmed"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
	StatusNoShow    = "No Show"
)

// Payment statuses.
const (
	PaymentPending  = "Pending"
	PaymentPaid     = "Paid"
	PaymentRefunded = "Refunded"
)

// PrescriptionItem is one line of a doctor's prescription.
type PrescriptionItem struct {
	Medication string `json:"medication"`
	Dosage     string `json:"dosage"`
	Frequency  string `json:"frequency"`
	Duration   string `json:"duration"`
}

// Appointment is the ledger record tying a patient to a doctor's slot.
// ConsultationFee is a snapshot taken at booking time and never follows
// later changes to the doctor's fee.
type Appointment struct {
	ID               string             `json:"id"`
	PatientID        string             `json:"patientId"`
	DoctorID         string             `json:"doctorId"`
	AppointmentDate  time.Time          `json:"appointmentDate"`
	AppointmentTime  string             `json:"appointmentTime"`
	Status           string             `json:"status"`
	Reason           string             `json:"reason"`
	Symptoms         []string           `json:"symptoms"`
	Notes            string             `json:"notes"`
	Diagnosis        string             `json:"diagnosis"`
	Prescription     []PrescriptionItem `json:"prescription"`
	ConsultationFee  int                `json:"consultationFee"`
	PaymentStatus    string             `json:"paymentStatus"`
	PaymentReference string             `json:"paymentReference,omitempty"`
	PaymentMethod    string             `json:"paymentMethod,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// HoldsSlot reports whether the appointment's status still reserves its
// (doctor, date, time) slot.
func (a *Appointment) HoldsSlot() bool {
	return a.Status == StatusScheduled || a.Status == StatusConfirmed
}

// BookRequest is the client payload for POST /appointments/book.
type BookRequest struct {
	DoctorID        string   `json:"doctorId" validate:"required"`
	AppointmentDate string   `json:"appointmentDate" validate:"required"`
	AppointmentTime string   `json:"appointmentTime" validate:"required"`
	Reason          string   `json:"reason" validate:"required"`
	Symptoms        []string `json:"symptoms"`
	ConsultationFee int      `json:"consultationFee" validate:"gte=0"`
}

// UpdateClinicalRequest is the doctor-side payload for PUT /appointments/doctor.
type UpdateClinicalRequest struct {
	AppointmentID string             `json:"appointmentId" validate:"required"`
	Status        string             `json:"status" validate:"omitempty,oneof=Scheduled Confirmed Completed Cancelled 'No Show'"`
	Notes         string             `json:"notes"`
	Diagnosis     string             `json:"diagnosis"`
	Prescription  []PrescriptionItem `json:"prescription"`
}

// ParseDate normalizes a client-supplied date to a UTC calendar day.
// Accepts plain YYYY-MM-DD or a full RFC3339 timestamp; the time-of-day
// component is always discarded so day comparisons cannot drift.
func ParseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("appointments: parse date %q: %w", raw, err)
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
