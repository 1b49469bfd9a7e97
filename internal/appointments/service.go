package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medibook/medibook-platform/internal/doctors"
	"github.com/medibook/medibook-platform/internal/patients"
	"github.com/medibook/medibook-platform/pkg/logging"
)

// BookingIntent identifies one desired booking. It is embedded in gateway
// order metadata so payment events can be reconciled without any client
// round trip.
type BookingIntent struct {
	PatientID       string
	DoctorID        string
	AppointmentDate time.Time
	AppointmentTime string
	Reason          string
	ConsultationFee int
}

// BookingResult is a created appointment plus the doctor details clients
// render alongside it.
type BookingResult struct {
	Appointment *Appointment   `json:"appointment"`
	Doctor      *BookingDoctor `json:"doctor"`
}

// BookingDoctor is the doctor summary embedded in booking responses.
type BookingDoctor struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Specialization string `json:"specialization"`
}

// Service implements the booking workflow on top of the three stores.
type Service struct {
	ledger   Repository
	patients patients.Repository
	doctors  doctors.Repository
	logger   *logging.Logger
}

// NewService wires the booking service.
func NewService(ledger Repository, patientsRepo patients.Repository, doctorsRepo doctors.Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		ledger:   ledger,
		patients: patientsRepo,
		doctors:  doctorsRepo,
		logger:   logger,
	}
}

// ResolvePatient maps an external identity id to a patient record,
// translating a missing profile into ErrProfileIncomplete.
func (s *Service) ResolvePatient(ctx context.Context, clerkID string) (*patients.Patient, error) {
	p, err := s.patients.GetByClerkID(ctx, clerkID)
	if err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			return nil, ErrProfileIncomplete
		}
		return nil, fmt.Errorf("appointments: resolve patient: %w", err)
	}
	return p, nil
}

// ResolveActiveDoctor fetches a doctor and refuses inactive profiles.
func (s *Service) ResolveActiveDoctor(ctx context.Context, doctorID string) (*doctors.Doctor, error) {
	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !d.IsActive {
		return nil, doctors.ErrDoctorNotFound
	}
	return d, nil
}

// CreateBooking runs the direct booking path: patient profile must exist,
// doctor must be active, the slot must be free. The fee snapshot is the
// client-provided fee when positive, otherwise the doctor's current fee.
// The availability pre-check is a fast path only; the store's unique index
// settles races.
func (s *Service) CreateBooking(ctx context.Context, clerkID string, req *BookRequest) (*BookingResult, error) {
	patient, err := s.ResolvePatient(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	doctor, err := s.ResolveActiveDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	date, err := ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, err
	}

	taken, err := s.ledger.SlotTaken(ctx, doctor.ID, date, req.AppointmentTime)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotTaken
	}

	fee := req.ConsultationFee
	if fee <= 0 {
		fee = doctor.ConsultationFee
	}

	created, err := s.ledger.Create(ctx, &Appointment{
		PatientID:       patient.ID,
		DoctorID:        doctor.ID,
		AppointmentDate: date,
		AppointmentTime: req.AppointmentTime,
		Status:          StatusScheduled,
		Reason:          req.Reason,
		Symptoms:        req.Symptoms,
		ConsultationFee: fee,
		PaymentStatus:   PaymentPending,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment booked",
		"appointment_id", created.ID,
		"doctor_id", doctor.ID,
		"patient_id", patient.ID,
		"date", date.Format("2006-01-02"),
		"time", req.AppointmentTime,
	)

	return &BookingResult{
		Appointment: created,
		Doctor: &BookingDoctor{
			ID:             doctor.ID,
			FirstName:      doctor.FirstName,
			LastName:       doctor.LastName,
			Specialization: doctor.Specialization,
		},
	}, nil
}

// ConfirmPaidBooking is the webhook reconciliation path. If an appointment
// for the intent already exists the call is a no-op; otherwise a new record
// is created directly in Confirmed/Paid. The boolean reports whether a new
// record was created.
func (s *Service) ConfirmPaidBooking(ctx context.Context, intent *BookingIntent, paymentID, method string) (*Appointment, bool, error) {
	existing, err := s.ledger.FindByBookingIntent(ctx,
		intent.PatientID, intent.DoctorID, intent.AppointmentDate, intent.AppointmentTime)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, false, err
	}

	created, err := s.ledger.Create(ctx, &Appointment{
		PatientID:        intent.PatientID,
		DoctorID:         intent.DoctorID,
		AppointmentDate:  intent.AppointmentDate,
		AppointmentTime:  intent.AppointmentTime,
		Status:           StatusConfirmed,
		Reason:           intent.Reason,
		ConsultationFee:  intent.ConsultationFee,
		PaymentStatus:    PaymentPaid,
		PaymentReference: paymentID,
		PaymentMethod:    method,
	})
	if err != nil {
		// A racing insert took the slot or the same intent landed twice.
		// Re-read so the duplicate delivery still resolves to one record.
		if errors.Is(err, ErrSlotTaken) {
			existing, findErr := s.ledger.FindByBookingIntent(ctx,
				intent.PatientID, intent.DoctorID, intent.AppointmentDate, intent.AppointmentTime)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	s.logger.Info("appointment confirmed from payment event",
		"appointment_id", created.ID,
		"payment_id", paymentID,
	)
	return created, true, nil
}

// MarkPaid is the simplified capture path: flips paymentStatus only, scoped
// to the patient who owns the appointment.
func (s *Service) MarkPaid(ctx context.Context, clerkID, appointmentID string) (*Appointment, error) {
	patient, err := s.ResolvePatient(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	a, err := s.ledger.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.PatientID != patient.ID {
		return nil, ErrAppointmentNotFound
	}
	return s.ledger.MarkPaid(ctx, appointmentID, "", "manual")
}
