package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the appointment ledger. Create must enforce slot
// exclusivity: at most one appointment with an active status may hold a
// given (doctorID, date, time) triple, and a violating insert returns
// ErrSlotTaken.
type Repository interface {
	Create(ctx context.Context, a *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)
	// SlotTaken reports whether an active appointment already holds the
	// slot. Errors fail closed: callers must not treat an error as free.
	SlotTaken(ctx context.Context, doctorID string, date time.Time, timeLabel string) (bool, error)
	// FindByBookingIntent locates the appointment created for a specific
	// booking intent, used by payment reconciliation for replay checks.
	FindByBookingIntent(ctx context.Context, patientID, doctorID string, date time.Time, timeLabel string) (*Appointment, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]*Appointment, error)
	ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error)
	// UpdateClinical mutates status, notes, diagnosis and prescription,
	// scoped to the owning doctor. Empty fields are left unchanged.
	UpdateClinical(ctx context.Context, appointmentID, doctorID string, req *UpdateClinicalRequest) (*Appointment, error)
	// MarkPaid sets paymentStatus=Paid. Idempotent: a second call with the
	// same reference returns the record unchanged.
	MarkPaid(ctx context.Context, appointmentID, reference, method string) (*Appointment, error)
}

// InMemoryRepository backs tests and local development. The single mutex
// makes the check-and-insert in Create atomic.
type InMemoryRepository struct {
	mu    sync.Mutex
	byID  map[string]*Appointment
	clock func() time.Time
}

// NewInMemoryRepository creates an empty in-memory ledger.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:  make(map[string]*Appointment),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func (r *InMemoryRepository) activeSlotHolder(doctorID string, date time.Time, timeLabel string) *Appointment {
	for _, a := range r.byID {
		if a.DoctorID == doctorID && a.AppointmentTime == timeLabel && sameDay(a.AppointmentDate, date) && a.HoldsSlot() {
			return a
		}
	}
	return nil
}

// Create inserts a new appointment, refusing to double-book active slots.
func (r *InMemoryRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.HoldsSlot() && r.activeSlotHolder(a.DoctorID, a.AppointmentDate, a.AppointmentTime) != nil {
		return nil, ErrSlotTaken
	}

	now := r.clock()
	stored := *a
	stored.ID = uuid.NewString()
	if stored.Symptoms == nil {
		stored.Symptoms = []string{}
	}
	if stored.Prescription == nil {
		stored.Prescription = []PrescriptionItem{}
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.byID[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (r *InMemoryRepository) SlotTaken(ctx context.Context, doctorID string, date time.Time, timeLabel string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeSlotHolder(doctorID, date, timeLabel) != nil, nil
}

func (r *InMemoryRepository) FindByBookingIntent(ctx context.Context, patientID, doctorID string, date time.Time, timeLabel string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.byID {
		if a.PatientID == patientID && a.DoctorID == doctorID && a.AppointmentTime == timeLabel && sameDay(a.AppointmentDate, date) {
			out := *a
			return &out, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *InMemoryRepository) ListByDoctor(ctx context.Context, doctorID string) ([]*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Appointment
	for _, a := range r.byID {
		if a.DoctorID == doctorID {
			copied := *a
			out = append(out, &copied)
		}
	}
	sortByDate(out)
	return out, nil
}

func (r *InMemoryRepository) ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Appointment
	for _, a := range r.byID {
		if a.PatientID == patientID {
			copied := *a
			out = append(out, &copied)
		}
	}
	sortByDate(out)
	return out, nil
}

func (r *InMemoryRepository) UpdateClinical(ctx context.Context, appointmentID, doctorID string, req *UpdateClinicalRequest) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[appointmentID]
	if !ok || a.DoctorID != doctorID {
		return nil, ErrAppointmentNotFound
	}
	if req.Status != "" {
		a.Status = req.Status
	}
	if req.Notes != "" {
		a.Notes = req.Notes
	}
	if req.Diagnosis != "" {
		a.Diagnosis = req.Diagnosis
	}
	if req.Prescription != nil {
		a.Prescription = req.Prescription
	}
	a.UpdatedAt = r.clock()

	out := *a
	return &out, nil
}

func (r *InMemoryRepository) MarkPaid(ctx context.Context, appointmentID, reference, method string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[appointmentID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.PaymentStatus != PaymentPaid {
		a.PaymentStatus = PaymentPaid
		if a.PaymentReference == "" {
			a.PaymentReference = reference
		}
		if a.PaymentMethod == "" {
			a.PaymentMethod = method
		}
		a.UpdatedAt = r.clock()
	}
	out := *a
	return &out, nil
}

func sortByDate(list []*Appointment) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].AppointmentDate.Before(list[j].AppointmentDate)
	})
}

var _ Repository = (*InMemoryRepository)(nil)
