package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores the appointment ledger. Slot exclusivity is
// enforced by the appointments_active_slot partial unique index; a racing
// insert surfaces as a 23505 and is returned as ErrSlotTaken.
type PostgresRepository struct {
	db dbtx
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock connection for tests.
func NewPostgresRepositoryWithDB(db dbtx) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const appointmentColumns = `
	id, patient_id, doctor_id, appointment_date, appointment_time, status,
	reason, symptoms, notes, diagnosis, prescription, consultation_fee,
	payment_status, payment_reference, payment_method, created_at, updated_at
`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a         Appointment
		reference *string
		method    *string
	)
	if err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.AppointmentDate,
		&a.AppointmentTime,
		&a.Status,
		&a.Reason,
		&a.Symptoms,
		&a.Notes,
		&a.Diagnosis,
		&a.Prescription,
		&a.ConsultationFee,
		&a.PaymentStatus,
		&reference,
		&method,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if reference != nil {
		a.PaymentReference = *reference
	}
	if method != nil {
		a.PaymentMethod = *method
	}
	if a.Symptoms == nil {
		a.Symptoms = []string{}
	}
	if a.Prescription == nil {
		a.Prescription = []PrescriptionItem{}
	}
	return &a, nil
}

// Create inserts a new appointment row.
func (r *PostgresRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, appointment_date, appointment_time,
			status, reason, symptoms, notes, diagnosis, prescription,
			consultation_fee, payment_status, payment_reference, payment_method
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			NULLIF($14, ''), NULLIF($15, ''))
		RETURNING ` + appointmentColumns + `
	`
	symptoms := a.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}
	prescription := a.Prescription
	if prescription == nil {
		prescription = []PrescriptionItem{}
	}
	stored, err := scanAppointment(r.db.QueryRow(ctx, query,
		uuid.NewString(),
		a.PatientID,
		a.DoctorID,
		a.AppointmentDate,
		a.AppointmentTime,
		a.Status,
		a.Reason,
		symptoms,
		a.Notes,
		a.Diagnosis,
		prescription,
		a.ConsultationFee,
		a.PaymentStatus,
		a.PaymentReference,
		a.PaymentMethod,
	))
	if err != nil {
		if isActiveSlotViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return stored, nil
}

// GetByID fetches one appointment.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	a, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select by id: %w", err)
	}
	return a, nil
}

// SlotTaken reports whether an active appointment holds the slot. An error
// never means free.
func (r *PostgresRepository) SlotTaken(ctx context.Context, doctorID string, date time.Time, timeLabel string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND appointment_date = $2
			  AND appointment_time = $3
			  AND status IN ('Scheduled', 'Confirmed')
		)
	`
	var taken bool
	if err := r.db.QueryRow(ctx, query, doctorID, date, timeLabel).Scan(&taken); err != nil {
		return false, fmt.Errorf("appointments: slot check: %w", err)
	}
	return taken, nil
}

// FindByBookingIntent locates the record created for a booking intent.
func (r *PostgresRepository) FindByBookingIntent(ctx context.Context, patientID, doctorID string, date time.Time, timeLabel string) (*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1
		  AND doctor_id = $2
		  AND appointment_date = $3
		  AND appointment_time = $4
		ORDER BY created_at
		LIMIT 1
	`
	a, err := scanAppointment(r.db.QueryRow(ctx, query, patientID, doctorID, date, timeLabel))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select by intent: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) list(ctx context.Context, column, id string) ([]*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE ` + column + ` = $1
		ORDER BY appointment_date, appointment_time
	`
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("appointments: list by %s: %w", column, err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate rows: %w", err)
	}
	return out, nil
}

// ListByDoctor returns all appointments owned by a doctor.
func (r *PostgresRepository) ListByDoctor(ctx context.Context, doctorID string) ([]*Appointment, error) {
	return r.list(ctx, "doctor_id", doctorID)
}

// ListByPatient returns all appointments booked by a patient.
func (r *PostgresRepository) ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	return r.list(ctx, "patient_id", patientID)
}

// UpdateClinical applies the doctor's status/notes/diagnosis/prescription
// changes, scoped to the owning doctor. Empty fields keep current values.
func (r *PostgresRepository) UpdateClinical(ctx context.Context, appointmentID, doctorID string, req *UpdateClinicalRequest) (*Appointment, error) {
	query := `
		UPDATE appointments SET
			status = COALESCE(NULLIF($3, ''), status),
			notes = COALESCE(NULLIF($4, ''), notes),
			diagnosis = COALESCE(NULLIF($5, ''), diagnosis),
			prescription = CASE WHEN $6::jsonb IS NULL THEN prescription ELSE $6::jsonb END,
			updated_at = now()
		WHERE id = $1 AND doctor_id = $2
		RETURNING ` + appointmentColumns + `
	`
	var prescription any
	if req.Prescription != nil {
		prescription = req.Prescription
	}
	a, err := scanAppointment(r.db.QueryRow(ctx, query,
		appointmentID, doctorID, req.Status, req.Notes, req.Diagnosis, prescription,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: update clinical: %w", err)
	}
	return a, nil
}

// MarkPaid flips paymentStatus to Paid. Re-running it leaves the row
// unchanged, so the endpoint stays idempotent.
func (r *PostgresRepository) MarkPaid(ctx context.Context, appointmentID, reference, method string) (*Appointment, error) {
	query := `
		UPDATE appointments SET
			payment_status = 'Paid',
			payment_reference = COALESCE(payment_reference, NULLIF($2, '')),
			payment_method = COALESCE(payment_method, NULLIF($3, '')),
			updated_at = CASE WHEN payment_status = 'Paid' THEN updated_at ELSE now() END
		WHERE id = $1
		RETURNING ` + appointmentColumns + `
	`
	a, err := scanAppointment(r.db.QueryRow(ctx, query, appointmentID, reference, method))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: mark paid: %w", err)
	}
	return a, nil
}

func isActiveSlotViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == "appointments_active_slot"
}

var _ Repository = (*PostgresRepository)(nil)
