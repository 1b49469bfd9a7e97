package doctors

import (
	"context"
	"errors"
	"fmt"

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

// PostgresRepository stores doctor profiles in the relational database.
type PostgresRepository struct {
	db dbtx
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("doctors: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock connection for tests.
func NewPostgresRepositoryWithDB(db dbtx) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const doctorColumns = `
	id, clerk_id, first_name, last_name, email, specialization, experience,
	qualification, contact_number, consultation_fee, available_slots,
	biography, rating, total_patients, is_active, profile_completed,
	created_at, updated_at
`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	if err := row.Scan(
		&d.ID,
		&d.ClerkID,
		&d.FirstName,
		&d.LastName,
		&d.Email,
		&d.Specialization,
		&d.Experience,
		&d.Qualification,
		&d.ContactNumber,
		&d.ConsultationFee,
		&d.AvailableSlots,
		&d.Biography,
		&d.Rating,
		&d.TotalPatients,
		&d.IsActive,
		&d.ProfileCompleted,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if d.AvailableSlots == nil {
		d.AvailableSlots = []AvailableSlot{}
	}
	return &d, nil
}

// GetByClerkID fetches the profile for an external identity id.
func (r *PostgresRepository) GetByClerkID(ctx context.Context, clerkID string) (*Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE clerk_id = $1`
	d, err := scanDoctor(r.db.QueryRow(ctx, query, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("doctors: select by clerk id: %w", err)
	}
	return d, nil
}

// GetByID fetches a profile by internal id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`
	d, err := scanDoctor(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("doctors: select by id: %w", err)
	}
	return d, nil
}

// ListActive returns active doctors for the public directory.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*Doctor, error) {
	query := `
		SELECT ` + doctorColumns + `
		FROM doctors
		WHERE is_active
		ORDER BY rating DESC, total_patients DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("doctors: list active: %w", err)
	}
	defer rows.Close()

	var out []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("doctors: scan row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctors: iterate rows: %w", err)
	}
	return out, nil
}

// Upsert creates or replaces the profile keyed by clerk id. Completing the
// upsert always marks the profile completed and active; rating and patient
// counters are never overwritten from the profile form.
func (r *PostgresRepository) Upsert(ctx context.Context, d *Doctor) (*Doctor, error) {
	query := `
		INSERT INTO doctors (
			id, clerk_id, first_name, last_name, email, specialization,
			experience, qualification, contact_number, consultation_fee,
			available_slots, biography, is_active, profile_completed
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE, TRUE)
		ON CONFLICT (clerk_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			specialization = EXCLUDED.specialization,
			experience = EXCLUDED.experience,
			qualification = EXCLUDED.qualification,
			contact_number = EXCLUDED.contact_number,
			consultation_fee = EXCLUDED.consultation_fee,
			available_slots = EXCLUDED.available_slots,
			biography = EXCLUDED.biography,
			is_active = TRUE,
			profile_completed = TRUE,
			updated_at = now()
		RETURNING ` + doctorColumns + `
	`
	stored, err := scanDoctor(r.db.QueryRow(ctx, query,
		uuid.NewString(),
		d.ClerkID,
		d.FirstName,
		d.LastName,
		d.Email,
		d.Specialization,
		d.Experience,
		d.Qualification,
		d.ContactNumber,
		d.ConsultationFee,
		d.AvailableSlots,
		d.Biography,
	))
	if err != nil {
		if isUniqueViolation(err, "doctors_email_key") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("doctors: upsert: %w", err)
	}
	return stored, nil
}

// CreateStub inserts a minimal profile at role selection time.
func (r *PostgresRepository) CreateStub(ctx context.Context, clerkID, firstName, lastName, email string) (*Doctor, bool, error) {
	query := `
		INSERT INTO doctors (
			id, clerk_id, first_name, last_name, email, specialization,
			qualification, contact_number
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (clerk_id) DO NOTHING
	`
	ct, err := r.db.Exec(ctx, query,
		uuid.NewString(), clerkID, firstName, lastName, email,
		StubSpecialization, StubQualification, StubContactNumber,
	)
	if err != nil {
		if isUniqueViolation(err, "doctors_email_key") {
			return nil, false, ErrDuplicateEmail
		}
		return nil, false, fmt.Errorf("doctors: create stub: %w", err)
	}
	created := ct.RowsAffected() > 0

	d, err := r.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, false, err
	}
	return d, created, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

var _ Repository = (*PostgresRepository)(nil)
