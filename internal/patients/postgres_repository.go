package patients

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

// PostgresRepository stores patient profiles in the relational database.
type PostgresRepository struct {
	db dbtx
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock connection for tests.
func NewPostgresRepositoryWithDB(db dbtx) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const patientColumns = `
	id, clerk_id, name, age, gender, phone, email, date_of_birth,
	address_street, address_city, address_state, address_zip,
	emergency_name, emergency_phone, emergency_relationship,
	allergies, conditions, medications, created_at, updated_at
`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(
		&p.ID,
		&p.ClerkID,
		&p.Name,
		&p.Age,
		&p.Gender,
		&p.Phone,
		&p.Email,
		&p.DateOfBirth,
		&p.Address.Street,
		&p.Address.City,
		&p.Address.State,
		&p.Address.ZipCode,
		&p.EmergencyContact.Name,
		&p.EmergencyContact.Phone,
		&p.EmergencyContact.Relationship,
		&p.MedicalHistory.Allergies,
		&p.MedicalHistory.Conditions,
		&p.MedicalHistory.Medications,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByClerkID fetches the profile for an external identity id.
func (r *PostgresRepository) GetByClerkID(ctx context.Context, clerkID string) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE clerk_id = $1`
	p, err := scanPatient(r.db.QueryRow(ctx, query, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: select by clerk id: %w", err)
	}
	return p, nil
}

// GetByID fetches a profile by internal id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	p, err := scanPatient(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: select by id: %w", err)
	}
	return p, nil
}

// Upsert creates or replaces the profile keyed by clerk id. Calling it twice
// with the same payload leaves a single row with identical field values.
func (r *PostgresRepository) Upsert(ctx context.Context, p *Patient) (*Patient, error) {
	query := `
		INSERT INTO patients (
			id, clerk_id, name, age, gender, phone, email, date_of_birth,
			address_street, address_city, address_state, address_zip,
			emergency_name, emergency_phone, emergency_relationship,
			allergies, conditions, medications
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (clerk_id) DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			gender = EXCLUDED.gender,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			date_of_birth = EXCLUDED.date_of_birth,
			address_street = EXCLUDED.address_street,
			address_city = EXCLUDED.address_city,
			address_state = EXCLUDED.address_state,
			address_zip = EXCLUDED.address_zip,
			emergency_name = EXCLUDED.emergency_name,
			emergency_phone = EXCLUDED.emergency_phone,
			emergency_relationship = EXCLUDED.emergency_relationship,
			allergies = EXCLUDED.allergies,
			conditions = EXCLUDED.conditions,
			medications = EXCLUDED.medications,
			updated_at = now()
		RETURNING id, created_at, updated_at
	`
	stored := *p
	if err := r.db.QueryRow(ctx, query,
		uuid.NewString(),
		p.ClerkID,
		p.Name,
		p.Age,
		p.Gender,
		p.Phone,
		p.Email,
		p.DateOfBirth,
		p.Address.Street,
		p.Address.City,
		p.Address.State,
		p.Address.ZipCode,
		p.EmergencyContact.Name,
		p.EmergencyContact.Phone,
		p.EmergencyContact.Relationship,
		p.MedicalHistory.Allergies,
		p.MedicalHistory.Conditions,
		p.MedicalHistory.Medications,
	).Scan(&stored.ID, &stored.CreatedAt, &stored.UpdatedAt); err != nil {
		return nil, fmt.Errorf("patients: upsert: %w", err)
	}
	return &stored, nil
}

// CreateStub inserts a minimal profile if none exists yet.
func (r *PostgresRepository) CreateStub(ctx context.Context, clerkID, name, email string) (*Patient, bool, error) {
	query := `
		INSERT INTO patients (id, clerk_id, name, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (clerk_id) DO NOTHING
	`
	ct, err := r.db.Exec(ctx, query, uuid.NewString(), clerkID, name, email)
	if err != nil {
		return nil, false, fmt.Errorf("patients: create stub: %w", err)
	}
	created := ct.RowsAffected() > 0

	p, err := r.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, false, err
	}
	return p, created, nil
}

var _ Repository = (*PostgresRepository)(nil)
