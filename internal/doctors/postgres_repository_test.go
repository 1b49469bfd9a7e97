package doctors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func doctorRow(id, clerkID string) *pgxmock.Rows {
	now := time.Now().UTC()
	return pgxmock.NewRows([]string{
		"id", "clerk_id", "first_name", "last_name", "email", "specialization",
		"experience", "qualification", "contact_number", "consultation_fee",
		"available_slots", "biography", "rating", "total_patients", "is_active",
		"profile_completed", "created_at", "updated_at",
	}).AddRow(
		id, clerkID, "Meera", "Iyer", "meera@example.com", "Cardiology",
		12, "MD", "+91-90000-00001", 900,
		[]AvailableSlot{{Day: "Monday", StartTime: "09:00", EndTime: "12:00"}},
		"Cardiologist", 4.6, 210, true,
		true, now, now,
	)
}

func TestPostgresGetByClerkID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock)

	mock.ExpectQuery(`FROM doctors WHERE clerk_id`).
		WithArgs("user_d1").
		WillReturnRows(doctorRow("22222222-2222-2222-2222-222222222222", "user_d1"))

	d, err := repo.GetByClerkID(context.Background(), "user_d1")
	if err != nil {
		t.Fatalf("GetByClerkID returned error: %v", err)
	}
	if d.Specialization != "Cardiology" || !d.ProfileCompleted {
		t.Fatalf("unexpected doctor: %+v", d)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock)

	mock.ExpectQuery(`FROM doctors WHERE id`).
		WithArgs("33333333-3333-3333-3333-333333333333").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByID(context.Background(), "33333333-3333-3333-3333-333333333333")
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("err = %v, want ErrDoctorNotFound", err)
	}
}

func TestPostgresUpsertDuplicateEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock)

	mock.ExpectQuery(`INSERT INTO doctors`).
		WithArgs(
			pgxmock.AnyArg(), "user_d2", pgxmock.AnyArg(), pgxmock.AnyArg(),
			"taken@example.com", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "doctors_email_key"})

	_, err = repo.Upsert(context.Background(), &Doctor{
		ClerkID: "user_d2",
		Email:   "taken@example.com",
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestPostgresListActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock)

	mock.ExpectQuery(`(?s)FROM doctors\s+WHERE is_active`).
		WillReturnRows(doctorRow("44444444-4444-4444-4444-444444444444", "user_d3"))

	list, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	if len(list) != 1 || list[0].ClerkID != "user_d3" {
		t.Fatalf("unexpected list: %+v", list)
	}
}
