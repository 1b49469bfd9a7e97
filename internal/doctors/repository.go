package doctors

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StubDefaults are the placeholder values for a doctor created at role
// selection, before onboarding completes.
const (
	StubSpecialization = "General Practice"
	StubQualification  = "To be updated"
	StubContactNumber  = "Not provided"
)

// Repository defines the interface for doctor profile storage.
type Repository interface {
	GetByClerkID(ctx context.Context, clerkID string) (*Doctor, error)
	GetByID(ctx context.Context, id string) (*Doctor, error)
	// ListActive returns active doctors sorted by rating desc then
	// total patients desc, for the public directory.
	ListActive(ctx context.Context) ([]*Doctor, error)
	// Upsert creates or replaces the profile keyed by clerk id, marking it
	// completed and active.
	Upsert(ctx context.Context, d *Doctor) (*Doctor, error)
	// CreateStub inserts a minimal inactive-onboarding profile if none
	// exists and returns the stored profile either way.
	CreateStub(ctx context.Context, clerkID, firstName, lastName, email string) (*Doctor, bool, error)
}

// InMemoryRepository is a map-backed Repository used in tests and local runs.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byClerk map[string]*Doctor
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byClerk: make(map[string]*Doctor)}
}

func (r *InMemoryRepository) GetByClerkID(ctx context.Context, clerkID string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byClerk[clerkID]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.byClerk {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (r *InMemoryRepository) ListActive(ctx context.Context) ([]*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Doctor
	for _, d := range r.byClerk {
		if d.IsActive {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].TotalPatients > out[j].TotalPatients
	})
	return out, nil
}

func (r *InMemoryRepository) Upsert(ctx context.Context, d *Doctor) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for clerkID, other := range r.byClerk {
		if clerkID != d.ClerkID && other.Email == d.Email && d.Email != "" {
			return nil, ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	existing, ok := r.byClerk[d.ClerkID]
	if ok {
		d.ID = existing.ID
		d.CreatedAt = existing.CreatedAt
		d.Rating = existing.Rating
		d.TotalPatients = existing.TotalPatients
	} else {
		d.ID = uuid.NewString()
		d.CreatedAt = now
	}
	d.ProfileCompleted = true
	d.IsActive = true
	d.UpdatedAt = now
	cp := *d
	r.byClerk[d.ClerkID] = &cp
	out := cp
	return &out, nil
}

func (r *InMemoryRepository) CreateStub(ctx context.Context, clerkID, firstName, lastName, email string) (*Doctor, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byClerk[clerkID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	now := time.Now().UTC()
	d := &Doctor{
		ID:             uuid.NewString(),
		ClerkID:        clerkID,
		FirstName:      firstName,
		LastName:       lastName,
		Email:          email,
		Specialization: StubSpecialization,
		Qualification:  StubQualification,
		ContactNumber:  StubContactNumber,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.byClerk[clerkID] = d
	cp := *d
	return &cp, true, nil
}
