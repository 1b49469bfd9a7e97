package patients

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for patient profile storage.
type Repository interface {
	GetByClerkID(ctx context.Context, clerkID string) (*Patient, error)
	GetByID(ctx context.Context, id string) (*Patient, error)
	// Upsert creates or replaces the profile keyed by clerk id.
	Upsert(ctx context.Context, p *Patient) (*Patient, error)
	// CreateStub inserts a minimal profile if none exists and returns the
	// stored profile either way.
	CreateStub(ctx context.Context, clerkID, name, email string) (*Patient, bool, error)
}

// InMemoryRepository is a map-backed Repository used in tests and local runs.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byClerk map[string]*Patient
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byClerk: make(map[string]*Patient)}
}

// GetByClerkID retrieves a profile by external identity id.
func (r *InMemoryRepository) GetByClerkID(ctx context.Context, clerkID string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byClerk[clerkID]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

// GetByID retrieves a profile by internal id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byClerk {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPatientNotFound
}

// Upsert creates or replaces the profile keyed by clerk id.
func (r *InMemoryRepository) Upsert(ctx context.Context, p *Patient) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	existing, ok := r.byClerk[p.ClerkID]
	if ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		p.ID = uuid.NewString()
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	cp := *p
	r.byClerk[p.ClerkID] = &cp
	out := cp
	return &out, nil
}

// CreateStub inserts a minimal profile if none exists.
func (r *InMemoryRepository) CreateStub(ctx context.Context, clerkID, name, email string) (*Patient, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byClerk[clerkID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	now := time.Now().UTC()
	p := &Patient{
		ID:        uuid.NewString(),
		ClerkID:   clerkID,
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.byClerk[clerkID] = p
	cp := *p
	return &cp, true, nil
}
