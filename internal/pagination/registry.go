package pagination

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebasr/vitals-service/internal/repository"
)

// Registry holds one Manager per patient
type Registry struct {
	store    repository.VitalsRepository
	pageSize int
	logger   *zap.Logger
	opts     []Option

	mu       sync.Mutex
	managers map[uuid.UUID]*Manager
}

// NewRegistry creates an empty registry whose managers share store and pageSize
func NewRegistry(store repository.VitalsRepository, pageSize int, logger *zap.Logger, opts ...Option) *Registry {
	return &Registry{
		store:    store,
		pageSize: pageSize,
		logger:   logger,
		opts:     opts,
		managers: make(map[uuid.UUID]*Manager),
	}
}

// For returns the patient's Manager, creating it on first use
func (r *Registry) For(patientID uuid.UUID) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.managers[patientID]
	if !ok {
		m = NewManager(r.store, patientID, r.pageSize, r.logger, r.opts...)
		r.managers[patientID] = m
	}
	return m
}
