// Package pagination serves forward and backward windows over a patient's
// stored readings, tracking page boundaries and exhaustion.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebasr/vitals-service/internal/models"
	"github.com/sebasr/vitals-service/internal/repository"
)

var (
	// ErrPaginationUnavailable is returned when the store cannot serve a window.
	// The previously displayed window is kept.
	ErrPaginationUnavailable = errors.New("pagination unavailable")

	// ErrInvalidDirection is returned for an unknown direction name
	ErrInvalidDirection = errors.New("invalid pagination direction")
)

// Recorder receives pagination fetch metrics
type Recorder interface {
	RecordPaginationFetch(direction, result string)
}

type noopRecorder struct{}

func (noopRecorder) RecordPaginationFetch(string, string) {}

// Snapshot is a read-only copy of a Manager's state
type Snapshot struct {
	State State
	Page  models.Page
}

// Manager owns the pagination state of one patient's browsing session.
// Fetches are serialized; concurrent callers observe them in some order.
type Manager struct {
	store     repository.VitalsRepository
	patientID uuid.UUID
	pageSize  int
	logger    *zap.Logger
	recorder  Recorder

	mu          sync.Mutex
	state       State
	window      []*models.VitalReading
	hasNext     bool
	hasPrev     bool
	pageNumber  int
	subscribers map[int]chan Snapshot
	nextSubID   int
}

// Option configures a Manager
type Option func(*Manager)

// WithRecorder reports fetch outcomes to r
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// NewManager creates a Manager in StateInitial
func NewManager(store repository.VitalsRepository, patientID uuid.UUID, pageSize int, logger *zap.Logger, opts ...Option) *Manager {
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	m := &Manager{
		store:       store,
		patientID:   patientID,
		pageSize:    pageSize,
		logger:      logger.With(zap.String("patient_id", patientID.String())),
		recorder:    noopRecorder{},
		state:       StateInitial,
		subscribers: make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fetch loads the window in the given direction and returns the resulting page.
// Next and Prev behave as an initial fetch when nothing is loaded yet.
// On a store failure the state is unchanged and the error wraps ErrPaginationUnavailable.
func (m *Manager) Fetch(ctx context.Context, dir Direction) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.fetch(ctx, dir)
}

// Refresh discards the current cursors and loads the first page again.
// No other fetch observes the session between the reset and the reload.
func (m *Manager) Refresh(ctx context.Context) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reset()
	return m.fetch(ctx, DirectionInitial)
}

// fetch runs one fetch; callers must hold mu
func (m *Manager) fetch(ctx context.Context, dir Direction) (*models.Page, error) {
	if m.state == StateInitial || len(m.window) == 0 {
		dir = DirectionInitial
	}

	var err error
	switch dir {
	case DirectionInitial:
		err = m.fetchInitial(ctx)
	case DirectionNext:
		err = m.fetchNext(ctx)
	case DirectionPrev:
		err = m.fetchPrev(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}

	if err != nil {
		m.recorder.RecordPaginationFetch(string(dir), "error")
		m.logger.Warn("pagination fetch failed", zap.String("direction", string(dir)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPaginationUnavailable, err)
	}

	m.recorder.RecordPaginationFetch(string(dir), "ok")
	m.publish()
	page := m.page()
	return &page, nil
}

// Snapshot returns a copy of the current state
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{State: m.state, Page: m.page()}
}

// Subscribe returns a channel that receives a snapshot after every successful
// fetch, and a function that cancels the subscription. Slow subscribers only
// see the most recent snapshot.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan Snapshot, 1)
	m.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subscribers, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (m *Manager) fetchInitial(ctx context.Context) error {
	readings, err := m.store.Query(ctx, models.VitalsQuery{PatientID: m.patientID, Limit: m.pageSize})
	if err != nil {
		return err
	}

	m.state = StateLoaded
	m.window = readings
	m.pageNumber = 1
	m.hasNext = len(readings) == m.pageSize
	m.hasPrev = false
	return nil
}

func (m *Manager) fetchNext(ctx context.Context) error {
	last := m.window[len(m.window)-1].Cursor()
	readings, err := m.store.Query(ctx, models.VitalsQuery{PatientID: m.patientID, After: &last, Limit: m.pageSize})
	if err != nil {
		return err
	}

	if len(readings) == 0 {
		m.hasNext = false
		return nil
	}

	m.window = readings
	m.pageNumber++
	m.hasNext = len(readings) == m.pageSize
	m.hasPrev = m.newerExists(ctx)
	return nil
}

func (m *Manager) fetchPrev(ctx context.Context) error {
	first := m.window[0].Cursor()
	readings, err := m.store.Query(ctx, models.VitalsQuery{PatientID: m.patientID, Before: &first, Limit: m.pageSize})
	if err != nil {
		return err
	}

	if len(readings) == 0 {
		m.hasPrev = false
		return nil
	}

	m.window = readings
	m.pageNumber = max(m.pageNumber-1, 1)
	m.hasNext = true
	m.hasPrev = m.newerExists(ctx)
	return nil
}

// newerExists reports whether a reading newer than the window's first one is
// stored. A failed lookup falls back to the page position.
func (m *Manager) newerExists(ctx context.Context) bool {
	first := m.window[0].Cursor()
	newer, err := m.store.Query(ctx, models.VitalsQuery{PatientID: m.patientID, Before: &first, Limit: 1})
	if err != nil {
		m.logger.Warn("hasPrev lookup failed", zap.Error(err))
		return m.pageNumber > 1
	}
	return len(newer) > 0
}

func (m *Manager) reset() {
	m.state = StateInitial
	m.window = nil
	m.hasNext = false
	m.hasPrev = false
	m.pageNumber = 0
}

// page copies the current window; callers must hold mu
func (m *Manager) page() models.Page {
	readings := make([]*models.VitalReading, len(m.window))
	for i, r := range m.window {
		readings[i] = r.Clone()
	}
	return models.Page{
		Readings:   readings,
		HasNext:    m.hasNext,
		HasPrev:    m.hasPrev,
		PageNumber: m.pageNumber,
		PageSize:   m.pageSize,
	}
}

// publish delivers the current snapshot to subscribers; callers must hold mu
func (m *Manager) publish() {
	if len(m.subscribers) == 0 {
		return
	}
	snap := Snapshot{State: m.state, Page: m.page()}
	for _, ch := range m.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
