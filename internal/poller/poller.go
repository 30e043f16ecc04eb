// Package poller drives the acquisition cycle: read the device, enrich and
// predict, then persist, with at most one cycle in flight.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebasr/vitals-service/internal/metrics"
	"github.com/sebasr/vitals-service/internal/models"
	"github.com/sebasr/vitals-service/internal/notify"
	"github.com/sebasr/vitals-service/internal/prediction"
	"github.com/sebasr/vitals-service/internal/repository"
	"github.com/sebasr/vitals-service/internal/session"
)

// DeviceReader reads one sample from the local sensor
type DeviceReader interface {
	Read(ctx context.Context) (*models.RawReading, error)
}

// Predictor classifies an enriched sample
type Predictor interface {
	Predict(ctx context.Context, reading *models.RawReading, profile *models.PatientProfile) (*prediction.Result, error)
}

// ErrProfileMismatch is returned when a profile lookup answers for a different patient
var ErrProfileMismatch = errors.New("profile belongs to another patient")

// ProfileSource resolves patient profiles. Timer cycles use the patient
// currently being polled; manual uploads name the requesting patient.
type ProfileSource interface {
	CurrentProfile(ctx context.Context) (*models.PatientProfile, error)
	Profile(ctx context.Context, patientID uuid.UUID) (*models.PatientProfile, error)
}

type profileLookup func(ctx context.Context) (*models.PatientProfile, error)

// Recorder receives cycle metrics
type Recorder interface {
	RecordCycle(outcome string, duration time.Duration)
	RecordComponentError(component string)
}

type noopRecorder struct{}

func (noopRecorder) RecordCycle(string, time.Duration) {}
func (noopRecorder) RecordComponentError(string)       {}

// State is the upload status of the poller
type State int32

const (
	StateIdle State = iota
	StatePolling
)

func (s State) String() string {
	if s == StatePolling {
		return "polling"
	}
	return "idle"
}

// Outcome is the result of one tick or manual trigger
type Outcome string

const (
	OutcomeSkipped                 Outcome = "skipped"
	OutcomeDeviceUnavailable       Outcome = "device_unavailable"
	OutcomeNoPatient               Outcome = "no_patient"
	OutcomeStored                  Outcome = "stored"
	OutcomeStoredWithoutPrediction Outcome = "stored_without_prediction"
	OutcomePersistenceFailed       Outcome = "persistence_failed"
)

// Stored reports whether the cycle persisted a reading
func (o Outcome) Stored() bool {
	return o == OutcomeStored || o == OutcomeStoredWithoutPrediction
}

// Result describes one cycle. Reading is set when a reading was stored;
// Err carries the failure that ended the cycle early, if any.
type Result struct {
	Outcome Outcome
	Reading *models.VitalReading
	Err     error
}

// Poller runs acquisition cycles on a timer and on demand
type Poller struct {
	device    DeviceReader
	predictor Predictor
	store     repository.VitalsRepository
	profiles  ProfileSource
	publisher notify.Publisher
	recorder  Recorder
	logger    *zap.Logger

	state    atomic.Int32
	inflight sync.WaitGroup

	mu     sync.RWMutex
	latest *models.VitalReading
}

// Option configures a Poller
type Option func(*Poller)

// WithPublisher announces every stored reading through p
func WithPublisher(p notify.Publisher) Option {
	return func(pl *Poller) {
		if p != nil {
			pl.publisher = p
		}
	}
}

// WithRecorder reports cycle metrics to r
func WithRecorder(r Recorder) Option {
	return func(pl *Poller) {
		if r != nil {
			pl.recorder = r
		}
	}
}

// New creates an idle Poller
func New(device DeviceReader, predictor Predictor, store repository.VitalsRepository, profiles ProfileSource, logger *zap.Logger, opts ...Option) *Poller {
	p := &Poller{
		device:    device,
		predictor: predictor,
		store:     store,
		profiles:  profiles,
		publisher: notify.NopPublisher{},
		recorder:  noopRecorder{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current upload status
func (p *Poller) State() State {
	return State(p.state.Load())
}

// Latest returns a copy of the most recently stored reading, or nil
func (p *Poller) Latest() *models.VitalReading {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.latest == nil {
		return nil
	}
	return p.latest.Clone()
}

// Run starts a cycle every interval until ctx is canceled. Ticks that fire
// while a cycle is in flight are skipped. Run returns once the in-flight
// cycle, if any, has completed.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("poller started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping, waiting for in-flight cycle")
			p.inflight.Wait()
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			p.startCycle(ctx)
		}
	}
}

// Trigger runs one cycle for patientID immediately and waits for it. The
// reading is attributed to patientID regardless of the polled patient. If a
// cycle is already in flight it returns OutcomeSkipped without queuing.
func (p *Poller) Trigger(ctx context.Context, patientID uuid.UUID) Result {
	if !p.acquire() {
		return p.skipped()
	}

	p.inflight.Add(1)
	defer p.inflight.Done()
	defer p.release()

	return p.cycle(context.WithoutCancel(ctx), p.profileOf(patientID))
}

func (p *Poller) startCycle(ctx context.Context) {
	if !p.acquire() {
		p.skipped()
		return
	}

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer p.release()

		p.cycle(context.WithoutCancel(ctx), p.profiles.CurrentProfile)
	}()
}

func (p *Poller) profileOf(patientID uuid.UUID) profileLookup {
	return func(ctx context.Context) (*models.PatientProfile, error) {
		profile, err := p.profiles.Profile(ctx, patientID)
		if err != nil {
			return nil, err
		}
		if profile.PatientID != patientID {
			return nil, fmt.Errorf("%w: got %s, want %s", ErrProfileMismatch, profile.PatientID, patientID)
		}
		return profile, nil
	}
}

func (p *Poller) acquire() bool {
	return p.state.CompareAndSwap(int32(StateIdle), int32(StatePolling))
}

func (p *Poller) release() {
	p.state.Store(int32(StateIdle))
}

func (p *Poller) skipped() Result {
	p.logger.Debug("cycle already in flight, skipping")
	p.recorder.RecordCycle(string(OutcomeSkipped), 0)
	return Result{Outcome: OutcomeSkipped}
}

// cycle performs one acquisition. The caller holds the polling state.
func (p *Poller) cycle(ctx context.Context, lookup profileLookup) (res Result) {
	start := time.Now()
	defer func() {
		p.recorder.RecordCycle(string(res.Outcome), time.Since(start))
	}()

	raw, err := p.device.Read(ctx)
	if err != nil {
		p.recorder.RecordComponentError(metrics.ComponentDevice)
		p.logger.Warn("device read failed", zap.Error(err))
		return Result{Outcome: OutcomeDeviceUnavailable, Err: err}
	}

	profile, err := lookup(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrPatientNotFound) && !errors.Is(err, session.ErrNoActivePatient) {
			p.recorder.RecordComponentError(metrics.ComponentProfile)
			p.logger.Error("profile lookup failed", zap.Error(err))
		} else {
			p.logger.Debug("no patient to attribute reading to", zap.Error(err))
		}
		return Result{Outcome: OutcomeNoPatient, Err: err}
	}

	logger := p.logger.With(zap.String("patient_id", profile.PatientID.String()))
	reading := models.NewVitalReading(profile.PatientID, raw)

	result, err := p.predictor.Predict(ctx, raw, profile)
	if err != nil {
		p.recorder.RecordComponentError(metrics.ComponentPrediction)
		logger.Warn("prediction failed, storing reading without it", zap.Error(err))
	} else {
		reading.WithPrediction(result.Label, result.Confidence)
	}

	if err := p.store.Append(ctx, reading); err != nil {
		p.recorder.RecordComponentError(metrics.ComponentPersistence)
		logger.Error("failed to store reading", zap.Error(err))
		return Result{Outcome: OutcomePersistenceFailed, Err: err}
	}

	p.mu.Lock()
	p.latest = reading.Clone()
	p.mu.Unlock()

	if err := p.publisher.PublishReading(ctx, reading); err != nil {
		p.recorder.RecordComponentError(metrics.ComponentNotify)
		logger.Warn("failed to announce reading", zap.Error(err))
	}

	outcome := OutcomeStored
	if !reading.HasPrediction() {
		outcome = OutcomeStoredWithoutPrediction
	}

	logger.Info("reading stored",
		zap.String("reading_id", reading.ID.String()),
		zap.String("outcome", string(outcome)),
		zap.Duration("duration", time.Since(start)),
	)

	return Result{Outcome: outcome, Reading: reading.Clone()}
}
