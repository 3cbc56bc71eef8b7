// Package sampler draws a proportionate, capacity-limited sample of cases
// from a long-list and assembles the numbered report.
package sampler

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ministryofjustice/probation-case-sampler/internal/allocation"
	"github.com/ministryofjustice/probation-case-sampler/internal/capacity"
	"github.com/ministryofjustice/probation-case-sampler/internal/cases"
	"github.com/ministryofjustice/probation-case-sampler/internal/sizing"
)

var (
	// ErrInvalidConfiguration is returned for inputs that make no sense
	// before any allocation is attempted.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvariantViolation is returned when allocation produced an
	// impossible sample size. The run is abandoned.
	ErrInvariantViolation = errors.New("invariant violation")
)

// Engine runs sampling requests. Each call to Allocate owns its capacity
// counter, so an Engine may serve concurrent requests provided its shuffler
// factory returns a fresh source per call.
type Engine struct {
	now         func() time.Time
	newShuffler func() allocation.Shuffler
	newID       func() uuid.UUID
	logger      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock fixes the clock used for exclusion and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSeed makes every run draw from the same pseudo-random sequence.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.newShuffler = func() allocation.Shuffler { return rand.New(rand.NewPCG(seed, seed)) }
	}
}

// WithShuffler sets a factory for each run's random source.
func WithShuffler(factory func() allocation.Shuffler) Option {
	return func(e *Engine) { e.newShuffler = factory }
}

// WithIDs replaces the run id generator.
func WithIDs(newID func() uuid.UUID) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithLogger sets the logger for run and allocation events.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New returns an Engine using the system clock and unseeded randomness
// unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		now: time.Now,
		newShuffler: func() allocation.Shuffler {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		newID:  uuid.New,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request is one sampling run's parameters.
type Request struct {
	Records          []cases.Record
	Size             int
	BufferPercentage float64
	MaxPerAgent      int
}

// Validate rejects parameters that cannot produce a sample.
func (r Request) Validate() error {
	switch {
	case r.Size < 0:
		return fmt.Errorf("%w: sample size %d is negative", ErrInvalidConfiguration, r.Size)
	case r.BufferPercentage < 0:
		return fmt.Errorf("%w: buffer percentage %.2f is negative", ErrInvalidConfiguration, r.BufferPercentage)
	case r.MaxPerAgent <= 0:
		return fmt.Errorf("%w: max per agent %d must be positive", ErrInvalidConfiguration, r.MaxPerAgent)
	}
	return nil
}

// Allocate stratifies the long-list, sizes each category, divides it down to
// agents under the per-agent cap and draws the sample. Falling short of the
// target is logged and reflected in the report, not returned as an error.
func (e *Engine) Allocate(req Request) (report *Report, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			var ie *sizing.InvariantError
			if rerr, ok := r.(error); ok && errors.As(rerr, &ie) {
				report, err = nil, fmt.Errorf("%w: %w", ErrInvariantViolation, ie)
				return
			}
			panic(r)
		}
	}()

	now := e.now()
	strata, err := cases.Stratify(req.Records, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	}

	populations := make([]sizing.Population[cases.Category], len(strata))
	byCategory := make(map[cases.Category][]cases.Record, len(strata))
	eligible := 0
	for i, s := range strata {
		populations[i] = sizing.Population[cases.Category]{Key: s.Category, Size: len(s.Records)}
		byCategory[s.Category] = s.Records
		eligible += len(s.Records)
	}
	sizes := sizing.Calculate(req.Size, req.BufferPercentage, populations)

	adjuster := allocation.NewAdjuster(capacity.NewCounter(req.MaxPerAgent), e.logger)
	calculator := allocation.NewCalculator(adjuster, e.logger)
	samples, err := NewPicker(calculator, e.newShuffler()).Pick(sizes, byCategory)
	if err != nil {
		return nil, err
	}

	report = &Report{
		ID:          e.newID(),
		Timestamp:   now,
		Requested:   req.Size,
		Buffer:      req.BufferPercentage,
		MaxPerAgent: req.MaxPerAgent,
		Target:      sizing.Target(req.Size, req.BufferPercentage),
		Eligible:    eligible,
		Results:     assemble(samples),
	}

	if short := report.Shortfall(); short > 0 {
		e.logger.Warn("sample under-allocated",
			zap.String("run", report.ID.String()),
			zap.Int("target", report.Target),
			zap.Int("selected", report.Selected()),
			zap.Int("shortfall", short),
			zap.Int("eligible", eligible),
			zap.Int("capacity_dropped", calculator.Dropped()))
	}
	e.logger.Info("sample allocated",
		zap.String("run", report.ID.String()),
		zap.Int("records", len(req.Records)),
		zap.Int("eligible", eligible),
		zap.Int("selected", report.Selected()))
	return report, nil
}
