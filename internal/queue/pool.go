package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"

	"github.com/flowenci/interview-coach/internal/observability"
)

var (
	// ErrAlreadyQueued is returned when the recording is already queued or running
	ErrAlreadyQueued = errors.New("analysis already queued")
	// ErrQueueFull is returned instead of blocking when the buffer is full
	ErrQueueFull = errors.New("analysis queue full")
	// ErrStopped is returned after Stop
	ErrStopped = errors.New("analysis queue stopped")
)

// Job asks for one recording to be analysed
type Job struct {
	RecordingID   string `json:"recording_id"`
	UserID        string `json:"user_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Handler runs one job
type Handler func(ctx context.Context, job Job) error

// Enqueuer accepts analysis jobs
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// Pool runs jobs on a fixed number of workers with a bounded buffer
type Pool struct {
	jobs        chan Job
	workerCount int
	handler     Handler
	onPanic     func(Job)
	logger      zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	stopped  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a pool; call Start to launch the workers
func NewPool(workerCount, queueSize int, handler Handler, logger zerolog.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:        make(chan Job, queueSize),
		workerCount: workerCount,
		handler:     handler,
		logger:      logger.With().Str("component", "analysis_pool").Logger(),
		inFlight:    make(map[string]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// OnPanic registers a hook invoked after a handler panic is recovered
func (p *Pool) OnPanic(fn func(Job)) {
	p.onPanic = fn
}

// Start launches the workers
func (p *Pool) Start() {
	p.logger.Info().Int("workers", p.workerCount).Int("capacity", cap(p.jobs)).Msg("Starting analysis worker pool")
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Enqueue implements Enqueuer
func (p *Pool) Enqueue(_ context.Context, job Job) error {
	return p.Submit(job)
}

// Submit queues job without blocking
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrStopped
	}
	if _, ok := p.inFlight[job.RecordingID]; ok {
		return ErrAlreadyQueued
	}

	select {
	case p.jobs <- job:
		p.inFlight[job.RecordingID] = struct{}{}
		observability.SetQueueDepth(len(p.jobs))
		p.logger.Debug().Str("recording_id", job.RecordingID).Msg("Analysis job queued")
		return nil
	default:
		return ErrQueueFull
	}
}

// Depth returns the number of buffered jobs
func (p *Pool) Depth() int {
	return len(p.jobs)
}

// InFlight reports whether a recording is queued or running
func (p *Pool) InFlight(recordingID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inFlight[recordingID]
	return ok
}

// Stop stops intake, lets workers drain the buffer, and waits for them
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	p.logger.Info().Msg("Analysis worker pool stopped")
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		observability.SetQueueDepth(len(p.jobs))
		p.run(id, job)
	}
}

func (p *Pool) run(workerID int, job Job) {
	defer func() {
		p.mu.Lock()
		delete(p.inFlight, job.RecordingID)
		p.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Int("worker", workerID).
				Str("recording_id", job.RecordingID).
				Str("panic", fmt.Sprint(r)).
				Str("stack", string(debug.Stack())).
				Msg("Analysis job panicked")
			observability.RecordError("panic", "analysis_pool")
			if p.onPanic != nil {
				p.onPanic(job)
			}
		}
	}()

	if err := p.handler(p.ctx, job); err != nil {
		p.logger.Warn().
			Err(err).
			Int("worker", workerID).
			Str("recording_id", job.RecordingID).
			Msg("Analysis job failed")
	}
}
