package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
)

// PipelineConfig tunes the stage workers.
type PipelineConfig struct {
	Workers       int
	Poll          time.Duration
	Lease         time.Duration
	BatchInterval time.Duration
	ShutdownGrace time.Duration
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	Clock         clock.Clock
}

// PipelineStages are the components the pipeline drives.
type PipelineStages struct {
	Queue     ports.Queue
	Intake    *Intake
	Assembler *BatchAssembler
	Submitter *Submitter
	Tracker   *FinalityTracker
	Notifier  *Notifier
	Deliverer *Deliverer
}

// Pipeline runs every stage worker and drains them in order on shutdown.
type Pipeline struct {
	stages PipelineStages
	cfg    PipelineConfig
	log    *slog.Logger

	intake *StageWorker
	others []*StageWorker

	mu           sync.Mutex
	started      bool
	stopIntake   context.CancelFunc
	stopStages   context.CancelFunc
	intakeDone   sync.WaitGroup
	stagesDone   sync.WaitGroup
	shutdownOnce sync.Once
	shutdownErr  error
}

// NewPipeline wires stage workers for every durable queue.
func NewPipeline(stages PipelineStages, cfg PipelineConfig, log *slog.Logger) *Pipeline {
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 30 * time.Second
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}
	opts := StageOptions{
		Workers:     cfg.Workers,
		Lease:       cfg.Lease,
		Poll:        cfg.Poll,
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
		BackoffMax:  cfg.BackoffMax,
		Clock:       cfg.Clock,
		Logger:      log,
	}

	// Batched requests stay leased while their batch is open.
	intakeOpts := opts
	intakeOpts.Lease = cfg.BatchInterval + cfg.Lease

	p := &Pipeline{stages: stages, cfg: cfg, log: log}
	p.intake = NewStageWorker(stages.Queue, domain.QueueRequestIn, stages.Intake.Route, intakeOpts)
	p.others = []*StageWorker{
		NewStageWorker(stages.Queue, domain.QueueBatchSealed, stages.Submitter.SubmitBatch, opts),
		NewStageWorker(stages.Queue, domain.QueueSubmitReady, stages.Submitter.SubmitRequest, opts),
		NewStageWorker(stages.Queue, domain.QueueFinalityWatch, stages.Tracker.HandleWatch, opts),
		NewStageWorker(stages.Queue, domain.QueueNotifyReady, stages.Notifier.HandleOutcome, opts),
		NewStageWorker(stages.Queue, domain.QueueDelivery, stages.Deliverer.HandleDelivery, opts),
	}
	return p
}

// Run starts all stages and blocks until ctx is cancelled, then drains within
// the shutdown grace period.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	graceCtx, cancel := context.WithTimeout(context.Background(), p.cfg.ShutdownGrace)
	defer cancel()
	return p.Shutdown(graceCtx)
}

// Start launches the stage workers and the tracker loop.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return errors.New("pipeline already started")
	}
	p.started = true

	intakeCtx, stopIntake := context.WithCancel(context.Background())
	stagesCtx, stopStages := context.WithCancel(context.Background())
	p.stopIntake = stopIntake
	p.stopStages = stopStages

	p.intakeDone.Add(1)
	go func() {
		defer p.intakeDone.Done()
		p.intake.Run(intakeCtx)
	}()
	for _, worker := range p.others {
		p.stagesDone.Add(1)
		go func(w *StageWorker) {
			defer p.stagesDone.Done()
			w.Run(stagesCtx)
		}(worker)
	}
	p.stagesDone.Add(1)
	go func() {
		defer p.stagesDone.Done()
		p.stages.Tracker.Run(stagesCtx)
	}()

	p.log.Info("pipeline_started", "stages", len(p.others)+1)
	return nil
}

// Shutdown stops intake, flushes open batches and stops the remaining stages.
// Work still queued is picked up again after restart.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		started := p.started
		p.mu.Unlock()

		startedAt := p.cfg.Clock.Now()
		var errs []error
		if started {
			p.stopIntake()
			if err := waitGroup(ctx, &p.intakeDone); err != nil {
				errs = append(errs, err)
			}
		}
		if err := p.stages.Assembler.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		if started {
			p.stopStages()
			if err := waitGroup(ctx, &p.stagesDone); err != nil {
				errs = append(errs, err)
			}
		}
		p.shutdownErr = errors.Join(errs...)
		p.log.Info("pipeline_stopped",
			"duration", p.cfg.Clock.Since(startedAt).String(),
			"clean", p.shutdownErr == nil,
		)
	})
	return p.shutdownErr
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
