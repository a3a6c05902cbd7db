// Package engine drives the lifecycle of image generation jobs: it creates
// records, claims them for execution, invokes the generation client with
// bounded retries, and persists every transition through the store's
// compare-and-swap write path. The store is the single source of truth;
// in-memory state here is disposable.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nanobanan/banana/internal/db/models"
	"github.com/nanobanan/banana/internal/db/repos"
	"github.com/nanobanan/banana/internal/events"
	"github.com/nanobanan/banana/internal/genclient"
	"github.com/nanobanan/banana/internal/logger"
)

// createIDRetries bounds how often Submit regenerates a colliding job ID
const createIDRetries = 3

// GenerationClient is the narrow contract the engine requires from the
// remote model service adapter. Implementations must be stateless and must
// never write to the job store.
type GenerationClient interface {
	Generate(ctx context.Context, req genclient.Request) ([]models.Image, error)
}

// Policy holds the retry and concurrency knobs of the engine
type Policy struct {
	// MaxAttempts bounds generation client invocations per job, across
	// process restarts
	MaxAttempts int
	// InitialBackoff is the delay before the second attempt; it doubles
	// per retry up to MaxBackoff
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// AttemptTimeout bounds a single generation client invocation
	AttemptTimeout time.Duration
	// Concurrency is the maximum number of in-flight generations
	Concurrency int64
}

// DefaultPolicy returns the standard retry policy
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		AttemptTimeout: 2 * time.Minute,
		Concurrency:    2,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = def.AttemptTimeout
	}
	if p.Concurrency <= 0 {
		p.Concurrency = def.Concurrency
	}
	return p
}

// Engine orchestrates job lifecycles against the store and the generation
// client
type Engine struct {
	repo   *repos.JobRepository
	client GenerationClient
	bus    *events.Bus
	policy Policy

	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	waits map[string]context.CancelFunc
}

// New creates an engine. The bus may be shared with any number of readers.
func New(repo *repos.JobRepository, client GenerationClient, bus *events.Bus, policy Policy) *Engine {
	policy = policy.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		repo:   repo,
		client: client,
		bus:    bus,
		policy: policy,
		sem:    semaphore.NewWeighted(policy.Concurrency),
		ctx:    ctx,
		cancel: cancel,
		waits:  make(map[string]context.CancelFunc),
	}
}

// SubmitGenerate enqueues a generation job and dispatches its drive.
// Returns the new job ID.
func (e *Engine) SubmitGenerate(ctx context.Context, prompt string, params models.Params) (string, error) {
	return e.submit(ctx, models.NewGenerateJob(prompt, params))
}

// SubmitEdit enqueues an edit job. The source image bytes must already be
// resolved into params.InputData; the engine never reads the filesystem.
func (e *Engine) SubmitEdit(ctx context.Context, prompt, sourceImage string, params models.Params) (string, error) {
	if params.InputData == "" {
		return "", fmt.Errorf("edit job requires resolved source image data")
	}
	return e.submit(ctx, models.NewEditJob(prompt, sourceImage, params))
}

func (e *Engine) submit(ctx context.Context, job *models.Job) (string, error) {
	for attempt := 0; ; attempt++ {
		err := e.repo.Create(ctx, job)
		if err == nil {
			break
		}
		if errors.Is(err, repos.ErrDuplicateID) && attempt < createIDRetries {
			job.ID = models.NewJobID()
			continue
		}
		return "", err
	}

	e.bus.Publish(events.Event{Type: events.EventJobCreated, JobID: job.ID, Status: job.Status})
	e.dispatch(job.ID)
	return job.ID, nil
}

// Recover re-dispatches jobs a previous process instance left unfinished.
// Running jobs resume at their persisted attempt count so the attempt bound
// holds across restarts.
func (e *Engine) Recover(ctx context.Context) (int, error) {
	resumed := 0
	for _, status := range []models.JobStatus{models.JobStatusRunning, models.JobStatusQueued} {
		jobs, err := e.repo.List(ctx, repos.Filter{Status: status}, &models.ListOptions{Limit: models.MaxListLimit})
		if err != nil {
			return resumed, fmt.Errorf("failed to scan for %s jobs: %w", status, err)
		}
		for _, job := range jobs {
			logger.Infof("resuming %s job %s (attempt %d)", job.Status, job.ID, job.Attempts)
			e.dispatch(job.ID)
			resumed++
		}
	}
	return resumed, nil
}

// Cancel marks a job failed with a cancelled error kind. A queued job or a
// job between attempts is cancelled immediately; for an in-flight call the
// cancellation is best-effort and the call's result is discarded when the
// driver loses its transition.
func (e *Engine) Cancel(ctx context.Context, id string) error {
	fields := map[string]interface{}{
		models.JobErrorKindField: models.ErrorKindCancelled,
		models.JobErrorMsgField:  "cancelled by user",
	}

	err := e.repo.Transition(ctx, id, models.JobStatusQueued, models.JobStatusFailed, fields)
	if errors.Is(err, repos.ErrStaleTransition) {
		err = e.repo.Transition(ctx, id, models.JobStatusRunning, models.JobStatusFailed, fields)
	}
	if errors.Is(err, repos.ErrStaleTransition) {
		job, gerr := e.repo.GetByID(ctx, id)
		if gerr != nil {
			return gerr
		}
		return fmt.Errorf("job %s is already %s", id, job.Status)
	}
	if err != nil {
		return err
	}

	e.bus.Publish(events.Event{Type: events.EventJobTransitioned, JobID: id, Status: models.JobStatusFailed})
	e.interrupt(id)
	logger.Infof("cancelled job %s", id)
	return nil
}

// Await blocks until the job reaches a terminal state and returns its
// persisted record. Completion is always reported from the store, never
// from the driver's working copy.
func (e *Engine) Await(ctx context.Context, id string) (*models.Job, error) {
	ch, unsubscribe := e.bus.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		job, err := e.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Status.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ch:
		case <-ticker.C:
		}
	}
}

// Close stops accepting work and waits for in-flight drives to unwind.
// Interrupted jobs stay Running in the store and resume on the next start.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

// dispatch runs a job's lifecycle drive on its own goroutine, bounded by
// the worker pool semaphore.
func (e *Engine) dispatch(id string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.sem.Acquire(e.ctx, 1); err != nil {
			return
		}
		defer e.sem.Release(1)
		e.drive(e.ctx, id)
	}()
}

// drive executes one job's lifecycle: claim, invoke, classify, retry or
// finish. All persisted state flows through conditional transitions; losing
// one means another writer owns the job and this drive aborts.
func (e *Engine) drive(ctx context.Context, id string) {
	job, err := e.repo.GetByID(ctx, id)
	if err != nil {
		logger.Errorf("drive: failed to load job %s: %v", id, err)
		return
	}

	// Re-driving a terminal job is a no-op; never re-invoke the remote
	// service for a finished job.
	if job.Status.IsTerminal() {
		logger.Debugf("job %s already %s, nothing to do", id, job.Status)
		return
	}

	attempts := job.Attempts
	if job.Status == models.JobStatusQueued {
		// Claim before the first invocation so a crash mid-call leaves a
		// recoverable Running record.
		attempts = 1
		err := e.transition(ctx, id, models.JobStatusQueued, models.JobStatusRunning, map[string]interface{}{
			models.JobAttemptsField: attempts,
		})
		if err != nil {
			e.abandon(id, err)
			return
		}
	}

	req, err := genclient.RequestFromJob(job)
	if err != nil {
		e.fail(ctx, id, models.ErrorKindPermanent, err.Error())
		return
	}

	for {
		images, err := e.invoke(ctx, req)
		if err == nil {
			e.complete(ctx, id, attempts, images)
			return
		}
		if ctx.Err() != nil {
			logger.Infof("shutdown during job %s; it will resume on next start", id)
			return
		}

		kind := genclient.Kind(err)
		logger.Debugf("job %s attempt %d failed (%s): %v", id, attempts, kind, err)

		if kind != models.ErrorKindTransient {
			// Fail closed: unrecognized errors never retry.
			msg := err.Error()
			if kind == models.ErrorKindUnknown {
				msg = "unclassified error: " + msg
			}
			e.fail(ctx, id, models.ErrorKindPermanent, msg)
			return
		}

		if attempts >= e.policy.MaxAttempts {
			e.fail(ctx, id, models.ErrorKindExhausted,
				fmt.Sprintf("retries exhausted after %d attempts: %v", attempts, err))
			return
		}

		// Persist the retry before waiting so the attempt count survives
		// a crash during backoff.
		attempts++
		terr := e.transition(ctx, id, models.JobStatusRunning, models.JobStatusRunning, map[string]interface{}{
			models.JobAttemptsField: attempts,
		})
		if terr != nil {
			e.abandon(id, terr)
			return
		}

		if !e.backoff(ctx, id, attempts) {
			return
		}

		// A cancellation may have landed while we slept.
		current, gerr := e.repo.GetByID(ctx, id)
		if gerr != nil {
			logger.Errorf("drive: failed to reload job %s: %v", id, gerr)
			return
		}
		if current.Status != models.JobStatusRunning {
			logger.Infof("job %s became %s during backoff, stopping", id, current.Status)
			return
		}
	}
}

// invoke performs a single bounded generation call
func (e *Engine) invoke(ctx context.Context, req genclient.Request) ([]models.Image, error) {
	actx, cancel := context.WithTimeout(ctx, e.policy.AttemptTimeout)
	defer cancel()
	return e.client.Generate(actx, req)
}

func (e *Engine) complete(ctx context.Context, id string, attempts int, images []models.Image) {
	err := e.transition(ctx, id, models.JobStatusRunning, models.JobStatusCompleted, map[string]interface{}{
		models.JobImagesField: models.Images(images),
	})
	if err != nil {
		e.abandon(id, err)
		return
	}
	logger.Infof("job %s completed with %d image(s) after %d attempt(s)", id, len(images), attempts)
}

func (e *Engine) fail(ctx context.Context, id string, kind models.ErrorKind, msg string) {
	err := e.transition(ctx, id, models.JobStatusRunning, models.JobStatusFailed, map[string]interface{}{
		models.JobErrorKindField: kind,
		models.JobErrorMsgField:  msg,
	})
	if err != nil {
		e.abandon(id, err)
		return
	}
	logger.Warnf("job %s failed (%s): %s", id, kind, msg)
}

// transition applies a conditional store update and notifies observers
func (e *Engine) transition(ctx context.Context, id string, from, to models.JobStatus, fields map[string]interface{}) error {
	if err := e.repo.Transition(ctx, id, from, to, fields); err != nil {
		return err
	}
	e.bus.Publish(events.Event{Type: events.EventJobTransitioned, JobID: id, Status: to})
	return nil
}

// abandon handles a lost transition. A stale transition means a concurrent
// writer (cancellation or a second driver) won; the outcome is logged and
// discarded, never applied.
func (e *Engine) abandon(id string, err error) {
	if errors.Is(err, repos.ErrStaleTransition) {
		logger.Warnf("job %s: discarding result, concurrent writer won: %v", id, err)
		return
	}
	logger.Errorf("job %s: transition failed: %v", id, err)
}

// backoff waits the exponential delay for the given attempt. Returns false
// when the engine is shutting down.
func (e *Engine) backoff(ctx context.Context, id string, attempt int) bool {
	delay := e.delayFor(attempt)

	wctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.waits[id] = cancel
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.waits, id)
		e.mu.Unlock()
		cancel()
	}()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-wctx.Done():
	}
	return ctx.Err() == nil
}

// delayFor computes the backoff before the given attempt: initial backoff
// doubled per retry, capped.
func (e *Engine) delayFor(attempt int) time.Duration {
	delay := e.policy.InitialBackoff
	for i := 2; i < attempt; i++ {
		delay *= 2
		if delay >= e.policy.MaxBackoff {
			return e.policy.MaxBackoff
		}
	}
	if delay > e.policy.MaxBackoff {
		delay = e.policy.MaxBackoff
	}
	return delay
}

// interrupt wakes a job sleeping between attempts so cancellation takes
// effect without waiting out the backoff.
func (e *Engine) interrupt(id string) {
	e.mu.Lock()
	cancel, ok := e.waits[id]
	e.mu.Unlock()
	if ok {
		cancel()
	}
}
