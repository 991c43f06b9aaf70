// Package queue is the in-process work broker: four independently configured
// queues with per-queue worker pools, retry/backoff, and bounded retention of
// finished job records. Single-process by design; durability of pipeline
// effects comes from the database constraints the workers write through, not
// from the broker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"pickwire/ingestion/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Canonical queue names.
const (
	QueueFetch   = "fetch"
	QueueParse   = "parse"
	QueueResults = "results"
	QueueAlert   = "alert"
)

// BackoffType selects the retry delay curve.
type BackoffType string

const (
	BackoffExponential BackoffType = "exponential"
	BackoffFixed       BackoffType = "fixed"
)

// Policy configures one queue.
type Policy struct {
	Workers     int
	MaxAttempts int
	Backoff     BackoffType
	BackoffBase time.Duration
	Retention   int // finished job records kept for inspection
}

// Job is one unit of work. Payload is JSON so scheduled and manual triggers
// enqueue the same shape.
type Job struct {
	ID         string
	Queue      string
	Payload    json.RawMessage
	Attempt    int
	EnqueuedAt time.Time
}

// Handler executes one job attempt.
type Handler func(ctx context.Context, job *Job) error

// JobRecord is a finished job kept under the retention policy.
type JobRecord struct {
	ID         string
	Attempts   int
	Err        string
	FinishedAt time.Time
}

type workQueue struct {
	name    string
	policy  Policy
	handler Handler
	jobs    chan *Job

	mu        sync.Mutex
	completed []JobRecord
	failed    []JobRecord
}

// Broker owns the queues and their worker pools.
type Broker struct {
	mu      sync.Mutex
	queues  map[string]*workQueue
	wg      sync.WaitGroup
	timers  sync.WaitGroup
	started bool
}

// NewBroker creates an empty broker; queues are added with Register before Start.
func NewBroker() *Broker {
	return &Broker{queues: make(map[string]*workQueue)}
}

// Register declares a queue with its policy and handler. Must be called
// before Start.
func (b *Broker) Register(name string, policy Policy, handler Handler) error {
	if policy.Workers < 1 {
		policy.Workers = 1
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Retention < 1 {
		policy.Retention = 100
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return fmt.Errorf("cannot register queue %q after broker start", name)
	}
	if _, exists := b.queues[name]; exists {
		return fmt.Errorf("queue %q already registered", name)
	}

	b.queues[name] = &workQueue{
		name:    name,
		policy:  policy,
		handler: handler,
		jobs:    make(chan *Job, 1024),
	}

	log.Info().
		Str("queue", name).
		Int("workers", policy.Workers).
		Int("max_attempts", policy.MaxAttempts).
		Str("backoff", string(policy.Backoff)).
		Dur("backoff_base", policy.BackoffBase).
		Msg("Queue registered")

	return nil
}

// Enqueue marshals payload and submits a new job. Works from scheduler
// callbacks and direct manual triggers alike.
func (b *Broker) Enqueue(name string, payload interface{}) (string, error) {
	q, err := b.queue(name)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}

	job := &Job{
		ID:         uuid.NewString(),
		Queue:      name,
		Payload:    data,
		Attempt:    0,
		EnqueuedAt: time.Now(),
	}

	select {
	case q.jobs <- job:
		metrics.JobsEnqueuedTotal.WithLabelValues(name).Inc()
		return job.ID, nil
	default:
		return "", fmt.Errorf("queue %q is full", name)
	}
}

// Start launches the worker pools. Workers run until ctx is cancelled.
func (b *Broker) Start(ctx context.Context) {
	b.mu.Lock()
	b.started = true
	queues := make([]*workQueue, 0, len(b.queues))
	for _, q := range b.queues {
		queues = append(queues, q)
	}
	b.mu.Unlock()

	for _, q := range queues {
		for i := 0; i < q.policy.Workers; i++ {
			b.wg.Add(1)
			go b.worker(ctx, q)
		}
	}

	log.Info().Int("queues", len(queues)).Msg("Queue broker started")
}

// Stop waits for in-flight jobs and pending retry timers to drain. Call
// after cancelling the context passed to Start.
func (b *Broker) Stop() {
	b.timers.Wait()
	b.wg.Wait()
	log.Info().Msg("Queue broker stopped")
}

// Stats returns finished-job records for a queue.
func (b *Broker) Stats(name string) (completed, failed []JobRecord) {
	q, err := b.queue(name)
	if err != nil {
		return nil, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]JobRecord(nil), q.completed...), append([]JobRecord(nil), q.failed...)
}

func (b *Broker) queue(name string) (*workQueue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[name]
	if !ok {
		return nil, fmt.Errorf("unknown queue %q", name)
	}
	return q, nil
}

func (b *Broker) worker(ctx context.Context, q *workQueue) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			b.run(ctx, q, job)
		}
	}
}

func (b *Broker) run(ctx context.Context, q *workQueue, job *Job) {
	job.Attempt++
	start := time.Now()

	err := q.handler(ctx, job)
	duration := time.Since(start).Seconds()

	if err == nil {
		metrics.RecordJob(q.name, "success", duration)
		q.record(&q.completed, JobRecord{ID: job.ID, Attempts: job.Attempt, FinishedAt: time.Now()})
		return
	}

	if ctx.Err() != nil {
		// Shutdown in progress; do not reschedule.
		return
	}

	if job.Attempt >= q.policy.MaxAttempts {
		metrics.RecordJob(q.name, "failed", duration)
		q.record(&q.failed, JobRecord{ID: job.ID, Attempts: job.Attempt, Err: err.Error(), FinishedAt: time.Now()})
		log.Error().
			Err(err).
			Str("queue", q.name).
			Str("job_id", job.ID).
			Int("attempts", job.Attempt).
			Msg("Job failed permanently")
		return
	}

	delay := q.backoff(job.Attempt)
	metrics.RecordJob(q.name, "retry", duration)
	log.Warn().
		Err(err).
		Str("queue", q.name).
		Str("job_id", job.ID).
		Int("attempt", job.Attempt).
		Dur("retry_in", delay).
		Msg("Job attempt failed, scheduling retry")

	b.timers.Add(1)
	timer := time.AfterFunc(delay, func() {
		defer b.timers.Done()
		select {
		case q.jobs <- job:
		case <-ctx.Done():
		}
	})
	// Cancel the pending retry when the broker shuts down first.
	go func() {
		<-ctx.Done()
		if timer.Stop() {
			b.timers.Done()
		}
	}()
}

func (q *workQueue) backoff(attempt int) time.Duration {
	base := q.policy.BackoffBase
	if base <= 0 {
		base = time.Second
	}
	if q.policy.Backoff == BackoffFixed {
		return base
	}
	// Exponential: base, 2*base, 4*base, ...
	return base * time.Duration(1<<uint(attempt-1))
}

func (q *workQueue) record(bucket *[]JobRecord, rec JobRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()

	*bucket = append(*bucket, rec)
	if over := len(*bucket) - q.policy.Retention; over > 0 {
		*bucket = (*bucket)[over:]
	}
}
