package dispatcher

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cexll/checklist-gate/internal/evaluator"
	"github.com/cexll/checklist-gate/internal/webhook"
)

// JobExecutor runs a webhook job
type JobExecutor interface {
	Execute(ctx context.Context, job *webhook.Job) error
}

// Preparer is implemented by executors with a waiting phase. Prepare runs
// before the per-PR lock is taken so a long wait does not hold back other
// jobs for the same pull request.
type Preparer interface {
	Prepare(ctx context.Context, job *webhook.Job) error
}

// Config controls dispatcher behaviour. Watch jobs can wait for minutes, so
// they run on their own pool and queue and never occupy the workers that
// evaluate pull requests.
type Config struct {
	Workers           int
	QueueSize         int
	WatchWorkers      int
	WatchQueueSize    int
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// Dispatcher serialises execution per PR and retries failed jobs with backoff
type Dispatcher struct {
	executor JobExecutor
	cfg      Config

	queue      chan *queueItem
	watchQueue chan *queueItem

	keyedLocks *keyedMutex

	// ctx is cancelled when Shutdown gives up waiting
	ctx    context.Context
	cancel context.CancelFunc

	stopCh chan struct{}
	wg     sync.WaitGroup

	once sync.Once
}

type queueItem struct {
	job     *webhook.Job
	attempt int
}

// New creates a dispatcher with the provided configuration
func New(executor JobExecutor, cfg Config) *Dispatcher {
	normalized := normalizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		executor:   executor,
		cfg:        normalized,
		queue:      make(chan *queueItem, normalized.QueueSize),
		watchQueue: make(chan *queueItem, normalized.WatchQueueSize),
		keyedLocks: newKeyedMutex(),
		ctx:        ctx,
		cancel:     cancel,
		stopCh:     make(chan struct{}),
	}
	d.startWorkers()
	return d
}

func normalizeConfig(cfg Config) Config {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 4
	}
	if cfg.WatchWorkers <= 0 {
		cfg.WatchWorkers = 2
	}
	if cfg.WatchQueueSize <= 0 {
		cfg.WatchQueueSize = cfg.WatchWorkers * 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 5 * time.Second
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = 2
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Minute
	}
	return cfg
}

func (d *Dispatcher) startWorkers() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(d.queue)
	}
	for i := 0; i < d.cfg.WatchWorkers; i++ {
		d.wg.Add(1)
		go d.worker(d.watchQueue)
	}
}

// queueFor routes watch jobs to the watch pool.
func (d *Dispatcher) queueFor(job *webhook.Job) chan *queueItem {
	if job.Kind == webhook.JobWatch && d.watchQueue != nil {
		return d.watchQueue
	}
	return d.queue
}

// Enqueue queues a new job for execution
func (d *Dispatcher) Enqueue(job *webhook.Job) error {
	if job == nil {
		return errors.New("dispatcher enqueue: job is nil")
	}

	select {
	case <-d.stopCh:
		return webhook.ErrQueueClosed
	default:
	}

	select {
	case d.queueFor(job) <- &queueItem{job: job, attempt: 1}:
		return nil
	default:
		return webhook.ErrQueueFull
	}
}

func (d *Dispatcher) worker(queue <-chan *queueItem) {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopCh:
			return
		case item, ok := <-queue:
			if !ok {
				return
			}
			d.process(item)
		}
	}
}

func (d *Dispatcher) process(item *queueItem) {
	job := item.job
	job.Attempt = item.attempt
	key := job.Key()

	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	err := d.prepare(ctx, job)
	if err == nil {
		d.keyedLocks.Lock(key)
		err = d.executor.Execute(ctx, job)
		d.keyedLocks.Unlock(key)
	}

	if err != nil {
		log.Printf("[Dispatcher] Job %s attempt %d failed: %v", job, item.attempt, err)
		if evaluator.IsNonRetryable(err) {
			log.Printf("[Dispatcher] Job %s attempt %d marked non-retryable; no further attempts", job, item.attempt)
			return
		}
		d.handleRetry(item, err)
		return
	}

	log.Printf("[Dispatcher] Job %s attempt %d succeeded", job, item.attempt)
}

func (d *Dispatcher) prepare(ctx context.Context, job *webhook.Job) error {
	p, ok := d.executor.(Preparer)
	if !ok {
		return nil
	}
	return p.Prepare(ctx, job)
}

func (d *Dispatcher) handleRetry(item *queueItem, execErr error) {
	if item.attempt >= d.cfg.MaxAttempts {
		log.Printf("[Dispatcher] Job %s exceeded max attempts (%d): %v", item.job, d.cfg.MaxAttempts, execErr)
		return
	}

	nextAttempt := item.attempt + 1
	delay := d.backoffDuration(nextAttempt)
	log.Printf("[Dispatcher] Scheduling retry %d for %s in %s", nextAttempt, item.job, delay)

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			d.enqueueRetry(&queueItem{
				job:     item.job,
				attempt: nextAttempt,
			})
		case <-d.stopCh:
			return
		}
	}()
}

func (d *Dispatcher) enqueueRetry(item *queueItem) {
	for {
		select {
		case <-d.stopCh:
			return
		case d.queueFor(item.job) <- item:
			return
		default:
			time.Sleep(100 * time.Millisecond)
		}
	}
}

func (d *Dispatcher) backoffDuration(attempt int) time.Duration {
	backoff := float64(d.cfg.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= d.cfg.BackoffMultiplier
		if backoff >= float64(d.cfg.MaxBackoff) {
			return d.cfg.MaxBackoff
		}
	}
	return time.Duration(backoff)
}

// Shutdown stops accepting jobs and waits for running ones. When ctx ends
// first, running jobs are cancelled.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.once.Do(func() {
		close(d.stopCh)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		if d.cancel != nil {
			d.cancel()
		}
	case <-done:
		if d.cancel != nil {
			d.cancel()
		}
	}
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{
		locks: make(map[string]*sync.Mutex),
	}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	k.mu.Unlock()

	if !ok {
		return
	}

	m.Unlock()
}
