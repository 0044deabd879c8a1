package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultWorkers   = 2
	DefaultQueueSize = 64
)

// Config configures a Manager. Zero values take the defaults.
type Config struct {
	Workers   int
	QueueSize int
	Logger    *logger.Logger
	// Now stamps task statuses. Defaults to time.Now.
	Now func() time.Time
	// NewID generates task ids. Defaults to random UUIDs.
	NewID func() string
}

// Manager runs queued backtests on a fixed pool of workers and records
// their status in a Store.
type Manager struct {
	runner Runner
	store  Store
	cfg    Config
	logger *logger.Logger

	queue chan string
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
}

// NewManager creates a manager. Workers start with Start.
func NewManager(runner Runner, store Store, cfg Config) (*Manager, error) {
	if runner == nil || store == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "task manager requires a runner and a store")
	}

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	return &Manager{
		runner: runner,
		store:  store,
		cfg:    cfg,
		logger: cfg.Logger.Named("task"),
		queue:  make(chan string, cfg.QueueSize),
	}, nil
}

// Start launches the workers. Runs are cancelled when ctx is done.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.closed {
		return
	}

	m.started = true

	workerCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)

		go m.work(workerCtx, i)
	}

	m.logger.Info("Task workers started", zap.Int("workers", m.cfg.Workers), zap.Int("queue_size", m.cfg.QueueSize))
}

// Submit validates req, records a pending task and queues it. Invalid
// requests fail here and are never queued.
func (m *Manager) Submit(ctx context.Context, req types.RunRequest) (types.TaskStatus, error) {
	if err := req.Validate(); err != nil {
		return types.TaskStatus{}, err
	}

	if v, ok := m.runner.(RequestValidator); ok {
		if err := v.ValidateRequest(req); err != nil {
			return types.TaskStatus{}, err
		}
	}

	now := m.cfg.Now().UTC()
	status := types.TaskStatus{
		ID:        m.cfg.NewID(),
		State:     types.TaskStatePending,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return types.TaskStatus{}, errors.New(errors.ErrCodeTaskQueueFull, "task manager is shut down")
	}

	if err := m.store.Create(ctx, status); err != nil {
		return types.TaskStatus{}, err
	}

	select {
	case m.queue <- status.ID:
	default:
		queueErr := errors.Newf(errors.ErrCodeTaskQueueFull, "task queue is full (%d pending)", m.cfg.QueueSize)
		m.finish(ctx, status, nil, queueErr)

		return types.TaskStatus{}, queueErr
	}

	m.logger.Info("Task queued",
		zap.String("task_id", status.ID),
		zap.String("strategy", req.Strategy),
		zap.String("symbol", req.Symbol),
	)

	return status, nil
}

// Get returns the status of a task.
func (m *Manager) Get(ctx context.Context, id string) (types.TaskStatus, error) {
	return m.store.Get(ctx, id)
}

// List returns every known task, oldest first.
func (m *Manager) List(ctx context.Context) ([]types.TaskStatus, error) {
	return m.store.List(ctx)
}

// Shutdown stops accepting tasks and waits for the queued ones to finish.
// When ctx expires first the running backtests are cancelled.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()

		return nil
	}

	m.closed = true
	close(m.queue)
	cancel := m.cancel
	m.mu.Unlock()

	done := make(chan struct{})

	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}

		<-done
	}

	if cancel != nil {
		cancel()
	}

	return nil
}

func (m *Manager) work(ctx context.Context, worker int) {
	defer m.wg.Done()

	for id := range m.queue {
		m.execute(ctx, worker, id)
	}
}

func (m *Manager) execute(ctx context.Context, worker int, id string) {
	status, err := m.store.Get(ctx, id)
	if err != nil {
		m.logger.Error("Failed to load queued task", zap.String("task_id", id), zap.Error(err))

		return
	}

	status.State = types.TaskStateRunning
	status.UpdatedAt = m.cfg.Now().UTC()

	if err := m.store.Update(ctx, status); err != nil {
		m.logger.Error("Failed to mark task running", zap.String("task_id", id), zap.Error(err))
	}

	m.logger.Info("Task started", zap.String("task_id", id), zap.Int("worker", worker))

	res, err := m.run(ctx, status.Request)
	m.finish(ctx, status, &res, err)
}

func (m *Manager) run(ctx context.Context, req types.RunRequest) (res types.RunResult, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.Newf(errors.ErrCodePanic, "backtest panic: %v", recovered)
		}
	}()

	return m.runner.RunBacktest(ctx, req)
}

// finish records the terminal state. Failures carry only the error
// message.
func (m *Manager) finish(ctx context.Context, status types.TaskStatus, res *types.RunResult, err error) {
	status.UpdatedAt = m.cfg.Now().UTC()

	if err != nil {
		status.State = types.TaskStateFailure
		status.Error = err.Error()
		status.Result = nil
	} else {
		status.State = types.TaskStateSuccess
		status.Result = res
	}

	// the run context may already be cancelled
	storeCtx := context.WithoutCancel(ctx)
	if updateErr := m.store.Update(storeCtx, status); updateErr != nil {
		m.logger.Error("Failed to record task result", zap.String("task_id", status.ID), zap.Error(updateErr))

		return
	}

	if err != nil {
		m.logger.Warn("Task failed", zap.String("task_id", status.ID), zap.Error(err))

		return
	}

	m.logger.Info("Task succeeded",
		zap.String("task_id", status.ID),
		zap.Float64("final_value", res.FinalValue),
		zap.Float64("pnl", res.PnL),
	)
}
