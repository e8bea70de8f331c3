package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker defines the interface for background workers
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// Manager owns the lifecycle of the registered background workers
type Manager struct {
	workers []Worker
	logger  *zap.Logger

	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
}

// NewManager creates a new worker manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		workers: make([]Worker, 0),
		logger:  logger,
	}
}

// Register adds a worker to be managed
func (m *Manager) Register(worker Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, worker)
	m.logger.Info("Worker registered", zap.String("worker_name", worker.Name()))
}

// StartAll starts all registered workers. A worker that fails to start
// does not block the others.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return fmt.Errorf("workers already running")
	}

	var runCtx context.Context
	runCtx, m.cancel = context.WithCancel(ctx)
	m.isRunning = true
	m.mu.Unlock()

	for _, worker := range m.workers {
		if err := worker.Start(runCtx); err != nil {
			m.logger.Error("Failed to start worker",
				zap.String("worker_name", worker.Name()),
				zap.Error(err))
			continue
		}
		m.logger.Info("Worker started", zap.String("worker_name", worker.Name()))
	}

	return nil
}

// StopAll gracefully stops all workers
func (m *Manager) StopAll() error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = false
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var failed int
	for _, worker := range m.workers {
		if err := worker.Stop(); err != nil {
			m.logger.Error("Failed to stop worker",
				zap.String("worker_name", worker.Name()),
				zap.Error(err))
			failed++
			continue
		}
		m.logger.Info("Worker stopped", zap.String("worker_name", worker.Name()))
	}

	if failed > 0 {
		return fmt.Errorf("failed to stop %d workers", failed)
	}
	return nil
}

// IsRunning returns whether workers are running
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}
