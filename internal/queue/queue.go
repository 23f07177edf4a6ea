package queue

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"garment-portal-backend/internal/config"
)

var ErrQueueClosed = errors.New("request queue is shut down")

type Job struct {
	Fn   func() error
	Errc chan error
}

type RequestQueueManager struct {
	JobQueue   chan Job
	MaxWorkers int
	logger     *zap.Logger

	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	shutdown sync.Once
}

func NewRequestQueueManager(queueSize int, maxWorkers int, logger *zap.Logger) *RequestQueueManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	manager := &RequestQueueManager{
		JobQueue:   make(chan Job, queueSize),
		MaxWorkers: maxWorkers,
		logger:     logger,
	}
	manager.startWorkers()
	return manager
}

func NewFromConfig(cfg config.QueueConfig, logger *zap.Logger) *RequestQueueManager {
	return NewRequestQueueManager(cfg.Size, cfg.Workers, logger)
}

func (rqm *RequestQueueManager) startWorkers() {
	for i := 0; i < rqm.MaxWorkers; i++ {
		rqm.wg.Add(1)
		go func(workerID int) {
			defer rqm.wg.Done()
			rqm.logger.Debug("worker started", zap.Int("worker", workerID))
			for job := range rqm.JobQueue {
				err := job.Fn()
				if job.Errc != nil {
					job.Errc <- err
				}
			}
			rqm.logger.Debug("worker stopped", zap.Int("worker", workerID))
		}(i)
	}
}

// EnqueueJob blocks while the queue is full. After Shutdown the job is not
// run and ErrQueueClosed is delivered on its Errc.
func (rqm *RequestQueueManager) EnqueueJob(job Job) {
	rqm.mu.RLock()
	defer rqm.mu.RUnlock()

	if rqm.closed {
		if job.Errc != nil {
			job.Errc <- ErrQueueClosed
		}
		return
	}
	rqm.JobQueue <- job
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
func (rqm *RequestQueueManager) Shutdown() {
	rqm.shutdown.Do(func() {
		rqm.mu.Lock()
		rqm.closed = true
		close(rqm.JobQueue)
		rqm.mu.Unlock()

		rqm.wg.Wait()
	})
}
