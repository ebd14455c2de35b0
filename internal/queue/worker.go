package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
)

// WorkerPool manages a pool of workers that process queue messages.
// Acknowledgement follows the handler result: nil acks, a retryable error
// leaves the message for redelivery after its visibility timeout, any other
// error acks with a warning because retrying cannot help.
type WorkerPool struct {
	queue        interfaces.QueueManager
	handlers     map[string]interfaces.JobHandler
	concurrency  int
	pollInterval time.Duration
	logger       arbor.ILogger
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(queue interfaces.QueueManager, concurrency int, pollInterval time.Duration, logger arbor.ILogger) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		queue:        queue,
		handlers:     make(map[string]interfaces.JobHandler),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// RegisterHandler registers a job type handler. Must be called before Start.
func (wp *WorkerPool) RegisterHandler(jobType string, handler interfaces.JobHandler) {
	wp.handlers[jobType] = handler
	wp.logger.Debug().
		Str("job_type", jobType).
		Msg("Job handler registered")
}

// Start starts the worker goroutines
func (wp *WorkerPool) Start() error {
	wp.logger.Info().
		Int("concurrency", wp.concurrency).
		Msg("Starting worker pool")

	for i := 0; i < wp.concurrency; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	return nil
}

// Stop cancels the workers and waits for in-flight jobs to finish
func (wp *WorkerPool) Stop() error {
	wp.logger.Info().Msg("Stopping worker pool")
	wp.cancel()
	wp.wg.Wait()
	return nil
}

func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	// Stagger worker starts to spread polling across the interval
	staggerDelay := (wp.pollInterval / time.Duration(wp.concurrency)) * time.Duration(workerID)
	if staggerDelay > 0 {
		select {
		case <-wp.ctx.Done():
			return
		case <-time.After(staggerDelay):
		}
	}

	wp.logger.Debug().
		Int("worker_id", workerID).
		Dur("stagger_delay", staggerDelay).
		Msg("Worker started")

	ticker := time.NewTicker(wp.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopped")
			return

		case <-ticker.C:
			if err := wp.processMessage(workerID); err != nil && err != models.ErrNoMessage {
				wp.logger.Warn().
					Err(err).
					Int("worker_id", workerID).
					Msg("Error processing message")
			}
		}
	}
}

// processMessage receives and processes a single message
func (wp *WorkerPool) processMessage(workerID int) error {
	msg, ack, err := wp.queue.Receive(wp.ctx)
	if err != nil {
		if err == models.ErrNoMessage {
			return models.ErrNoMessage
		}
		return fmt.Errorf("failed to receive message: %w", err)
	}

	wp.logger.Debug().
		Str("job_id", msg.JobID).
		Str("type", msg.Type).
		Int("worker_id", workerID).
		Msg("Processing message")

	handler, exists := wp.handlers[msg.Type]
	if !exists {
		wp.logger.Error().
			Str("type", msg.Type).
			Str("job_id", msg.JobID).
			Msg("No handler registered for job type")
		if ackErr := ack(); ackErr != nil {
			wp.logger.Warn().Err(ackErr).Msg("Failed to delete unroutable message")
		}
		return fmt.Errorf("no handler for job type: %s", msg.Type)
	}

	startTime := time.Now()
	handlerErr := wp.runHandler(handler, msg)
	duration := time.Since(startTime)

	if handlerErr != nil {
		if models.IsRetryable(handlerErr) {
			// Leave the message unacked; it reappears after the visibility
			// timeout and is dropped once the receive budget runs out.
			wp.logger.Warn().
				Err(handlerErr).
				Str("job_id", msg.JobID).
				Str("type", msg.Type).
				Dur("duration", duration).
				Int("worker_id", workerID).
				Msg("Job failed, leaving for redelivery")
			return handlerErr
		}

		wp.logger.Error().
			Err(handlerErr).
			Str("job_id", msg.JobID).
			Str("type", msg.Type).
			Dur("duration", duration).
			Int("worker_id", workerID).
			Msg("Job failed terminally")
		if ackErr := ack(); ackErr != nil {
			wp.logger.Warn().Err(ackErr).Str("job_id", msg.JobID).Msg("Failed to delete message after failure")
		}
		return handlerErr
	}

	wp.logger.Info().
		Str("job_id", msg.JobID).
		Str("type", msg.Type).
		Dur("duration", duration).
		Int("worker_id", workerID).
		Msg("Job completed successfully")

	if err := ack(); err != nil {
		wp.logger.Warn().
			Err(err).
			Str("job_id", msg.JobID).
			Msg("Failed to delete message after successful processing")
		return err
	}
	return nil
}

// runHandler isolates handler panics so one bad job cannot take the pool down
func (wp *WorkerPool) runHandler(handler interfaces.JobHandler, msg *models.QueueMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(wp.ctx, msg)
}
