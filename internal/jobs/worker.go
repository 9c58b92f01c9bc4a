// Package jobs runs periodic background maintenance tasks.
package jobs

import (
	"context"
	"log"
	"time"
)

// Task is one unit of periodic work.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Worker drives a Task on a fixed interval until stopped.
type Worker struct {
	task         Task
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(task Task, pollInterval time.Duration) *Worker {
	return &Worker{
		task:         task,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the polling loop. It blocks until the context is cancelled
// or Stop is called; run it in its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("worker %s started (interval %v)", w.task.Name(), w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker %s stopped: context cancelled", w.task.Name())
			return
		case <-w.stopChan:
			log.Printf("worker %s stopped", w.task.Name())
			return
		case <-ticker.C:
			if err := w.task.Run(ctx); err != nil {
				log.Printf("worker %s: %v", w.task.Name(), err)
			}
		}
	}
}

// Stop signals the worker and waits for the loop to exit.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
