package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrRunInProgress = errors.New("a run is already in progress")

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler fires a fresh task on each cron tick. At most one task runs at a
// time; ticks that land during a run are skipped.
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	runTimeout time.Duration
	newTask    func() TaskInterface
	running    sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewScheduler(schedule string, runTimeout time.Duration, newTask func() TaskInterface) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:       cron.New(),
		schedule:   schedule,
		runTimeout: runTimeout,
		newTask:    newTask,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.Trigger(); err != nil {
			slog.Warn("Scheduled run skipped", "schedule", s.schedule, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	slog.Info("Scheduler started", "schedule", s.schedule)
	return nil
}

// Stop cancels a run in progress and waits for it to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

// Trigger starts a run in the background, or returns ErrRunInProgress.
func (s *Scheduler) Trigger() error {
	if s.ctx.Err() != nil {
		return fmt.Errorf("scheduler is stopped: %w", s.ctx.Err())
	}
	if !s.running.TryLock() {
		return ErrRunInProgress
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()
		s.executeTask(s.newTask())
	}()

	return nil
}

func (s *Scheduler) IsRunning() bool {
	if s.running.TryLock() {
		s.running.Unlock()
		return false
	}
	return true
}

func (s *Scheduler) executeTask(task TaskInterface) {
	task.Start()

	ctx := s.ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	if err := task.Execute(ctx); err != nil {
		slog.Error("Scheduled task failed", "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration(), "error", err)
	}
}
