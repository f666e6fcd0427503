package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const taskTimeout = 10 * time.Minute

// TaskFunc is a scheduled unit of work
type TaskFunc func(ctx context.Context) error

// Scheduler runs named tasks on cron schedules ("@every 1h", "@daily", "0 3 * * *")
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	mu      sync.RWMutex
	tasks   map[string]cron.EntryID
	funcs   map[string]TaskFunc
	running bool
}

func New(log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		log:   log.Named("scheduler"),
		tasks: make(map[string]cron.EntryID),
		funcs: make(map[string]TaskFunc),
	}
}

// Add registers (or replaces) a task
func (s *Scheduler) Add(name, schedule string, task TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.tasks[name]; ok {
		s.cron.Remove(id)
		delete(s.tasks, name)
	}

	id, err := s.cron.AddFunc(schedule, func() { s.run(name, task) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, schedule, err)
	}
	s.tasks[name] = id
	s.funcs[name] = task
	s.log.Info("added task", zap.String("name", name), zap.String("schedule", schedule))
	return nil
}

// Tasks returns the registered task names
func (s *Scheduler) Tasks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		out = append(out, name)
	}
	return out
}

// RunNow executes a registered task synchronously
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	task, ok := s.funcs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	return s.run(name, task)
}

func (s *Scheduler) run(name string, task TaskFunc) (err error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("task panicked", zap.String("name", name), zap.Any("panic", r))
			err = fmt.Errorf("task %s panicked: %v", name, r)
		}
	}()

	if err := task(ctx); err != nil {
		s.log.Error("task failed", zap.String("name", name), zap.Duration("duration", time.Since(start)), zap.Error(err))
		return err
	}
	s.log.Debug("task completed", zap.String("name", name), zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.log.Info("scheduler started", zap.Int("tasks", len(s.tasks)))
}

// Stop waits for running tasks until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	select {
	case <-s.cron.Stop().Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
	s.running = false
}
