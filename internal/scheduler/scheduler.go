// Package scheduler runs recurring jobs on fixed intervals.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	applogger "SignalDesk/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Job is one recurring unit of work. It receives the scheduler's run context.
type Job func(ctx context.Context)

type entry struct {
	name     string
	interval time.Duration
	job      Job
}

// Scheduler fires every registered job once on Start and then on its
// interval. Runs of the same job may overlap; a panicking run is logged and
// the schedule continues.
type Scheduler struct {
	cron   *cron.Cron
	logger *applogger.Logger

	mu      sync.Mutex
	entries []entry
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

func New(logger *applogger.Logger) *Scheduler {
	l := logger.Component("scheduler")
	adapter := cronLogger{l}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(adapter), cron.WithChain(cron.Recover(adapter))),
		logger: l,
	}
}

// Every registers job to run every interval. Intervals below one second are
// rounded up by cron.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: job %s: interval must be positive", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return fmt.Errorf("scheduler: job %s registered after start", name)
	}
	s.entries = append(s.entries, entry{name: name, interval: interval, job: job})
	return nil
}

// Start schedules all jobs and runs each once immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, e := range s.entries {
		e := e
		s.cron.Schedule(cron.Every(e.interval), cron.FuncJob(func() { s.run(e) }))
		s.running.Add(1)
		go func() {
			defer s.running.Done()
			s.runSafe(e)
		}()
		s.logger.Info("job scheduled", applogger.String("job", e.name), applogger.Duration("interval_ms", e.interval))
	}
	s.cron.Start()
}

// Stop cancels the run context and waits for in-flight runs, bounded by ctx.
// Cron-driven runs are awaited through cron's own stop context.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(e entry) {
	start := time.Now()
	e.job(s.ctx)
	s.logger.Debug("job finished", applogger.String("job", e.name), applogger.Duration("duration_ms", time.Since(start)))
}

// runSafe is used for the start-up run, which does not go through the cron
// chain.
func (s *Scheduler) runSafe(e entry) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panic", applogger.String("job", e.name), applogger.Any("panic", fmt.Sprint(r)))
		}
	}()
	s.run(e)
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(kvFields(keysAndValues), applogger.Error(err))...)
}

func kvFields(kv []interface{}) []applogger.Field {
	fields := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, applogger.Any(key, kv[i+1]))
	}
	return fields
}
