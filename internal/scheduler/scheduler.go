// Package scheduler implements Envoy's cron-bound task scheduler (spec
// §4.H): a process-singleton registry mapping task name to a live cron job,
// firing into the agent loop (F) under a synthetic session and recording a
// structured trace of what happened.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/4ug-aug/envoy-v2/internal/observability"
	"github.com/4ug-aug/envoy-v2/internal/store"
	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// Runtime is the subset of *agent.Runtime the scheduler drives a task
// through. Defined as an interface so tests can fire tasks without a real
// provider.
type Runtime interface {
	ProcessTurn(ctx context.Context, sessionID, userMessage string, history []models.ConversationEntry) (string, []models.ConversationEntry, error)
}

// Scheduler holds one live cron.Cron entry per enabled ScheduledTask.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID // task name -> entry
	firing  map[string]bool         // task name -> a fire is currently in flight

	store   store.Store
	runtime Runtime
	logger  *observability.Logger
}

// New builds a Scheduler. It does not start the underlying cron dispatcher
// or load any tasks; call Start for that.
func New(s store.Store, runtime Runtime, logger *observability.Logger) *Scheduler {
	if logger == nil {
		logger = observability.MustNewLogger(observability.LogConfig{})
	}
	return &Scheduler{
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
		firing:  make(map[string]bool),
		store:   s,
		runtime: runtime,
		logger:  logger,
	}
}

// ValidateCron reports whether expr parses as a standard five-field cron
// expression, for meta-tools to reject a bad schedule before persisting it.
func ValidateCron(expr string) error {
	_, err := cron.ParseStandard(expr)
	return err
}

// Start loads every enabled task from the store, schedules it, and starts
// the underlying dispatcher goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	for _, task := range tasks {
		if !task.Enabled {
			continue
		}
		if err := s.ScheduleTask(task); err != nil {
			s.logger.Error(ctx, "scheduler: failed to schedule task on startup", "task", task.Name, "err", err)
		}
	}
	s.cron.Start()
	return nil
}

// Stop halts the dispatcher and waits for any in-flight job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// ScheduleTask installs or replaces the live cron job for task. Any job
// already registered under the same name is stopped first, so rescheduling
// a task after editing its cron expression is just calling this again.
func (s *Scheduler) ScheduleTask(task *models.ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[task.Name]; ok {
		s.cron.Remove(existing)
		delete(s.entries, task.Name)
	}

	if !task.Enabled {
		return nil
	}

	name := task.Name
	id, err := s.cron.AddFunc(task.Cron, func() { s.fire(name) })
	if err != nil {
		return fmt.Errorf("schedule task %q: %w", task.Name, err)
	}
	s.entries[task.Name] = id
	return nil
}

// UnscheduleTask stops and removes the live cron job for taskName, if any.
func (s *Scheduler) UnscheduleTask(taskName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[taskName]; ok {
		s.cron.Remove(id)
		delete(s.entries, taskName)
	}
}

// JobInfo is a scheduled task's live dispatcher state, for meta-tools that
// list or inspect tasks without reaching into the store directly.
type JobInfo struct {
	Name string    `json:"name"`
	Next time.Time `json:"next"`
}

// Jobs returns the live dispatcher state of every currently scheduled task.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.entries))
	for name, id := range s.entries {
		out = append(out, JobInfo{Name: name, Next: s.cron.Entry(id).Next})
	}
	return out
}

// RunJob fires taskName immediately, outside its normal cron schedule. It
// still goes through the usual at-most-one-running-run guard.
func (s *Scheduler) RunJob(ctx context.Context, taskName string) error {
	s.mu.Lock()
	_, scheduled := s.entries[taskName]
	s.mu.Unlock()
	if !scheduled {
		return fmt.Errorf("no scheduled job named %q", taskName)
	}
	s.fire(taskName)
	return nil
}

// tryBeginFire marks taskName as currently firing and reports whether it
// won that race. A concurrent cron tick and an out-of-band RunJob trigger
// for the same task each run on their own goroutine; only the one that
// flips firing[taskName] from false to true proceeds, so the loser skips
// immediately rather than queuing to run again once the winner finishes.
func (s *Scheduler) tryBeginFire(taskName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firing[taskName] {
		return false
	}
	s.firing[taskName] = true
	return true
}

// endFire clears taskName's in-flight marker, allowing a later fire (cron
// tick or RunJob) to proceed.
func (s *Scheduler) endFire(taskName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.firing, taskName)
}

// fire runs when taskName's cron entry ticks. It re-reads the task (it may
// have been edited or deleted since scheduling), enforces the at-most-one-
// running-run-per-task guard, and re-enters the agent loop under a
// synthetic session. A concurrent fire for the same task name exits
// immediately instead of waiting its turn, so it never creates a second
// TaskRun once the in-flight one completes.
func (s *Scheduler) fire(taskName string) {
	if !s.tryBeginFire(taskName) {
		s.logger.Info(context.Background(), "scheduler: skipping fire, another fire for this task is already in flight", "task", taskName)
		return
	}
	defer s.endFire(taskName)

	ctx := context.Background()

	task, err := s.store.GetTask(ctx, taskName)
	if err != nil {
		s.logger.Error(ctx, "scheduler: task vanished before fire", "task", taskName, "err", err)
		return
	}
	if !task.Enabled {
		return
	}

	if running, err := s.store.GetRunningTaskRun(ctx, task.ID); err != nil {
		s.logger.Error(ctx, "scheduler: failed to check running run", "task", task.Name, "err", err)
		return
	} else if running != nil {
		s.logger.Info(ctx, "scheduler: skipping fire, run already in progress", "task", task.Name, "run_id", running.ID)
		return
	}

	run := &models.TaskRun{
		TaskID:    task.ID,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.store.CreateTaskRun(ctx, run); err != nil {
		s.logger.Error(ctx, "scheduler: failed to create task run", "task", task.Name, "err", err)
		return
	}

	sessionID := "task-run-" + run.ID
	userMessage := fmt.Sprintf("[Scheduled Task: %s]\n\n%s", task.Name, task.Description)

	_, history, err := s.runtime.ProcessTurn(ctx, sessionID, userMessage, nil)

	finished := time.Now()
	run.FinishedAt = &finished

	trace := extractTrace(history)
	encodedTrace, encodeErr := encodeTrace(trace)
	if encodeErr != nil {
		s.logger.Error(ctx, "scheduler: failed to encode trace", "task", task.Name, "run_id", run.ID, "err", encodeErr)
	}
	run.Output = encodedTrace

	if err != nil {
		run.Status = models.RunStatusError
		run.Result = err.Error()
	} else {
		run.Status = models.RunStatusSuccess
		run.Result = lastAssistantText(trace)
	}

	if err := s.store.UpdateTaskRun(ctx, run); err != nil {
		s.logger.Error(ctx, "scheduler: failed to update task run", "task", task.Name, "run_id", run.ID, "err", err)
	}
}

// lastAssistantText returns the content of the final assistant trace entry,
// used as the TaskRun's short-form Result.
func lastAssistantText(trace []models.TraceEntry) string {
	for i := len(trace) - 1; i >= 0; i-- {
		if trace[i].Role == models.RoleAssistant && trace[i].Content != "" {
			return trace[i].Content
		}
	}
	return ""
}
