package scheduler

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks.
type TaskFn func()

// Scheduler runs the periodic maintenance tasks: audit retention,
// session sweeps and the like. A panicking task is logged and skipped,
// not allowed to kill the process.
type Scheduler struct {
	mu      sync.Mutex
	tickers map[string]*tickerTask
	delays  map[string]*time.Timer
	logger  *zap.Logger
	done    chan struct{}
}

type tickerTask struct {
	ticker *time.Ticker
	cancel chan struct{}
}

// New creates an empty Scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		tickers: make(map[string]*tickerTask),
		delays:  make(map[string]*time.Timer),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// safely runs fn, recovering and logging a panic.
func (s *Scheduler) safely(name string, fn TaskFn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked",
				zap.String("task", name),
				zap.Any("recover", r))
		}
	}()
	fn()
}

// AddTicker registers fn to run every interval. Registering an existing
// name replaces the previous task.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tickers[name]; ok {
		close(old.cancel)
		delete(s.tickers, name)
	}

	task := &tickerTask{
		ticker: time.NewTicker(interval),
		cancel: make(chan struct{}),
	}
	s.tickers[name] = task

	go func() {
		defer task.ticker.Stop()
		for {
			select {
			case <-task.ticker.C:
				s.safely(name, fn)
			case <-task.cancel:
				return
			case <-s.done:
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered",
		zap.String("name", name),
		zap.Duration("interval", interval))
}

// AddDelay runs fn once after delay. Registering an existing name resets
// the previous timer.
func (s *Scheduler) AddDelay(name string, delay time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.delays[name]; ok {
		old.Stop()
	}
	s.delays[name] = time.AfterFunc(delay, func() {
		defer func() {
			s.mu.Lock()
			delete(s.delays, name)
			s.mu.Unlock()
		}()
		s.safely(name, fn)
	})
}

// Remove cancels the ticker or delay task with the given name, if any.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tickers[name]; ok {
		close(task.cancel)
		delete(s.tickers, name)
	}
	if t, ok := s.delays[name]; ok {
		t.Stop()
		delete(s.delays, name)
	}
}

// Stop cancels every running task. Safe to call more than once.
func (s *Scheduler) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// ListTickers returns the registered ticker task names, sorted.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tickers))
	for name := range s.tickers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
