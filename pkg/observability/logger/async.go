package logger

import (
	"context"
	"sync"
	"sync/atomic"
)

// AsyncConfig configures WrapAsync.
type AsyncConfig struct {
	Enabled      bool
	QueueSize    int
	WorkerCount  int
	DropWhenFull bool
}

type entryLevel int

const (
	entryDebug entryLevel = iota
	entryInfo
	entryWarn
	entryError
)

type asyncEntry struct {
	base  Logger
	level entryLevel
	msg   string
	args  []any
}

func (e asyncEntry) write() {
	switch e.level {
	case entryDebug:
		e.base.Debug(e.msg, e.args...)
	case entryInfo:
		e.base.Info(e.msg, e.args...)
	case entryWarn:
		e.base.Warn(e.msg, e.args...)
	case entryError:
		e.base.Error(e.msg, e.args...)
	}
}

type asyncQueue struct {
	mu           sync.RWMutex
	entries      chan asyncEntry
	closed       bool
	dropWhenFull bool
	dropped      atomic.Int64
	wg           sync.WaitGroup
}

// AsyncLogger hands entries to background workers so slow sinks do not block
// document operations. Children created with With share the same queue.
type AsyncLogger struct {
	base  Logger
	queue *asyncQueue
}

// WrapAsync returns base unchanged when cfg is disabled.
func WrapAsync(base Logger, cfg AsyncConfig) Logger {
	if !cfg.Enabled {
		return base
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}

	q := &asyncQueue{
		entries:      make(chan asyncEntry, cfg.QueueSize),
		dropWhenFull: cfg.DropWhenFull,
	}
	for i := 0; i < cfg.WorkerCount; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for e := range q.entries {
				e.write()
			}
		}()
	}
	return &AsyncLogger{base: base, queue: q}
}

func (l *AsyncLogger) Debug(msg string, args ...any) { l.enqueue(entryDebug, msg, args) }

func (l *AsyncLogger) Info(msg string, args ...any) { l.enqueue(entryInfo, msg, args) }

func (l *AsyncLogger) Warn(msg string, args ...any) { l.enqueue(entryWarn, msg, args) }

func (l *AsyncLogger) Error(msg string, args ...any) { l.enqueue(entryError, msg, args) }

func (l *AsyncLogger) With(args ...any) Logger {
	return &AsyncLogger{base: l.base.With(args...), queue: l.queue}
}

func (l *AsyncLogger) WithContext(ctx context.Context) Logger {
	return &AsyncLogger{base: l.base.WithContext(ctx), queue: l.queue}
}

// Dropped reports how many entries were discarded because the queue was full.
func (l *AsyncLogger) Dropped() int64 {
	return l.queue.dropped.Load()
}

// Close drains queued entries and stops the workers. Entries logged after
// Close are written synchronously.
func (l *AsyncLogger) Close() {
	q := l.queue
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.entries)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (l *AsyncLogger) enqueue(level entryLevel, msg string, args []any) {
	e := asyncEntry{base: l.base, level: level, msg: msg, args: args}

	q := l.queue
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		e.write()
		return
	}
	if !q.dropWhenFull {
		q.entries <- e
		return
	}
	select {
	case q.entries <- e:
	default:
		q.dropped.Add(1)
	}
}
