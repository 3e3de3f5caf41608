package logger

import (
	"context"
	"sync"
	"testing"
)

type recordingLogger struct {
	mu     sync.Mutex
	msgs   []string
	fields []any
	block  chan struct{}
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.append(msg) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.append(msg) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.append(msg) }
func (l *recordingLogger) Error(msg string, args ...any) { l.append(msg) }

func (l *recordingLogger) With(args ...any) Logger {
	l.mu.Lock()
	l.fields = append(l.fields, args...)
	l.mu.Unlock()
	return l
}

func (l *recordingLogger) WithContext(context.Context) Logger { return l }

func (l *recordingLogger) append(msg string) {
	if l.block != nil {
		<-l.block
	}
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.msgs)
}

func TestWrapAsync_Disabled(t *testing.T) {
	base := &recordingLogger{}
	if got := WrapAsync(base, AsyncConfig{}); got != base {
		t.Fatal("disabled wrapper must return the base logger")
	}
}

func TestWrapAsync_DrainsOnClose(t *testing.T) {
	base := &recordingLogger{}
	wrapped := WrapAsync(base, AsyncConfig{Enabled: true, QueueSize: 8, WorkerCount: 2}).(*AsyncLogger)

	wrapped.Debug("saved")
	wrapped.With("collection", "organizations").Warn("slow query")
	wrapped.Error("flush failed")
	wrapped.Close()

	if base.count() != 3 {
		t.Fatalf("expected 3 entries after close, got %d", base.count())
	}

	wrapped.Info("after close")
	if base.count() != 4 {
		t.Fatal("entries after close must be written synchronously")
	}
	wrapped.Close()
}

func TestWrapAsync_DropWhenFull(t *testing.T) {
	base := &recordingLogger{block: make(chan struct{})}
	wrapped := WrapAsync(base, AsyncConfig{Enabled: true, QueueSize: 1, WorkerCount: 1, DropWhenFull: true}).(*AsyncLogger)

	for i := 0; i < 50; i++ {
		wrapped.Info("document operation")
	}
	if wrapped.Dropped() == 0 {
		t.Error("expected dropped entries while the sink is blocked")
	}
	close(base.block)
	wrapped.Close()

	if int64(base.count())+wrapped.Dropped() != 50 {
		t.Errorf("written %d + dropped %d != 50", base.count(), wrapped.Dropped())
	}
}
