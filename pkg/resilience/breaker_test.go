package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var errBroker = errors.New("broker unavailable")

func fail() error    { return errBroker }
func succeed() error { return nil }

func TestBreaker_Transitions(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	b := NewBreaker(2, time.Minute, WithClock(clock.Now), OnStateChange(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}))

	if err := b.Execute(fail); !errors.Is(err, errBroker) || b.State() != StateClosed {
		t.Fatalf("one failure must keep the breaker closed, got %v %v", err, b.State())
	}
	_ = b.Execute(fail)
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %v", b.State())
	}

	called := false
	if err := b.Execute(func() error { called = true; return nil }); !errors.Is(err, ErrOpen) || called {
		t.Fatalf("open breaker must reject without calling, got %v called=%v", err, called)
	}

	clock.Advance(time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open after cooldown, got %v", b.State())
	}
	if err := b.Execute(fail); !errors.Is(err, errBroker) || b.State() != StateOpen {
		t.Fatalf("failed trial call must reopen, got %v %v", err, b.State())
	}

	clock.Advance(time.Minute)
	if err := b.Execute(succeed); err != nil || b.State() != StateClosed || b.Failures() != 0 {
		t.Fatalf("successful trial call must close, got %v %v", err, b.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, transitions)
		}
	}
}

func TestBreaker_SingleTrialCall(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := NewBreaker(1, time.Second, WithClock(clock.Now))
	_ = b.Execute(fail)
	clock.Advance(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	if err := b.Execute(succeed); !errors.Is(err, ErrOpen) {
		t.Errorf("second call during a trial call must be rejected, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("trial call: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("expected closed, got %v", b.State())
	}
}

func TestBreaker_ResetAndDefaults(t *testing.T) {
	b := NewBreaker(0, time.Hour)
	_ = b.Execute(fail)
	if b.State() != StateOpen {
		t.Fatalf("maxFailures below one must open on the first failure, got %v", b.State())
	}
	b.Reset()
	if b.State() != StateClosed || b.Failures() != 0 {
		t.Errorf("reset must close, got %v with %d failures", b.State(), b.Failures())
	}
	if State(42).String() != "unknown" {
		t.Error("unexpected name for an invalid state")
	}
}

func TestProperty_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("open exactly when the trailing failure run reaches the threshold", prop.ForAll(
		func(max int, outcomes []bool) bool {
			b := NewBreaker(max, time.Hour)
			run := 0
			for _, ok := range outcomes {
				if b.State() == StateOpen {
					return run >= max
				}
				if ok {
					_ = b.Execute(succeed)
					run = 0
				} else {
					_ = b.Execute(fail)
					run++
				}
			}
			return (b.State() == StateOpen) == (run >= max)
		},
		gen.IntRange(1, 5),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
