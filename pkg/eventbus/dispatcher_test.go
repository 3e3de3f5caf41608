package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

type recordingProducer struct {
	mu       sync.Mutex
	topics   []string
	messages []*Message
	err      error
}

func (p *recordingProducer) Publish(_ context.Context, topic string, message *Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, message)
	return nil
}

func (p *recordingProducer) PublishBatch(ctx context.Context, topic string, messages []*Message) error {
	for _, m := range messages {
		if err := p.Publish(ctx, topic, m); err != nil {
			return err
		}
	}
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func TestLocalDispatcher_OrderAndPriority(t *testing.T) {
	d := NewLocalDispatcher(nil)
	var calls []string
	record := func(name string) Listener {
		return func(context.Context, *Event) error {
			calls = append(calls, name)
			return nil
		}
	}
	d.Listen("organization.created", record("first"))
	d.Listen("organization.created", record("second"))
	d.ListenWithPriority("organization.created", 10, record("urgent"))
	d.Listen(Wildcard, record("audit"))
	d.Listen("organization.deleted", record("other"))

	if err := d.Dispatch(context.Background(), NewEvent("organization.created", nil)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	want := []string{"urgent", "first", "second", "audit"}
	if len(calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, calls)
		}
	}
}

func TestLocalDispatcher_StopPropagation(t *testing.T) {
	d := NewLocalDispatcher(nil)
	reached := false
	d.Listen("k", func(_ context.Context, e *Event) error {
		e.StopPropagation()
		return nil
	})
	d.Listen("k", func(context.Context, *Event) error {
		reached = true
		return nil
	})

	if err := d.Dispatch(context.Background(), NewEvent("k", nil)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if reached {
		t.Error("listener after StopPropagation must not run")
	}
}

func TestLocalDispatcher_ListenerError(t *testing.T) {
	d := NewLocalDispatcher(nil)
	cause := errors.New("listener failed")
	d.Listen("k", func(context.Context, *Event) error { return cause })

	err := d.Dispatch(context.Background(), NewEvent("k", nil))
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped listener error, got %v", err)
	}
}

func TestLocalDispatcher_RejectsEmptyKey(t *testing.T) {
	d := NewLocalDispatcher(nil)
	if err := d.Dispatch(context.Background(), NewEvent("", nil)); !errors.Is(err, ErrEmptyEventKey) {
		t.Fatalf("expected ErrEmptyEventKey, got %v", err)
	}
	if err := d.Dispatch(context.Background(), nil); !errors.Is(err, ErrEmptyEventKey) {
		t.Fatalf("expected ErrEmptyEventKey for nil event, got %v", err)
	}
	if d.HasListeners("k") {
		t.Error("expected no listeners")
	}
}

func TestBusDispatcher_Publishes(t *testing.T) {
	p := &recordingProducer{}
	d := NewBusDispatcher(p, "docmanager.", nil)
	e := NewEvent("organization.created", Arguments{ArgData: map[string]any{"name": "Acme"}})

	if err := d.Dispatch(context.Background(), e); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(p.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(p.messages))
	}
	if p.topics[0] != "docmanager.organization.created" {
		t.Errorf("unexpected topic %q", p.topics[0])
	}
	msg := p.messages[0]
	if msg.ID != e.ID.String() || msg.Key != e.Key || msg.ContentType != "application/json" {
		t.Errorf("unexpected message %+v", msg)
	}
	var decoded map[string]any
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if decoded["key"] != "organization.created" {
		t.Errorf("unexpected payload %v", decoded)
	}
}

func TestBusDispatcher_TopicWithoutPrefix(t *testing.T) {
	d := NewBusDispatcher(&recordingProducer{}, "", nil)
	if got := d.Topic("a.b"); got != "a.b" {
		t.Errorf("expected a.b, got %q", got)
	}
}

func TestBusDispatcher_PublishFailure(t *testing.T) {
	cause := errors.New("broker unavailable")
	d := NewBusDispatcher(&recordingProducer{err: cause}, "", nil)
	if err := d.Dispatch(context.Background(), NewEvent("k", nil)); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped publish error, got %v", err)
	}
}

func TestMultiDispatcher(t *testing.T) {
	local := NewLocalDispatcher(nil)
	localCalls := 0
	local.Listen("k", func(context.Context, *Event) error {
		localCalls++
		return nil
	})
	failing := DispatcherFunc(func(context.Context, *Event) error { return errors.New("down") })
	p := &recordingProducer{}

	m := MultiDispatcher{local, failing, nil, NewBusDispatcher(p, "", nil)}
	err := m.Dispatch(context.Background(), NewEvent("k", nil))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if localCalls != 1 || len(p.messages) != 1 {
		t.Errorf("every dispatcher must run: local=%d bus=%d", localCalls, len(p.messages))
	}
	if err := Discard.Dispatch(context.Background(), NewEvent("k", nil)); err != nil {
		t.Errorf("discard must not fail: %v", err)
	}
}
